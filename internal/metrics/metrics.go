package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_chats_created_total",
			Help: "Total chats created",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total user messages submitted",
		},
	)

	ReplyTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_reply_turns_total",
			Help: "Total reply turns by terminal state",
		},
		[]string{"state"}, // "done" or "failed"
	)

	StreamEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_stream_events_total",
			Help: "Total streaming data events applied",
		},
	)

	BroadcastsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcasts_published_total",
			Help: "Total chat snapshots broadcast to other replicas",
		},
	)

	BroadcastsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcasts_received_total",
			Help: "Total chat snapshots received from other replicas",
		},
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_search_queries_total",
			Help: "Total search queries",
		},
	)

	StoreFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_store_flushes_total",
			Help: "Total persistence flushes by result",
		},
		[]string{"result"}, // "ok" or "error"
	)
)
