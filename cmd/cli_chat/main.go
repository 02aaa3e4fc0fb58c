package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/danieldev0724/chat-with-gpt/internal/config"
	"github.com/danieldev0724/chat-with-gpt/internal/domain"
	"github.com/danieldev0724/chat-with-gpt/internal/llm"
	"github.com/danieldev0724/chat-with-gpt/internal/replication"
	"github.com/danieldev0724/chat-with-gpt/internal/repository"
	"github.com/danieldev0724/chat-with-gpt/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, zap.NewStdLog(logger))
	titles := llm.NewCompletionTitleGenerator(llmClient, cfg.TitleModel)

	svc := service.NewChatService(
		logger,
		repository.NewMemoryChatRepository(),
		replication.NewLoopbackChannel(),
		llmClient,
		titles,
	)
	if err := svc.Start(ctx); err != nil {
		log.Fatal(err)
	}
	searchSvc := service.NewSearchService(logger, svc.Index(), svc)

	chatID, err := svc.CreateChat(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("===== chat-with-gpt =====")
	fmt.Println("Comandos: /new, /search <texto>, /quit")

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case line == "/new":
			chatID, err = svc.CreateChat(ctx)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println("Nuevo chat:", chatID)
			continue
		case strings.HasPrefix(line, "/search "):
			for _, r := range searchSvc.Query(strings.TrimPrefix(line, "/search ")) {
				fmt.Printf("[%s] %s - %s\n", r.ChatID, r.Title, r.Description)
			}
			continue
		}

		runTurn(ctx, svc, chatID, line)
	}
}

// runTurn envia el mensaje y muestra la respuesta a medida que llega,
// escuchando los eventos de mutacion del chat.
func runTurn(ctx context.Context, svc *service.ChatService, chatID, content string) {
	events, cancel := svc.Bus().SubscribeChat(chatID)
	defer cancel()

	if err := svc.SendMessage(ctx, service.Submission{ChatID: chatID, Content: content}); err != nil {
		fmt.Println("error:", err)
		return
	}

	printed := 0
	for range events {
		reply, ok := lastAssistantMessage(svc, chatID)
		if !ok {
			continue
		}
		if len(reply.Content) > printed {
			fmt.Print(reply.Content[printed:])
			printed = len(reply.Content)
		}
		if reply.Done {
			fmt.Println()
			return
		}
	}
}

func lastAssistantMessage(svc *service.ChatService, chatID string) (domain.Message, bool) {
	snap, ok := svc.Snapshot(chatID)
	if !ok {
		return domain.Message{}, false
	}
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		if snap.Messages[i].Role == domain.RoleAssistant {
			return snap.Messages[i], true
		}
	}
	return domain.Message{}, false
}
