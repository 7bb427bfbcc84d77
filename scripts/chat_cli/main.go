package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"arbor/internal/catalog"
	"arbor/internal/config"
	chatModels "arbor/internal/domain/models/chat"
	chatSvc "arbor/internal/domain/services/chat"
	"arbor/internal/repository/postgres"
	postgresChat "arbor/internal/repository/postgres/chat"
	"arbor/internal/service/attach"
	serviceAuth "arbor/internal/service/auth"
	serviceChat "arbor/internal/service/chat"
	"arbor/internal/service/chat/conversation"
	"arbor/internal/service/chat/streaming"
	serviceLLM "arbor/internal/service/llm"

	"github.com/joho/godotenv"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

const cliClientID = "chat-cli"

type CLI struct {
	ctx           context.Context
	conversations chatSvc.ConversationService
	messages      chatSvc.MessageService
	streaming     chatSvc.StreamingService
	registry      *streaming.Registry
	catalog       *catalog.Registry
	scanner       *bufio.Scanner
	userID        string
	logger        *slog.Logger
}

// setupLogger creates a logger that writes to both console and file
func setupLogger() (*slog.Logger, string, error) {
	logFile, err := config.SetupLogFile("logs", 10)
	if err != nil {
		return nil, "", err
	}

	// Console: WARN level so streamed text stays readable
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})

	// File: DEBUG level, formatted text for readability
	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format("2006-01-02 15:04:05"))
				}
			}
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return a
		},
	})

	multi := &multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}
	return slog.New(multi), logFile.Name(), nil
}

// multiHandler writes to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

func main() {
	_ = godotenv.Load()

	logger, logFile, err := setupLogger()
	if err != nil {
		fmt.Printf("Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("session started", "log_file", logFile)

	cfg := config.Load()

	userID := os.Getenv("CHAT_USER_ID")
	if userID == "" {
		userID = "local-dev-user"
	}

	// Connect to database
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("%s❌ Failed to connect to database: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if cfg.Environment != "prod" {
		if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
			fmt.Printf("%s❌ Failed to ensure schema: %v%s\n", colorRed, err, colorReset)
			os.Exit(1)
		}
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	convRepo := postgresChat.NewConversationRepository(repoConfig)
	msgRepo := postgresChat.NewMessageRepository(repoConfig)
	fileRepo := postgresChat.NewMessageFileRepository(repoConfig)
	prefsRepo := postgres.NewUserPreferencesRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	modelCatalog, err := catalog.NewRegistry()
	if err != nil {
		fmt.Printf("%s❌ Failed to load model catalog: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	providers, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		fmt.Printf("%s❌ Failed to setup providers: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	registry := streaming.NewRegistry(1*time.Minute, 10*time.Minute)
	go registry.StartCleanup(ctx)

	authorizer := serviceAuth.NewOwnerBasedAuthorizer(convRepo, msgRepo)
	attachments := attach.NewService(logger)
	assembler := conversation.NewAssembler(logger)

	cli := &CLI{
		ctx:           ctx,
		conversations: serviceChat.NewConversationService(convRepo, logger),
		messages:      serviceChat.NewMessageService(msgRepo, fileRepo, authorizer, logger),
		streaming: streaming.NewService(
			convRepo, msgRepo, fileRepo, prefsRepo, txManager,
			attachments, assembler, providers, modelCatalog, registry,
			cfg, logger,
		),
		registry: registry,
		catalog:  modelCatalog,
		scanner:  bufio.NewScanner(os.Stdin),
		userID:   userID,
		logger:   logger,
	}

	cli.run()
}

func (cli *CLI) run() {
	fmt.Printf("\n%s╔══════════════════════════════════════╗%s\n", colorCyan, colorReset)
	fmt.Printf("%s║         Arbor Chat CLI v1.0          ║%s\n", colorCyan, colorReset)
	fmt.Printf("%s╚══════════════════════════════════════╝%s\n", colorCyan, colorReset)
	fmt.Printf("%sUser: %s%s\n\n", colorBlue, cli.userID, colorReset)

	for {
		fmt.Println("\n" + strings.Repeat("─", 40))
		fmt.Println("Main Menu:")
		fmt.Println("1. New conversation")
		fmt.Println("2. View conversation")
		fmt.Println("3. Continue conversation")
		fmt.Println("4. Regenerate last reply")
		fmt.Println("5. Exit")
		fmt.Print("\nSelect option (1-5): ")

		choice := cli.readLine()
		fmt.Println()

		switch choice {
		case "1":
			cli.newConversationFlow()
		case "2":
			if conv := cli.pickConversation(); conv != nil {
				cli.displayConversation(conv.ID)
			}
		case "3":
			cli.continueConversation()
		case "4":
			cli.regenerateFlow()
		case "5":
			fmt.Printf("%s✓ Goodbye!%s\n", colorGreen, colorReset)
			return
		default:
			fmt.Printf("%s⚠ Invalid choice. Please enter 1-5.%s\n", colorYellow, colorReset)
		}
	}
}

func (cli *CLI) newConversationFlow() {
	fmt.Printf("%s=== New Conversation ===%s\n\n", colorCyan, colorReset)

	fmt.Print("Title (enter to auto-derive from first message): ")
	title := cli.readLine()

	fmt.Print("Your message: ")
	message := cli.readLine()
	if message == "" {
		fmt.Printf("%s⚠ Message cannot be empty%s\n", colorYellow, colorReset)
		return
	}

	model := cli.selectModel()

	conv, err := cli.conversations.CreateConversation(cli.ctx, &chatSvc.CreateConversationRequest{
		UserID: cli.userID,
		Title:  title,
	})
	if err != nil {
		fmt.Printf("%s❌ Failed to create conversation: %v%s\n", colorRed, err, colorReset)
		return
	}
	fmt.Printf("%s✓ Conversation created: %d%s\n", colorGreen, conv.ID, colorReset)

	cli.submitAndStream(&chatSvc.SubmitRequest{
		ConversationID: conv.ID,
		UserID:         cli.userID,
		Content:        message,
		Model:          model,
	})
}

func (cli *CLI) continueConversation() {
	fmt.Printf("%s=== Continue Conversation ===%s\n\n", colorCyan, colorReset)

	conv := cli.pickConversation()
	if conv == nil {
		return
	}

	path := cli.displayConversation(conv.ID)

	fmt.Print("\nYour message: ")
	message := cli.readLine()
	if message == "" {
		fmt.Printf("%s⚠ Message cannot be empty%s\n", colorYellow, colorReset)
		return
	}

	req := &chatSvc.SubmitRequest{
		ConversationID: conv.ID,
		UserID:         cli.userID,
		Content:        message,
		Model:          cli.selectModel(),
	}
	if len(path) > 0 {
		lastID := path[len(path)-1].ID
		req.ParentMessageID = &lastID
	}

	cli.submitAndStream(req)
}

func (cli *CLI) regenerateFlow() {
	fmt.Printf("%s=== Regenerate Last Reply ===%s\n\n", colorCyan, colorReset)

	conv := cli.pickConversation()
	if conv == nil {
		return
	}

	path, err := cli.messages.ResolvePath(cli.ctx, conv.ID, cli.userID, &chatSvc.PathRequest{})
	if err != nil {
		fmt.Printf("%s❌ Failed to resolve path: %v%s\n", colorRed, err, colorReset)
		return
	}

	var lastAssistant *chatModels.Message
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Role == chatModels.RoleAssistant {
			lastAssistant = &path[i]
			break
		}
	}
	if lastAssistant == nil {
		fmt.Printf("%s⚠ No assistant reply to regenerate%s\n", colorYellow, colorReset)
		return
	}

	resp, err := cli.streaming.Regenerate(cli.ctx, lastAssistant.ID, cli.userID)
	if err != nil {
		fmt.Printf("%s❌ Error: %v%s\n", colorRed, err, colorReset)
		return
	}
	fmt.Printf("%s✓ Regenerating (branch %d)%s\n", colorGreen, resp.BranchIndex, colorReset)
	cli.watchStream(resp.StreamID)
}

func (cli *CLI) submitAndStream(req *chatSvc.SubmitRequest) {
	fmt.Printf("\n%s⏳ Sending message...%s\n", colorBlue, colorReset)
	resp, err := cli.streaming.Submit(cli.ctx, req)
	if err != nil {
		fmt.Printf("%s❌ Error: %v%s\n", colorRed, err, colorReset)
		return
	}
	fmt.Printf("%s✓ User message created: %d%s\n", colorGreen, resp.UserMessage.ID, colorReset)
	cli.watchStream(resp.StreamID)
}

// watchStream attaches to the in-process executor and prints deltas as
// they arrive, the same events an SSE client would receive.
func (cli *CLI) watchStream(streamID string) {
	executor := cli.registry.Get(streamID)
	if executor == nil {
		fmt.Printf("%s⚠ Stream %s not found%s\n", colorYellow, streamID, colorReset)
		return
	}

	eventChan := executor.AddClient(cliClientID)
	defer executor.RemoveClient(cliClientID)

	// Replays anything emitted between submission and attach.
	if err := executor.HandleReconnection(cli.ctx, cliClientID); err != nil {
		cli.logger.Debug("stream catchup failed", "stream_id", streamID, "error", err)
	}

	fmt.Printf("\n%s--- Assistant ---%s\n", colorGreen, colorReset)
	for raw := range eventChan {
		eventType, data := parseSSEEvent(raw)
		switch eventType {
		case chatModels.SSEEventMessageCatchup:
			var catchup chatModels.MessageCatchupEvent
			if json.Unmarshal([]byte(data), &catchup) == nil {
				fmt.Print(catchup.Text)
			}
		case chatModels.SSEEventMessageDelta:
			var delta chatModels.MessageDeltaEvent
			if json.Unmarshal([]byte(data), &delta) == nil {
				fmt.Print(delta.Text)
			}
		case chatModels.SSEEventMessageComplete:
			var complete chatModels.MessageCompleteEvent
			if json.Unmarshal([]byte(data), &complete) == nil {
				fmt.Printf("\n\n%s✓ Complete (message %d", colorGreen, complete.Message.ID)
				if complete.InputTokens > 0 || complete.OutputTokens > 0 {
					fmt.Printf(", tokens: %d in / %d out", complete.InputTokens, complete.OutputTokens)
				}
				fmt.Printf(")%s\n", colorReset)
			}
			return
		case chatModels.SSEEventMessageError:
			var streamErr chatModels.MessageErrorEvent
			if json.Unmarshal([]byte(data), &streamErr) == nil {
				fmt.Printf("\n%s❌ Stream error: %s%s\n", colorRed, streamErr.Error, colorReset)
			}
			return
		}
	}
}

// parseSSEEvent splits a wire-format SSE event into its type and data
// payload.
func parseSSEEvent(raw string) (eventType, data string) {
	for _, line := range strings.Split(raw, "\n") {
		if after, ok := strings.CutPrefix(line, "event: "); ok {
			eventType = after
		} else if after, ok := strings.CutPrefix(line, "data: "); ok {
			data = after
		}
	}
	return eventType, data
}

func (cli *CLI) pickConversation() *chatModels.Conversation {
	convs, err := cli.conversations.ListConversations(cli.ctx, cli.userID)
	if err != nil {
		fmt.Printf("%s❌ Failed to list conversations: %v%s\n", colorRed, err, colorReset)
		return nil
	}
	if len(convs) == 0 {
		fmt.Printf("%s⚠ No conversations found%s\n", colorYellow, colorReset)
		return nil
	}

	fmt.Println("Recent conversations:")
	for i, conv := range convs {
		title := conv.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. %s (ID: %d)\n", i+1, title, conv.ID)
	}

	fmt.Print("\nSelect conversation number (or 0 to cancel): ")
	choice := cli.readLine()
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(convs) {
		if idx != 0 {
			fmt.Printf("%s⚠ Invalid choice%s\n", colorYellow, colorReset)
		}
		return nil
	}
	return &convs[idx-1]
}

// displayConversation prints the active path and returns it so callers
// can attach a follow-up at its tip.
func (cli *CLI) displayConversation(conversationID int64) []chatModels.Message {
	path, err := cli.messages.ResolvePath(cli.ctx, conversationID, cli.userID, &chatSvc.PathRequest{})
	if err != nil {
		fmt.Printf("%s❌ Failed to resolve path: %v%s\n", colorRed, err, colorReset)
		return nil
	}
	if len(path) == 0 {
		fmt.Printf("%s⚠ Conversation is empty%s\n", colorYellow, colorReset)
		return nil
	}

	fmt.Printf("\n%s--- Conversation ---%s\n", colorCyan, colorReset)
	for i := range path {
		cli.displayMessage(&path[i])
		fmt.Println()
	}
	return path
}

func (cli *CLI) displayMessage(msg *chatModels.Message) {
	roleColor := colorBlue
	if msg.Role == chatModels.RoleAssistant {
		roleColor = colorGreen
	}
	fmt.Printf("%s[%s]%s\n", roleColor, strings.ToUpper(msg.Role), colorReset)
	fmt.Println(msg.Content)

	for _, file := range msg.Files {
		fmt.Printf("%s  📎 %s (%s, %d bytes)%s\n", colorYellow, file.FileName, file.MimeType, file.SizeBytes, colorReset)
	}
	if msg.Role == chatModels.RoleAssistant && msg.Model != nil {
		fmt.Printf("%s  Model: %s%s\n", colorBlue, *msg.Model, colorReset)
	}
}

// selectModel offers the catalog's models and returns nil for the
// server default.
func (cli *CLI) selectModel() *string {
	var ids []string
	for _, provider := range cli.catalog.Providers() {
		models, err := cli.catalog.ListProviderModels(provider)
		if err != nil {
			continue
		}
		for _, m := range models {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	fmt.Printf("\n%sSelect model:%s\n", colorCyan, colorReset)
	for i, id := range ids {
		fmt.Printf("%d. %s\n", i+1, id)
	}
	fmt.Println("0. Use default")
	fmt.Print("\nChoice: ")

	choice := cli.readLine()
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(ids) {
		return nil
	}
	return &ids[idx-1]
}

func (cli *CLI) readLine() string {
	if !cli.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(cli.scanner.Text())
}
