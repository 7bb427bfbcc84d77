package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"arbor/internal/auth"
	"arbor/internal/catalog"
	"arbor/internal/config"
	"arbor/internal/handler"
	"arbor/internal/handler/sse"
	"arbor/internal/middleware"
	"arbor/internal/repository/postgres"
	postgresChat "arbor/internal/repository/postgres/chat"
	"arbor/internal/service"
	"arbor/internal/service/attach"
	serviceAuth "arbor/internal/service/auth"
	serviceChat "arbor/internal/service/chat"
	"arbor/internal/service/chat/conversation"
	"arbor/internal/service/chat/streaming"
	serviceLLM "arbor/internal/service/llm"
)

// localDevUserID is the fixed identity requests run as when JWKS_URL
// is unset. Never used once a verifier is configured.
const localDevUserID = "local-dev-user"

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// JWT verifier; nil means local-dev identity
	var verifier auth.TokenVerifier
	if cfg.JWKSURL != "" {
		v, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer v.Close()
		verifier = v
	} else {
		logger.Warn("JWKS_URL not set - requests run as a fixed local user (dev only)")
	}

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Bootstrap schema outside prod; prod schemas are migrated explicitly
	if cfg.Environment != "prod" {
		if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		logger.Info("schema ensured", "table_prefix", cfg.TablePrefix)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	convRepo := postgresChat.NewConversationRepository(repoConfig)
	msgRepo := postgresChat.NewMessageRepository(repoConfig)
	fileRepo := postgresChat.NewMessageFileRepository(repoConfig)
	userPrefsRepo := postgres.NewUserPreferencesRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Model catalog (embedded YAML)
	modelCatalog, err := catalog.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load model catalog: %v", err)
	}
	logger.Info("model catalog loaded", "providers", modelCatalog.Providers())

	// LLM providers
	providerRegistry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	// Stream executor registry with background cleanup
	streamRegistry := streaming.NewRegistry(1*time.Minute, 10*time.Minute)
	go streamRegistry.StartCleanup(ctx)

	// Services
	authorizer := serviceAuth.NewOwnerBasedAuthorizer(convRepo, msgRepo)
	attachService := attach.NewService(logger)
	assembler := conversation.NewAssembler(logger)

	conversationService := serviceChat.NewConversationService(convRepo, logger)
	messageService := serviceChat.NewMessageService(msgRepo, fileRepo, authorizer, logger)
	streamingService := streaming.NewService(
		convRepo,
		msgRepo,
		fileRepo,
		userPrefsRepo,
		txManager,
		attachService,
		assembler,
		providerRegistry,
		modelCatalog,
		streamRegistry,
		cfg,
		logger,
	)
	userPrefsService := service.NewUserPreferencesService(userPrefsRepo, logger)

	// Handlers
	conversationHandler := handler.NewConversationHandler(conversationService, logger)
	messageHandler := handler.NewMessageHandler(messageService, streamingService, logger)
	streamHandler := handler.NewStreamHandler(streamRegistry, sse.DefaultConfig(), logger)
	modelsHandler := handler.NewModelsHandler(cfg, modelCatalog, logger)
	userPrefsHandler := handler.NewUserPreferencesHandler(userPrefsService, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ method patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Model catalog
	mux.HandleFunc("GET /api/models", modelsHandler.List)

	// Conversation routes
	mux.HandleFunc("POST /api/conversations", conversationHandler.Create)
	mux.HandleFunc("GET /api/conversations", conversationHandler.List)
	mux.HandleFunc("GET /api/conversations/{id}", conversationHandler.Get)
	mux.HandleFunc("PATCH /api/conversations/{id}", conversationHandler.Update)
	mux.HandleFunc("DELETE /api/conversations/{id}", conversationHandler.Delete)

	// Message-tree routes
	mux.HandleFunc("GET /api/conversations/{id}/messages", messageHandler.List)
	mux.HandleFunc("POST /api/conversations/{id}/messages", messageHandler.Submit)
	mux.HandleFunc("POST /api/conversations/{id}/path", messageHandler.ResolvePath)
	mux.HandleFunc("GET /api/messages/{id}/siblings", messageHandler.Siblings)
	mux.HandleFunc("POST /api/messages/{id}/edit", messageHandler.Edit)
	mux.HandleFunc("POST /api/messages/{id}/regenerate", messageHandler.Regenerate)
	mux.HandleFunc("PUT /api/messages/{id}/thread-draft", messageHandler.UpdateThreadDraft)
	mux.HandleFunc("DELETE /api/messages/{id}", messageHandler.Delete)

	// Streaming
	mux.HandleFunc("GET /api/streams/{id}", streamHandler.Stream)

	// User preferences
	mux.HandleFunc("GET /api/users/me/preferences", userPrefsHandler.GetPreferences)
	mux.HandleFunc("PATCH /api/users/me/preferences", userPrefsHandler.UpdatePreferences)

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(verifier, localDevUserID, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
