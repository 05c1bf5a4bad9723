package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/spf13/afero"

	"smartnotes/internal/auth"
	"smartnotes/internal/config"
	"smartnotes/internal/db"
	"smartnotes/internal/enrich"
	mcpserver "smartnotes/internal/mcp"
	"smartnotes/internal/notes"
	"smartnotes/internal/obs"
)

func main() {
	// Config
	cfg, err := config.Load(afero.NewOsFs(), os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// Logger
	logger := obs.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	// Context for startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Note store
	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	// Wire dependencies
	noteSvc := notes.NewService(store)
	noteHandler := notes.NewHandler(noteSvc, logger)

	// The AI client is built once and shared by every request.
	generator := enrich.NewOpenAIGenerator(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	gateway := enrich.NewGateway(generator, logger)
	aiHandler := enrich.NewHandler(gateway, logger)

	resolver := buildResolver(ctx, cfg, logger)
	requireUser := auth.RequireUser(resolver, logger)

	// Create MCP server
	mcpSrv := mcpserver.NewServer(noteSvc, gateway, logger)

	// HTTP router
	mux := http.NewServeMux()
	noteHandler.RegisterRoutes(mux, requireUser)
	aiHandler.RegisterRoutes(mux, requireUser)

	// MCP endpoint (HTTP transport)
	// MCP uses POST for requests and GET for SSE streams
	mcpHTTP := requireUser(mcpserver.NewHTTPHandler(mcpSrv))
	mux.Handle("POST /mcp", mcpHTTP)
	mux.Handle("GET /mcp", mcpHTTP)
	mux.Handle("DELETE /mcp", mcpHTTP)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	if len(cfg.CORSOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "Mcp-Session-Id"},
			ExposedHeaders: []string{"X-Request-Id", "Mcp-Session-Id"},
			MaxAge:         300,
		})(handler)
	}
	handler = obs.RequestLogger(logger)(handler)

	// Start server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", srv.Addr, err)
	}

	logger.Info("server starting", "port", cfg.Port, "store", cfg.Store, "ai_model", cfg.AIModel)
	logger.Info("endpoints available",
		"api", "http://localhost:"+cfg.Port+"/notes",
		"ai", "http://localhost:"+cfg.Port+"/ai",
		"mcp", "http://localhost:"+cfg.Port+"/mcp",
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	if err := serve(srv, ln, sigCh, cfg.ShutdownTimeout, logger); err != nil {
		log.Fatalf("server error: %v", err)
	}

	logger.Info("server stopped")
}

// serve runs srv on ln until a value arrives on stop, then shuts it down
// gracefully. It returns only after Shutdown has finished draining
// in-flight requests, so deferred cleanup in the caller runs afterwards.
func serve(srv *http.Server, ln net.Listener, stop <-chan os.Signal, timeout time.Duration, logger *slog.Logger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-stop

		logger.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	if err := srv.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	<-done
	return nil
}

// openStore returns the configured note store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notes.Store, func()) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory note store; notes are lost on restart")
		return notes.NewMemStore(), func() {}
	}

	// Connect to MongoDB
	logger.Info("connecting to MongoDB", "database", cfg.MongoDatabase)
	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	logger.Info("connected to MongoDB")

	repo := notes.NewRepo(database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to ensure indexes", "error", err)
	}
	return repo, func() {
		if err := db.Disconnect(context.Background(), database); err != nil {
			logger.Error("mongo disconnect error", "error", err)
		}
	}
}

// buildResolver chains the configured identity sources: PASETO tokens
// first, then OIDC ID tokens.
func buildResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger) auth.Resolver {
	var chain auth.Chain
	if cfg.AuthTokenKey != "" {
		tokens, err := auth.NewTokenService(cfg.AuthTokenKey, cfg.AuthTokenTTL)
		if err != nil {
			log.Fatalf("failed to create token service: %v", err)
		}
		chain = append(chain, tokens)
	}
	if cfg.OIDCIssuer != "" {
		verifier, err := auth.NewOIDCResolver(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			log.Fatalf("failed to initialize OIDC: %v", err)
		}
		chain = append(chain, verifier)
		logger.Info("OIDC identity enabled", "issuer", cfg.OIDCIssuer)
	}
	return chain
}
