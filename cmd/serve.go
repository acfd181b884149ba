package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/saludplus/asistente/db"
	"github.com/saludplus/asistente/internal/api"
	"github.com/saludplus/asistente/internal/assistant"
	"github.com/saludplus/asistente/internal/cache"
	"github.com/saludplus/asistente/internal/config"
	"github.com/saludplus/asistente/internal/conversation"
	"github.com/saludplus/asistente/internal/database"
	"github.com/saludplus/asistente/internal/knowledge"
	"github.com/saludplus/asistente/internal/log"
	"github.com/saludplus/asistente/internal/ollama"
	"github.com/saludplus/asistente/internal/rag"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 3 * time.Minute // generation can be slow on CPU-bound Ollama
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Start the HTTP API server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			serveAddr = args[0]
		}
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port, overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the pipeline and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	if err := validateAddr(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{})
	logger.Info("starting asistente", "version", Version)

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	client := ollama.NewClient(ollama.Config{
		BaseURL:         cfg.OllamaHost,
		EmbeddingModel:  cfg.EmbeddingModel,
		GenerationModel: cfg.GenerationModel,
	})
	if err := client.Ping(ctx); err != nil {
		// The server still starts: Ollama may come up later and requests
		// fail with a gateway error until it does.
		logger.Warn("ollama not reachable at startup", "host", cfg.OllamaHost, "error", err)
	}

	knowledgeStore := knowledge.NewStore(pool, logger)
	conversationStore := conversation.NewStore(pool, logger)
	retriever := rag.NewRetriever(client, knowledgeStore, rag.RetrieverConfig{
		MinSimilarity: cfg.MinSimilarity,
		DefaultTopK:   cfg.DefaultTopK,
		MaxTopK:       cfg.MaxTopK,
		FinalTopK:     cfg.FinalTopK,
	}, logger)

	a := assistant.New(
		client,
		client,
		retriever,
		knowledgeStore,
		conversationStore,
		cache.New(cfg.CacheSize, cfg.CacheTTL, logger),
		assistant.Config{
			Temperature:   cfg.Temperature,
			ContextWindow: cfg.ContextWindow,
			ChunkMaxChars: cfg.ChunkMaxChars,
			ChunkOverlap:  cfg.ChunkOverlap,
		},
		logger,
	)

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		Assistant:     a,
		Conversations: conversationStore,
		Pool:          pool,
		CORSOrigins:   cfg.CORSOrigins,
		TrustProxy:    cfg.TrustProxy,
		RateBurst:     cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// validateAddr validates the listen address format.
func validateAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("must be in host:port format: %w", err)
	}

	if host != "" && host != "localhost" {
		if ip := net.ParseIP(host); ip == nil {
			if strings.ContainsAny(host, " \t\n") {
				return fmt.Errorf("invalid host: %s", host)
			}
		}
	}

	if port == "" {
		return errors.New("port is required")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be numeric: %w", err)
	}
	if portNum < 0 || portNum > 65535 {
		return fmt.Errorf("port must be 0-65535 (0 = auto-assign), got %d", portNum)
	}

	return nil
}
