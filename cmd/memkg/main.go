package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gomemkg/memkg/internal/database"
	"github.com/gomemkg/memkg/internal/metrics"
	"github.com/gomemkg/memkg/internal/server"
	"github.com/joho/godotenv"
)

var (
	libsqlURL     = flag.String("libsql-url", "", "libSQL database URL (default: file:./memkg.db)")
	authToken     = flag.String("auth-token", "", "Authentication token for remote databases")
	embeddingDims = flag.Int("embedding-dims", 0, "Embedding vector dimensions (default: 1536)")
	transport     = flag.String("transport", "stdio", "Transport to use: stdio or sse")
	addr          = flag.String("addr", ":8080", "Address to listen on when using SSE transport")
	sseEndpoint   = flag.String("sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
)

func main() {
	// .env is optional; env vars and flags win over it
	_ = godotenv.Load()
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, closing server...")
		cancel()
	}()

	config := database.NewConfig()

	// Initialize metrics (noop if disabled)
	metrics.InitFromEnv()

	// Override with command line flags if provided
	if *libsqlURL != "" {
		config.URL = *libsqlURL
	}
	if *authToken != "" {
		config.AuthToken = *authToken
	}
	if *embeddingDims > 0 {
		config.EmbeddingDims = *embeddingDims
	}

	store, err := database.NewStore(config)
	if err != nil {
		log.Fatal("Failed to open store", "err", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing store", "err", err)
		}
	}()

	mcpServer := server.NewMCPServer(store)

	log.Info("Starting memkg server...", "transport", *transport)
	switch *transport {
	case "stdio":
		go func() {
			if err := mcpServer.Run(ctx); err != nil {
				log.Error("Server error", "err", err)
			}
		}()
	case "sse":
		go func() {
			if err := mcpServer.RunSSE(ctx, *addr, *sseEndpoint); err != nil {
				log.Error("SSE server error", "err", err)
			}
		}()
	default:
		log.Fatal("unknown transport (expected: stdio or sse)", "transport", *transport)
	}

	<-ctx.Done()

	log.Info("Server stopped")
}
