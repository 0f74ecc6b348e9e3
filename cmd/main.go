package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"

	"duochat/api"
	"duochat/auth"
	"duochat/contract"
	"duochat/moderation"
	"duochat/observability"
	"duochat/projection"
	"duochat/repositories"
	"duochat/runtime/workers"
	"duochat/search"
	"duochat/services"
	"duochat/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the server lifecycle. Keeping
// the logic out of main ensures the defers (database and index close) run
// before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB) & Search (Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.Open(config.IndexFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		index.Close()
	}()

	// 3. Core components
	conversationRepository := repositories.NewConversationRepository(db, log)
	userRepository := repositories.NewUserRepository(db)
	resolver := services.NewConversationResolver(conversationRepository)
	history := projection.NewHistory(conversationRepository)
	queue := transport.NewQueue(config.BufferSize, log)
	defer queue.Close()

	var moderator *moderation.Moderator
	if config.ModerationWords != "" {
		m, err := moderation.NewModerator(
			strings.Split(config.ModerationWords, ","),
			config.ModerationCharReplacement, log)
		if err != nil {
			return fmt.Errorf("moderation dictionary rejected: %w", err)
		}
		moderator = &m
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	messageService := services.NewMessageService(queue, history, index, log)
	userService := services.NewUserService(userRepository, log)
	tokens := auth.NewTokenManager([]byte(config.JWTSecret), "duochat", config.TokenTTL)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervision: ingest workers share the consumption channel, so the
	// pipeline scales horizontally while creation stays race-safe.
	sup := workers.NewSupervisor(log)
	ingesters := make([]contract.Worker, 0, config.NumberOfWorkers)
	for i := 0; i < config.NumberOfWorkers; i++ {
		ingesters = append(ingesters, workers.NewIngestWorker(
			queue.Events(), conversationRepository, resolver, moderator, index, metrics, log))
	}
	sup.Add(ingesters...).
		Add(workers.NewHealthMonitoringWorker(log, queue, config.HealthInterval))

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 6. HTTP server
	server := api.NewServer(userService, messageService, tokens, metrics, log)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.Router(registry, auth.LimitConfig{RPS: config.RateLimitRPS, Burst: config.RateLimitBurst}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup: stop accepting requests, then drain the workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown did not complete", "err", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
