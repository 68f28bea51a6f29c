// Tails the crawl-event topic. Useful for watching a crawl from outside the
// pipeline without querying the database.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/model"
	"github.com/thep200/github-ranker/pkg/kafka"
	"github.com/thep200/github-ranker/pkg/log"
)

func main() {
	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, _ := log.NewCslLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(config, logger, config.Kafka.TopicEvents, "crawl-events-group")
	defer consumer.Close()

	consumer.RegisterHandler(model.EventKeyRepoTouched, func(data []byte) error {
		var event model.EventMessage
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}
		logger.Info(ctx, "Repository %d %s/%s %s", event.RepoID, event.User, event.Name, event.Outcome)
		return nil
	})

	consumer.RegisterHandler(model.EventKeyRunHalted, func(data []byte) error {
		var event model.EventMessage
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}
		logger.Warn(ctx, "Crawl run halted: %s", event.Reason)
		return nil
	})

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error(ctx, "Consumer error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info(ctx, "Received shutdown signal, gracefully shutting down...")
	cancel()
}
