package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/internal/crawler"
	"github.com/thep200/github-ranker/internal/githubapi"
	"github.com/thep200/github-ranker/internal/model"
	"github.com/thep200/github-ranker/pkg/db"
	kafkapkg "github.com/thep200/github-ranker/pkg/kafka"
	"github.com/thep200/github-ranker/pkg/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		panic(err)
	}
	logger, _ := log.NewCslLogger()
	mysql, _ := db.NewMysql(config)

	repoMd, _ := model.NewRepo(config, logger, mysql)
	rankMd, _ := model.NewRank(config, logger, mysql)
	activityMd, _ := model.NewActivity(config, logger, mysql)
	stateMd, _ := model.NewCrawlState(config, logger, mysql)

	// Migrate database
	if err := mysql.Migrate(repoMd, rankMd, activityMd, stateMd); err != nil {
		logger.Error(ctx, "Failed to migrate database: %v", err)
		os.Exit(1)
	}

	if count, err := repoMd.Count(ctx); err == nil {
		logger.Info(ctx, "Tracking %d repositories", count)
	}

	var producer *kafkapkg.Producer
	if config.Kafka.Enabled {
		producer = kafkapkg.NewProducer(config, logger, config.Kafka.TopicEvents)
		defer producer.Close()
	}

	caller := githubapi.NewCaller(logger, config)
	crawlerIns, err := crawler.NewCrawler(logger, config, mysql, caller, producer)
	if err != nil {
		logger.Error(ctx, "Failed to build crawler: %v", err)
		os.Exit(1)
	}

	// The external scheduler may cancel the run; committed progress stays
	// valid and the next invocation resumes from the persisted state.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn(ctx, "Received shutdown signal, cancelling run")
		cancel()
	}()

	logger.Info(ctx, "Starting %s %s", config.App.Name, config.App.Version)
	report := crawlerIns.Crawl(ctx)
	if report.Halted() {
		os.Exit(1)
	}
}
