package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rflying-tower/towerbot/automod/consumer"
	"github.com/rflying-tower/towerbot/automod/engine"
	"github.com/rflying-tower/towerbot/automod/history"
	"github.com/rflying-tower/towerbot/reddit"
	"github.com/rflying-tower/towerbot/util"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	logger *slog.Logger
	engine *engine.Engine
}

type Config struct {
	ClientID        string
	ClientSecret    string
	Username        string
	Password        string
	UserAgent       string
	Subreddit       string
	DatabaseURL     string
	RulesWikiPage   string
	SlackWebhookURL string
	Logger          *slog.Logger
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	client := reddit.NewClient(reddit.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Username:     config.Username,
		Password:     config.Password,
		UserAgent:    config.UserAgent,
		Logger:       logger,
		Client:       util.RobustHTTPClient(logger),
	})

	store, err := history.NewStore(config.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing history store: %w", err)
	}

	eng := &engine.Engine{
		Logger:        logger,
		Client:        client,
		History:       store,
		Subreddit:     config.Subreddit,
		RulesWikiPage: config.RulesWikiPage,
	}

	var notifier engine.Notifier = &engine.ModmailNotifier{Client: client, Subreddit: config.Subreddit}
	if config.SlackWebhookURL != "" {
		notifier = engine.MultiNotifier{
			notifier,
			&engine.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL},
		}
	}
	eng.Notifier = notifier

	return &Server{
		logger: logger,
		engine: eng,
	}, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Run loads the initial ruleset and supervises the three watchers until one
// fails, an operator sends the exit command, or the process receives an
// interrupt. Any of those cancels the shared context, and Run returns once
// every watcher has wound down.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	// the bot is useless without a ruleset, so a failure here is startup-fatal
	if err := s.engine.ReloadRules(ctx); err != nil {
		return fmt.Errorf("loading initial ruleset: %w", err)
	}
	if s.engine.Rules() == nil {
		return fmt.Errorf("initial ruleset did not parse, refusing to start")
	}

	watchers := []interface {
		Run(ctx context.Context) error
	}{
		&consumer.ModlogWatcher{Engine: s.engine, Logger: s.logger, Shutdown: shutdown},
		&consumer.PostWatcher{Engine: s.engine, Logger: s.logger, Shutdown: shutdown},
		&consumer.InboxWatcher{Engine: s.engine, Logger: s.logger, Shutdown: shutdown},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range watchers {
		w := w
		g.Go(func() error { return w.Run(ctx) })
	}

	err := g.Wait()
	s.logger.Info("all watchers stopped")
	return err
}
