package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "towerbot",
		Usage:   "subreddit moderation bot (watches the pattern)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "client-id",
			Usage:    "OAuth client id of the bot's reddit app",
			Required: true,
			EnvVars:  []string{"RFTB_PRAW_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:     "client-secret",
			Usage:    "OAuth client secret of the bot's reddit app",
			Required: true,
			EnvVars:  []string{"RFTB_PRAW_CLIENT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "username",
			Usage:   "reddit account the bot runs as",
			Value:   "rFlyingTower",
			EnvVars: []string{"RFTB_PRAW_USERNAME"},
		},
		&cli.StringFlag{
			Name:     "password",
			Required: true,
			EnvVars:  []string{"RFTB_PRAW_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "user-agent",
			Value:   "Go:towerbot (by /u/kdknigga)",
			EnvVars: []string{"RFTB_PRAW_CLIENT_USER_AGENT"},
		},
		&cli.StringFlag{
			Name:    "subreddit",
			Usage:   "subreddit to moderate, without the r/ prefix",
			Value:   "flying",
			EnvVars: []string{"RFTB_SUBREDDIT"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			EnvVars: []string{"RFTB_LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the bot",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "history ledger backend: sqlite://path, postgres://..., redis://..., or mem://",
			Value:   "sqlite://data/towerbot/history.db",
			EnvVars: []string{"RFTB_DB_CONNECTION_STRING", "DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "rules-wiki-page",
			Usage:   "wiki page holding the bot's rules document",
			Value:   "botconfig/towerbot",
			EnvVars: []string{"RFTB_RULES_WIKI_PAGE"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"RFTB_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "optional slack incoming webhook for mirroring operator reports",
			EnvVars: []string{"RFTB_SLACK_WEBHOOK_URL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cctx.String("log-level")),
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			exp, err := otlptracehttp.New(cctx.Context)
			if err != nil {
				log.Fatalf("failed to create trace exporter: %v", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("towerbot"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(Config{
			ClientID:        cctx.String("client-id"),
			ClientSecret:    cctx.String("client-secret"),
			Username:        cctx.String("username"),
			Password:        cctx.String("password"),
			UserAgent:       cctx.String("user-agent"),
			Subreddit:       cctx.String("subreddit"),
			DatabaseURL:     cctx.String("database-url"),
			RulesWikiPage:   cctx.String("rules-wiki-page"),
			SlackWebhookURL: cctx.String("slack-webhook-url"),
			Logger:          logger,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(cctx.Context); err != nil {
			return fmt.Errorf("failed to run bot: %w", err)
		}
		return nil
	},
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
