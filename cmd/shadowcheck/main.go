package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/platform"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "shadowcheck",
		Usage:   "shadow-ban risk scoring for social media content",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"SHADOWCHECK_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for history, counters, and caches; in-process stores are used if not set",
			EnvVars: []string{"SHADOWCHECK_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "signals-file",
			Usage:   "JSON file of extra signal database entries, layered over the built-in tables",
			EnvVars: []string{"SHADOWCHECK_SIGNALS_FILE"},
		},
		&cli.StringFlag{
			Name:    "agent-config",
			Usage:   "YAML file with initial agent configuration (disabled agents, weights, detections)",
			EnvVars: []string{"SHADOWCHECK_AGENT_CONFIG"},
		},
		&cli.IntFlag{
			Name:    "max-history-items",
			Usage:   "maximum history records kept per account, post, or text",
			Value:   100,
			EnvVars: []string{"SHADOWCHECK_MAX_HISTORY_ITEMS"},
		},
		&cli.DurationFlag{
			Name:    "agent-timeout",
			Usage:   "time limit for each agent, per check (overrides the agent config file)",
			EnvVars: []string{"SHADOWCHECK_AGENT_TIMEOUT"},
		},
		&cli.BoolFlag{
			Name:    "resolve-links",
			Usage:   "follow shortened links to classify their destination (makes outbound HTTP requests)",
			EnvVars: []string{"SHADOWCHECK_RESOLVE_LINKS"},
		},
		&cli.Float64Flag{
			Name:    "link-rate-limit",
			Usage:   "max outbound link resolution requests per second",
			Value:   5,
			EnvVars: []string{"SHADOWCHECK_LINK_RATE_LIMIT"},
		},
	}

	app.Commands = []*cli.Command{
		serveCmd,
		checkCmd,
		statsCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cctx.String("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP API service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3990",
			EnvVars: []string{"SHADOWCHECK_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3991",
			EnvVars: []string{"SHADOWCHECK_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "secret for the admin config API; admin endpoints are disabled if not set",
			EnvVars: []string{"SHADOWCHECK_ADMIN_TOKEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx)
		configOTEL("shadowcheck")

		svc, err := setupService(cctx, logger)
		if err != nil {
			return err
		}

		srv := NewServer(svc, ServerConfig{
			Logger:     logger,
			AdminToken: cctx.String("admin-token"),
		})

		go func() {
			if err := RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		return srv.Run(cctx.Context, cctx.String("bind"))
	},
}

var checkCmd = &cli.Command{
	Name:      "check",
	Usage:     "run a single check and print the result as JSON",
	ArgsUsage: "[<text>]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "kind",
			Usage: "request kind: text, post, or account (inferred if not set)",
		},
		&cli.StringFlag{
			Name:    "platform",
			Aliases: []string{"p"},
			Usage:   "platform identifier (eg: twitter, instagram); inferred from --url if not set",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "profile or post URL",
		},
		&cli.StringSliceFlag{
			Name:  "link",
			Usage: "outbound link included with the content (may be repeated)",
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "account handle",
		},
		&cli.StringFlag{
			Name:  "post-id",
			Usage: "platform post identifier",
		},
		&cli.StringFlag{
			Name:  "subreddit",
			Usage: "subreddit, for reddit posts",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "overall time limit for the check",
			Value: 30 * time.Second,
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx)
		svc, err := setupService(cctx, logger)
		if err != nil {
			return err
		}

		in := check.Input{
			Kind:      check.Kind(cctx.String("kind")),
			Platform:  cctx.String("platform"),
			Text:      strings.Join(cctx.Args().Slice(), " "),
			URL:       cctx.String("url"),
			URLs:      cctx.StringSlice("link"),
			Username:  cctx.String("username"),
			PostID:    cctx.String("post-id"),
			Subreddit: cctx.String("subreddit"),
		}

		ctx, cancel := context.WithTimeout(cctx.Context, cctx.Duration("timeout"))
		defer cancel()
		syn, err := svc.Engine.Check(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(syn)
	},
}

var statsCmd = &cli.Command{
	Name:  "stats",
	Usage: "print signal database statistics as JSON",
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx)
		sigs, err := loadSignals(cctx.String("signals-file"), logger, platform.DefaultRegistry())
		if err != nil {
			return err
		}
		return printJSON(sigs.Stats())
	},
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
