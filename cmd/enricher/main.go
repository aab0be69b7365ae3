// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/enricher"
	"github.com/poiesic/enricher/batch"
	"github.com/poiesic/enricher/config"
	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/scheduler"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "enricher",
		Usage: "Asynchronous AI enrichment for collected documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{config.EnvConfigPath},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{config.EnvLogLevel},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the background scheduler until interrupted (SIGUSR1 pauses, SIGUSR2 resumes)",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "pause",
						Usage: "Start paused for a delay (none, 10m, 30m, 1h, 1d, forever or seconds)",
						Value: "none",
					},
				},
			},
			{
				Name:   "run",
				Usage:  "Run one batch of awaiting documents now",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "today",
						Usage: "Only documents published today",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum documents to process (0 uses the configured batch size)",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 1,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show document counts by enrichment status",
				Action: statsCommand,
			},
			{
				Name:   "health",
				Usage:  "Check every registered provider",
				Action: healthCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Overall timeout for the checks",
						Value: 30 * time.Second,
					},
				},
			},
			{
				Name:   "retry-failed",
				Usage:  "Move failed documents back to awaiting",
				Action: retryFailedCommand,
			},
			{
				Name:   "add",
				Usage:  "Store a document for enrichment",
				Action: addCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Document URL (also determines its id)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Document title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "body",
						Usage: "Document body; HTML is allowed",
					},
					&cli.StringFlag{
						Name:  "excerpt",
						Usage: "Short excerpt used when the body is empty",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source name",
					},
					&cli.TimestampFlag{
						Name:   "published",
						Usage:  "Publish time (RFC 3339)",
						Layout: time.RFC3339,
					},
				},
			},
		},
	}
}

func openService(c *cli.Context, opts ...enricher.ServiceOption) (*enricher.Service, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	svc, err := enricher.NewService(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

func serveCommand(c *cli.Context) error {
	delay, err := scheduler.ParseDelay(c.String("pause"))
	if err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	sched := svc.Scheduler()
	if err := sched.Pause(delay); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(signals)

	sched.Start()
	slog.Info("serving", "pid", os.Getpid())

	for sig := range signals {
		switch sig {
		case syscall.SIGUSR1:
			if err := sched.Pause(scheduler.DelayForever); err != nil {
				slog.Error("pause failed", "err", err)
			}
		case syscall.SIGUSR2:
			sched.Resume()
		default:
			slog.Info("shutting down", "signal", sig.String())
			if !sched.Stop() {
				slog.Warn("scheduler did not stop cleanly")
			}
			return nil
		}
	}
	return nil
}

func runCommand(c *cli.Context) error {
	monitor := batch.NewProgressMonitor(c.App.ErrWriter, c.Int("report-interval"))
	svc, err := openService(c, enricher.WithMonitor(monitor))
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var result *batch.Result
	if c.Bool("today") {
		result, err = svc.Processor().ProcessToday(ctx, c.Int("limit"))
	} else {
		result, err = svc.Scheduler().RunNow(ctx, c.Int("limit"))
	}
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Cycle %s: %d attempted, %d done, %d failed, %d deferred in %s\n",
		result.CycleID, result.Attempted, result.Succeeded, result.Failed, result.Deferred,
		result.Elapsed.Round(time.Millisecond))
	return nil
}

func statsCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.Statistics(c.Context)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "Total:       %d\n", stats.Total)
	fmt.Fprintf(w, "Awaiting:    %d\n", stats.Awaiting)
	fmt.Fprintf(w, "In progress: %d\n", stats.InProgress)
	fmt.Fprintf(w, "Done:        %d\n", stats.Done)
	fmt.Fprintf(w, "Failed:      %d\n", stats.Failed)
	fmt.Fprintf(w, "Completion:  %.2f%%\n", stats.CompletionRate)

	cp, err := svc.Processor().LastCycle(c.Context)
	if err != nil {
		return err
	}
	if cp != nil {
		fmt.Fprintf(w, "Last cycle:  %s at %s (%d done, %d failed, %d deferred)\n",
			cp.CycleID, cp.FinishedAt.Format(time.RFC3339), cp.Succeeded, cp.Failed, cp.Deferred)
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	registry := svc.Registry()
	statuses := registry.HealthCheckAll(ctx)
	if len(statuses) == 0 {
		return fmt.Errorf("no providers registered")
	}

	healthy := 0
	for _, st := range statuses {
		marker := " "
		if st.Provider == registry.Default() {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-8s %-9s %-20s %s", marker, st.Provider, st.Status, st.Model, st.Latency.Round(time.Millisecond))
		if st.Error != "" {
			line += "  " + st.Error
		}
		fmt.Fprintln(c.App.Writer, strings.TrimRight(line, " "))
		if st.Healthy() {
			healthy++
		}
	}
	if healthy == 0 {
		return fmt.Errorf("no healthy providers")
	}
	return nil
}

func retryFailedCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.Processor().ResetFailed(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Reset %d failed documents\n", n)
	return nil
}

// addCommand only opens storage; no providers are needed to store a document.
func addCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	repo, err := enricher.OpenRepository(c.Context, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	doc := &core.Document{
		URL:     c.String("url"),
		Title:   c.String("title"),
		Body:    c.String("body"),
		Excerpt: c.String("excerpt"),
		Source:  c.String("source"),
	}
	if ts := c.Timestamp("published"); ts != nil {
		doc.PublishedAt = *ts
	}

	added, err := repo.AddDocuments(c.Context, doc)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	if len(added) == 0 {
		fmt.Fprintf(c.App.Writer, "Document %d already exists\n", doc.Id)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Added document %d\n", doc.Id)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
