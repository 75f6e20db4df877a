package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"snassist-backend/lib/telemetry"
	"snassist-backend/lib/timezone"
	"snassist-backend/services/studentdata"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scrapes on an interval, stores snapshots and emails when something changed.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tel, err := telemetry.SetupFromEnv(ctx, "snassist-cli:watch")
		if err != nil {
			slog.WarnContext(ctx, "telemetry disabled", "err", err)
		} else {
			defer tel.Shutdown(context.WithoutCancel(ctx))
			telemetry.InstrumentPerfStats(ctx)
		}

		interval := time.Minute * 30
		if config.Interval != "" {
			interval, err = time.ParseDuration(config.Interval)
			if err != nil {
				log.Fatal(err)
			}
		}

		db, err := config.Store.OpenDB()
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		store, err := studentdata.NewStore(db)
		if err != nil {
			log.Fatal(err)
		}

		notifier := studentdata.NewNotifier(config.Smtp)
		// reuse the live session between polls instead of logging in
		// fresh every interval
		sessions := studentdata.NewSessionCache(config.Portal.BaseUrl, configCredentials{})

		for {
			watchOnce(ctx, sessions, store, notifier)

			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	},
}

type configCredentials struct{}

func (configCredentials) Lookup(ctx context.Context, login string) (string, error) {
	if login != config.Portal.Login {
		return "", fmt.Errorf("unknown login %q", login)
	}
	return config.Portal.Password, nil
}

func watchOnce(ctx context.Context, sessions studentdata.SessionCache, store studentdata.Store, notifier studentdata.Notifier) {
	client, err := sessions.Get(ctx, config.Portal.Login)
	if err != nil {
		slog.ErrorContext(ctx, "login failed", "err", err)
		return
	}
	graph, issues, err := studentdata.Fetch(ctx, client)
	if err != nil {
		slog.ErrorContext(ctx, "fetch failed", "err", err)
		return
	}
	for _, issue := range issues {
		slog.WarnContext(ctx, "fetch issue", "severity", issue.Severity.String(), "err", issue.Err)
	}

	previous, _, err := store.PullLatest(ctx, config.Portal.Login)
	if err != nil && !errors.Is(err, studentdata.ErrNoSnapshot) {
		slog.ErrorContext(ctx, "failed to read previous snapshot", "err", err)
		return
	}
	hadPrevious := err == nil

	if hadPrevious && config.NotifyEmail != "" {
		diff := studentdata.DiffGraphs(previous, graph)
		if !diff.Empty() {
			err = notifier.NotifyChanges(ctx, config.NotifyEmail, diff)
			if err != nil {
				slog.ErrorContext(ctx, "failed to send change notification", "err", err)
			}
		}
	}

	err = store.Push(ctx, config.Portal.Login, timezone.Now(), graph)
	if err != nil {
		slog.ErrorContext(ctx, "failed to store snapshot", "err", err)
	}
}
