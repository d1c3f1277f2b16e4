// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package app wires configuration, storage, mail, the state machine and the
// Discord gateway together and runs the process lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/crowdward/backersbot/internal/bot"
	"github.com/crowdward/backersbot/internal/config"
	"github.com/crowdward/backersbot/internal/database"
	"github.com/crowdward/backersbot/internal/discord"
	"github.com/crowdward/backersbot/internal/health"
	"github.com/crowdward/backersbot/internal/i18n"
	"github.com/crowdward/backersbot/internal/repository"
	"github.com/crowdward/backersbot/internal/services/mailer"
	"github.com/crowdward/backersbot/internal/services/verification"
)

// Run is the cli action for the bot command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("loading translations: %w", err)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.New(db)

	notifier, err := mailer.New(&cfg.Mail)
	if err != nil {
		return fmt.Errorf("configuring mail backend: %w", err)
	}

	adapter, err := discord.New(cfg.Discord.Token, cfg.Discord.GuildID)
	if err != nil {
		return err
	}

	svc := verification.New(repo, notifier, adapter, cfg.Discord.InviteURL)
	dispatcher := bot.NewDispatcher(svc, adapter, cfg.Discord.Prefix, cfg.CommandTimeout)

	if err := adapter.Start(dispatcher); err != nil {
		return fmt.Errorf("connecting to discord: %w", err)
	}
	defer func() { _ = adapter.Close() }()

	var ops *health.Server
	if cfg.Health.Addr != "" {
		ops = health.New(repo)
		go func() {
			if err := ops.Start(cfg.Health.Addr); err != nil {
				slog.Error("ops listener failed", "error", err)
			}
		}()
		slog.Info("ops endpoints listening", "addr", cfg.Health.Addr)
	}

	slog.Info("backersbot is online", "guild_id", cfg.Discord.GuildID, "prefix", cfg.Discord.Prefix)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			slog.Warn("ops listener shutdown failed", "error", err)
		}
	}
	return nil
}
