// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mcwhitelist/lib/config"
	"github.com/bureau-foundation/mcwhitelist/lib/credentials"
	"github.com/bureau-foundation/mcwhitelist/lib/identity"
	"github.com/bureau-foundation/mcwhitelist/lib/metrics"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/service"
	"github.com/bureau-foundation/mcwhitelist/lib/version"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist/store"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flags := pflag.NewFlagSet("whitelist-bot", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("whitelist-bot %s\n", version.Info())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	creds, err := credentials.Load(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := service.Connect(ctx, creds, service.ConnectConfig{
		HomeserverURL: cfg.Homeserver,
		Logger:        logger,
	})
	if err != nil {
		creds.Close()
		return err
	}
	defer session.Close()
	logger.Info("matrix session valid", "user_id", session.UserID())

	observer := metrics.New()

	identityClient, err := identity.NewClient(identity.Config{
		APIURL:    cfg.Identity.APIURL,
		RenderURL: cfg.Identity.RenderURL,
		Timeout:   cfg.Identity.Timeout.Std(),
		Logger:    logger,
		Observe:   observer.ObserveIdentityLatency,
	})
	if err != nil {
		return err
	}

	format, err := store.FormatByName(cfg.Store.Format)
	if err != nil {
		return err
	}
	records, err := store.New(store.Config{Path: cfg.Store.Path, Format: format, Logger: logger})
	if err != nil {
		return err
	}
	if err := records.Init(ctx); err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}

	machine, err := whitelist.New(records, identityClient, whitelist.Config{
		StaffRoom: cfg.RequestRoom(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	stats, err := machine.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading store: %w", err)
	}
	observer.SetRecords(stats.Pending, stats.Approved)
	logger.Info("store loaded", "path", records.Path(), "pending", stats.Pending, "approved", stats.Approved)

	community := cfg.CommunityRoom()
	whitelistBot, err := newBot(botConfig{
		Session:   session,
		Machine:   machine,
		Renders:   identityClient,
		Metrics:   observer,
		Prefix:    cfg.CommandPrefix,
		Cooldown:  cfg.Commands.WhitelistCooldown.Std(),
		Operator:  cfg.OperatorID(),
		Community: community,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	joinConfiguredRooms(ctx, session, logger, cfg.RequestRoom(), community)

	metricsDone := make(chan error, 1)
	if cfg.Metrics.Listen != "" {
		go func() { metricsDone <- observer.Serve(ctx, cfg.Metrics.Listen, logger, nil) }()
	} else {
		close(metricsDone)
	}

	// A saved position resumes where the previous run stopped, so
	// departures and commands from the downtime are handled now. On a
	// first run the history predates the bot and only pending invites
	// are acted on.
	position := service.NewSyncPosition(cfg.StateDir)
	sinceToken, err := position.Load()
	if err != nil {
		return err
	}
	if sinceToken == "" {
		var initial *messaging.SyncResponse
		sinceToken, initial, err = service.InitialSync(ctx, session, syncFilter)
		if err != nil {
			return err
		}
		service.AcceptInvites(ctx, session, initial.Rooms.Invite, logger)
		if err := position.Save(sinceToken); err != nil {
			logger.Warn("saving sync position", "path", position.Path(), "error", err)
		}
	} else {
		logger.Info("resuming sync from saved position", "path", position.Path())
	}

	logger.Info("whitelist bot running",
		"prefix", cfg.CommandPrefix,
		"request_room", cfg.RequestRoom(),
		"community_room", community,
		"version", version.Info(),
	)

	syncErr := service.RunSyncLoop(ctx, session, service.SyncConfig{
		Filter:   syncFilter,
		Position: position,
		Logger:   logger,
	}, sinceToken, whitelistBot.handleSync)

	stop()
	if err := <-metricsDone; err != nil {
		logger.Error("metrics server failed", "error", err)
	}
	if syncErr != nil {
		return syncErr
	}
	logger.Info("shutting down")
	return nil
}

// loadConfig reads the file named by --config, or by the environment
// when the flag is absent, and validates it.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// joinConfiguredRooms makes sure the bot is in the staff and community
// rooms. Joining a room the bot is already in is a no-op.
func joinConfiguredRooms(ctx context.Context, session messaging.Session, logger *slog.Logger, rooms ...ref.RoomID) {
	for _, room := range rooms {
		if room.IsZero() {
			continue
		}
		if _, err := session.JoinRoom(ctx, room); err != nil {
			logger.Warn("could not join configured room", "room_id", room, "error", err)
		}
	}
}
