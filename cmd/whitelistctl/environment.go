// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mcwhitelist/lib/cli"
	"github.com/bureau-foundation/mcwhitelist/lib/config"
	"github.com/bureau-foundation/mcwhitelist/lib/identity"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist/store"
)

// commandTimeout bounds a non-interactive command, including identity
// lookups.
const commandTimeout = 30 * time.Second

// environment is what commands write to and connect with. Tests
// replace the writers and the HTTP client.
type environment struct {
	stdout     cli.Output
	stderr     io.Writer
	logger     *slog.Logger
	httpClient *http.Client
}

func newEnvironment() *environment {
	return &environment{
		stdout: cli.Stdout(),
		stderr: os.Stderr,
		logger: cli.NewCommandLogger(),
	}
}

// storeFlags locates the bot's config, and through it the store.
type storeFlags struct {
	configPath string
}

func (f *storeFlags) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.configPath, "config", "c", "",
		"bot config file (default $"+config.EnvironmentVariable+")")
}

// workspace is an opened store with the machine that edits it.
type workspace struct {
	config   *config.Config
	records  *store.File
	identity *identity.Client
	machine  *whitelist.Machine
}

func (e *environment) open(flags storeFlags) (*workspace, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	format, err := store.FormatByName(cfg.Store.Format)
	if err != nil {
		return nil, err
	}
	records, err := store.New(store.Config{Path: cfg.Store.Path, Format: format, Logger: e.logger})
	if err != nil {
		return nil, err
	}
	identityClient, err := identity.NewClient(identity.Config{
		APIURL:     cfg.Identity.APIURL,
		RenderURL:  cfg.Identity.RenderURL,
		Timeout:    cfg.Identity.Timeout.Std(),
		HTTPClient: e.httpClient,
		Logger:     e.logger,
	})
	if err != nil {
		return nil, err
	}
	machine, err := whitelist.New(records, identityClient, whitelist.Config{
		StaffRoom: cfg.RequestRoom(),
		Logger:    e.logger,
	})
	if err != nil {
		return nil, err
	}
	return &workspace{config: cfg, records: records, identity: identityClient, machine: machine}, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// parseOwner accepts a user ID or matrix.to link.
func parseOwner(raw string) (ref.UserID, error) {
	owner, ok := ref.ParseMention(raw)
	if !ok {
		return ref.UserID{}, &cli.UsageError{Message: fmt.Sprintf("%q is not a Matrix user ID (expected @user:server)", raw)}
	}
	return owner, nil
}

// exactArgs checks the positional argument count.
func exactArgs(args []string, names ...string) error {
	if len(args) < len(names) {
		return &cli.UsageError{Message: fmt.Sprintf("missing argument <%s>", names[len(args)])}
	}
	if len(args) > len(names) {
		return &cli.UsageError{Message: fmt.Sprintf("unexpected argument %q", args[len(names)])}
	}
	return nil
}
