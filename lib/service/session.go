// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bureau-foundation/mcwhitelist/lib/credentials"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

// ConnectConfig configures Connect.
type ConnectConfig struct {
	// HomeserverURL overrides the URL recorded with the credentials.
	// One of the two must be set.
	HomeserverURL string

	// HTTPClient is optional.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Connect creates a session from creds and validates it with WhoAmI.
// The session takes ownership of creds.Token; the caller must Close the
// session. A token that belongs to another user than creds.UserID is an
// error.
func Connect(ctx context.Context, creds *credentials.Credentials, config ConnectConfig) (*messaging.DirectSession, error) {
	homeserver := config.HomeserverURL
	if homeserver == "" {
		homeserver = creds.HomeserverURL
	}
	if homeserver == "" {
		return nil, fmt.Errorf("no homeserver configured for %s", creds.UserID)
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: homeserver,
		HTTPClient:    config.HTTPClient,
		Logger:        config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	session := client.Session(creds.UserID, creds.Token)
	userID, err := session.WhoAmI(ctx)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("validating matrix session: %w", err)
	}
	if userID != creds.UserID {
		session.Close()
		return nil, fmt.Errorf("access token belongs to %s, not %s", userID, creds.UserID)
	}
	return session, nil
}
