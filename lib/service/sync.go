// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/mcwhitelist/lib/clock"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

// SyncConfig configures the Matrix /sync long-poll loop.
type SyncConfig struct {
	// Filter is the inline JSON filter restricting which events the
	// homeserver returns.
	Filter string

	// Timeout is the long-poll timeout in milliseconds. The homeserver
	// holds the connection open this long when nothing happens.
	// Default: 30000.
	Timeout int

	// MaxBackoff caps the wait between retries after a failed /sync.
	// Backoff starts at one second and doubles. Default: 30 seconds.
	MaxBackoff time.Duration

	// Clock drives the backoff. Default: clock.Real().
	Clock clock.Clock

	// Position, when set, records each token after its response has
	// been handled. A failed save is logged and the loop continues.
	Position *SyncPosition

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// SyncHandler is called for each /sync response. The next poll starts
// after it returns.
type SyncHandler func(ctx context.Context, response *messaging.SyncResponse)

// InitialSync performs the first /sync with no since token. It returns
// the next_batch token for the incremental loop and the response, whose
// timeline holds history the bot has already seen on a previous run.
func InitialSync(ctx context.Context, session messaging.Session, filter string) (string, *messaging.SyncResponse, error) {
	response, err := session.Sync(ctx, messaging.SyncOptions{Filter: filter})
	if err != nil {
		return "", nil, fmt.Errorf("initial sync: %w", err)
	}
	return response.NextBatch, response, nil
}

// RunSyncLoop polls /sync from sinceToken, calling handler for each
// response, until ctx is cancelled (returns nil) or the homeserver
// rejects the access token (returns that error). Other failures are
// retried with exponential backoff.
func RunSyncLoop(ctx context.Context, session messaging.Session, config SyncConfig, sinceToken string, handler SyncHandler) error {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30000
	}
	maxBackoff := config.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 30 * time.Second
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		response, err := session.Sync(ctx, messaging.SyncOptions{
			Since:      sinceToken,
			Timeout:    timeout,
			SetTimeout: true,
			Filter:     config.Filter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if messaging.IsAuthError(err) {
				return fmt.Errorf("sync: %w", err)
			}
			logger.Error("sync failed, retrying", "error", err, "backoff", backoff)
			if closer, ok := session.(interface{ CloseIdleConnections() }); ok {
				closer.CloseIdleConnections()
			}
			select {
			case <-ctx.Done():
				return nil
			case <-clk.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = time.Second
		sinceToken = response.NextBatch
		handler(ctx, response)
		if config.Position != nil {
			if err := config.Position.Save(sinceToken); err != nil {
				logger.Warn("saving sync position", "path", config.Position.Path(), "error", err)
			}
		}
	}
}

// AcceptInvites joins every room in invites and returns the rooms
// joined. Failures are logged and skipped.
func AcceptInvites(ctx context.Context, session messaging.Session, invites map[ref.RoomID]messaging.InvitedRoom, logger *slog.Logger) []ref.RoomID {
	var accepted []ref.RoomID
	for roomID := range invites {
		logger.Info("accepting room invite", "room_id", roomID)
		if _, err := session.JoinRoom(ctx, roomID); err != nil {
			logger.Error("failed to accept room invite",
				"room_id", roomID,
				"error", err,
			)
			continue
		}
		accepted = append(accepted, roomID)
	}
	return accepted
}
