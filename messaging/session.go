// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// Session is the set of authenticated Matrix operations the bot uses.
// *DirectSession is the production implementation.
type Session interface {
	// UserID returns the session's own user ID.
	UserID() ref.UserID

	// WhoAmI validates the access token and returns the user ID it
	// belongs to.
	WhoAmI(ctx context.Context) (ref.UserID, error)

	// Sync performs one /sync request.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)

	// JoinRoom joins a room by ID.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)

	// CreateRoom creates a room.
	CreateRoom(ctx context.Context, request CreateRoomRequest) (*CreateRoomResponse, error)

	// SendMessage sends an m.room.message. Returns the event ID.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (string, error)

	// GetStateEvent fetches a state event's raw content. A missing
	// event is a *MatrixError with code M_NOT_FOUND.
	GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType, stateKey string) (json.RawMessage, error)

	// SendStateEvent writes a state event. Returns the event ID.
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType, stateKey string, content any) (string, error)

	// GetAccountData fetches the session user's global account data of
	// the given type. Missing data is M_NOT_FOUND.
	GetAccountData(ctx context.Context, dataType string) (json.RawMessage, error)

	// SetAccountData replaces the session user's global account data.
	SetAccountData(ctx context.Context, dataType string, content any) error
}

// Compile-time check: *DirectSession implements Session.
var _ Session = (*DirectSession)(nil)
