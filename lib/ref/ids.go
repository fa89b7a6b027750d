// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// UserID is a validated Matrix user ID such as "@steve:example.org".
// The zero value is not a valid ID; check with IsZero.
type UserID struct {
	id string
}

// ParseUserID validates the "@localpart:server" shape.
func ParseUserID(raw string) (UserID, error) {
	if _, _, err := splitSigil(raw, '@', "user ID"); err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

// MustParseUserID is ParseUserID for constants and tests.
func MustParseUserID(raw string) UserID {
	userID, err := ParseUserID(raw)
	if err != nil {
		panic(err)
	}
	return userID
}

func (u UserID) String() string { return u.id }

// IsZero reports whether the UserID is unset.
func (u UserID) IsZero() bool { return u.id == "" }

// Localpart returns the part between '@' and ':'.
func (u UserID) Localpart() string {
	localpart, _, _ := splitSigil(u.id, '@', "user ID")
	return localpart
}

// Server returns the homeserver name after the first ':'.
func (u UserID) Server() string {
	_, server, _ := splitSigil(u.id, '@', "user ID")
	return server
}

// MarshalText implements encoding.TextMarshaler.
func (u UserID) MarshalText() ([]byte, error) {
	return []byte(u.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields
// the zero value.
func (u *UserID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// RoomID is a validated Matrix room ID such as "!abc123:example.org".
// Room IDs are server-assigned; the bot only ever parses them.
type RoomID struct {
	id string
}

// ParseRoomID validates the "!opaque:server" shape.
func ParseRoomID(raw string) (RoomID, error) {
	if _, _, err := splitSigil(raw, '!', "room ID"); err != nil {
		return RoomID{}, err
	}
	return RoomID{id: raw}, nil
}

// MustParseRoomID is ParseRoomID for constants and tests.
func MustParseRoomID(raw string) RoomID {
	roomID, err := ParseRoomID(raw)
	if err != nil {
		panic(err)
	}
	return roomID
}

func (r RoomID) String() string { return r.id }

// IsZero reports whether the RoomID is unset.
func (r RoomID) IsZero() bool { return r.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (r RoomID) MarshalText() ([]byte, error) {
	return []byte(r.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields
// the zero value.
func (r *RoomID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = RoomID{}
		return nil
	}
	parsed, err := ParseRoomID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// splitSigil parses "<sigil>local:server". The server part may itself
// contain ':' (a port), so only the first colon separates.
func splitSigil(raw string, sigil byte, kind string) (string, string, error) {
	if len(raw) < 2 || raw[0] != sigil {
		return "", "", fmt.Errorf("invalid %s %q: must start with %c", kind, raw, sigil)
	}
	colon := strings.IndexByte(raw, ':')
	if colon < 0 {
		return "", "", fmt.Errorf("invalid %s %q: missing :server", kind, raw)
	}
	if colon == 1 {
		return "", "", fmt.Errorf("invalid %s %q: empty local part", kind, raw)
	}
	if colon == len(raw)-1 {
		return "", "", fmt.Errorf("invalid %s %q: empty server", kind, raw)
	}
	if strings.ContainsAny(raw, " \t\n") {
		return "", "", fmt.Errorf("invalid %s %q: contains whitespace", kind, raw)
	}
	return raw[1:colon], raw[colon+1:], nil
}
