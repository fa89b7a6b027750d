// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import "github.com/bureau-foundation/mcwhitelist/lib/ref"

// defaultModeratorLevel is the level Matrix assigns to kick,
// ban, and state_default when the power levels event omits them.
const defaultModeratorLevel = 50

// PowerLevels is the content of an m.room.power_levels event. Optional
// thresholds are pointers so an omitted field takes the protocol default
// rather than zero.
type PowerLevels struct {
	Ban           *int           `json:"ban,omitempty"`
	Kick          *int           `json:"kick,omitempty"`
	Invite        *int           `json:"invite,omitempty"`
	Redact        *int           `json:"redact,omitempty"`
	Events        map[string]int `json:"events,omitempty"`
	EventsDefault int            `json:"events_default"`
	StateDefault  *int           `json:"state_default,omitempty"`
	Users         map[string]int `json:"users,omitempty"`
	UsersDefault  int            `json:"users_default"`
}

// UserLevel returns the power level of user.
func (p *PowerLevels) UserLevel(user ref.UserID) int {
	if level, ok := p.Users[user.String()]; ok {
		return level
	}
	return p.UsersDefault
}

// EventLevel returns the level required to send eventType. state
// selects the state_default fallback instead of events_default.
func (p *PowerLevels) EventLevel(eventType string, state bool) int {
	if level, ok := p.Events[eventType]; ok {
		return level
	}
	if state {
		return orDefault(p.StateDefault)
	}
	return p.EventsDefault
}

// KickLevel returns the level required to kick.
func (p *PowerLevels) KickLevel() int { return orDefault(p.Kick) }

// BanLevel returns the level required to ban.
func (p *PowerLevels) BanLevel() int { return orDefault(p.Ban) }

// StateLevel returns state_default.
func (p *PowerLevels) StateLevel() int { return orDefault(p.StateDefault) }

func orDefault(level *int) int {
	if level == nil {
		return defaultModeratorLevel
	}
	return *level
}
