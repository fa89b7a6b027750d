// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package whitelist

import "github.com/bureau-foundation/mcwhitelist/lib/ref"

// IntentKind says how an Intent is delivered.
type IntentKind string

const (
	// IntentWhitelistRequest is a staff card asking for the account to
	// be added to the server whitelist.
	IntentWhitelistRequest IntentKind = "whitelist_request"

	// IntentUnwhitelistRequest is a staff card asking for an approved
	// account to be removed from the server whitelist.
	IntentUnwhitelistRequest IntentKind = "unwhitelist_request"

	// IntentStatusChanged is a direct message telling the member their
	// approval state changed.
	IntentStatusChanged IntentKind = "status_changed"

	// IntentForcedAdd is a direct message telling the member staff
	// filed a request on their behalf.
	IntentForcedAdd IntentKind = "forced_add"

	// IntentSetDisplayName asks for the member's display name to be set
	// to their game username. Failure is expected and harmless.
	IntentSetDisplayName IntentKind = "set_display_name"
)

// Intent is a notification the caller should attempt after a
// transition.
type Intent struct {
	Kind IntentKind

	// Room is the staff room for card intents.
	Room ref.RoomID

	// Member is the record owner the intent concerns.
	Member ref.UserID

	// Title is the game username, or the account id when the name
	// could not be resolved.
	Title string

	AccountID string

	// Approved is the new state for IntentStatusChanged.
	Approved bool

	// Actor is the staff member behind IntentForcedAdd.
	Actor ref.UserID
}

// Staff reports whether the intent is a staff room card.
func (i Intent) Staff() bool {
	return i.Kind == IntentWhitelistRequest || i.Kind == IntentUnwhitelistRequest
}

// StaffIntents returns the staff card intents in intents.
func StaffIntents(intents []Intent) []Intent {
	var staff []Intent
	for _, intent := range intents {
		if intent.Staff() {
			staff = append(staff, intent)
		}
	}
	return staff
}
