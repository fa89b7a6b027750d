// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package card

import (
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
)

// Card text shown to staff and players.
const (
	RequestDescription   = "New whitelist request, when completed, run the setstatus command."
	UnrequestDescription = "Unwhitelist request"
	HistoryHeading       = "Username History:"
	RenderCredit         = "Thanks to Crafatar for providing the skin renders."
	UnknownMember        = "Unknown"
)

// Renders produces render-service URLs for an account.
type Renders interface {
	AvatarURL(accountID string) string
	BodyRenderURL(accountID string) string
}

// ForIntent builds the staff card for a whitelist or unwhitelist
// request intent.
func ForIntent(intent whitelist.Intent, renders Renders) Card {
	description, requestType := RequestDescription, "Whitelist"
	if intent.Kind == whitelist.IntentUnwhitelistRequest {
		description, requestType = UnrequestDescription, "Unwhitelist"
	}
	return Card{
		Title:       intent.Title,
		Description: description,
		Fields: []Field{
			memberField(intent.Member),
			{Name: "Type", Value: requestType},
		},
		Thumbnail: renders.AvatarURL(intent.AccountID),
	}
}

// ForProfile builds the player info card. The name history is listed
// newest first.
func ForProfile(profile *whitelist.Profile, renders Renders) Card {
	names := make([]string, 0, len(profile.History))
	for index := len(profile.History) - 1; index >= 0; index-- {
		names = append(names, profile.History[index].Name)
	}

	member := Field{Name: "Matrix User", Value: UnknownMember}
	if !profile.Owner.IsZero() {
		member = memberField(profile.Owner)
	}

	card := Card{
		Title: profile.Name,
		List:  &List{Heading: HistoryHeading, Items: names},
		Fields: []Field{
			{Name: "UUID", Value: profile.AccountID},
			member,
		},
		Thumbnail: renders.AvatarURL(profile.AccountID),
		Image:     renders.BodyRenderURL(profile.AccountID),
		Footer:    RenderCredit,
	}
	if profile.Record != nil {
		card.Fields = append(card.Fields, Field{Name: "Status", Value: profile.Record.State()})
	}
	return card
}

func memberField(member ref.UserID) Field {
	return Field{Name: "Matrix User", Value: member.String(), Link: ref.Pill(member)}
}
