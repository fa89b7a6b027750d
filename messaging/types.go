// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// Event types the bot reads or writes.
const (
	EventTypeMessage     = "m.room.message"
	EventTypeMember      = "m.room.member"
	EventTypePowerLevels = "m.room.power_levels"
	AccountDataDirect    = "m.direct"
)

// Membership values of m.room.member events.
const (
	MembershipJoin   = "join"
	MembershipInvite = "invite"
	MembershipLeave  = "leave"
	MembershipBan    = "ban"
)

// MessageContent is the content of an m.room.message event. Format and
// FormattedBody carry the HTML rendering of Body when set.
type MessageContent struct {
	MsgType       string     `json:"msgtype"`
	Body          string     `json:"body"`
	Format        string     `json:"format,omitempty"`
	FormattedBody string     `json:"formatted_body,omitempty"`
	Mentions      *Mentions  `json:"m.mentions,omitempty"`
	RelatesTo     *RelatesTo `json:"m.relates_to,omitempty"`
}

// Mentions lists the users a message addresses, in m.mentions form.
type Mentions struct {
	UserIDs []ref.UserID `json:"user_ids,omitempty"`
}

// RelatesTo relates a message to an earlier event.
type RelatesTo struct {
	InReplyTo *InReplyTo `json:"m.in_reply_to,omitempty"`
}

// InReplyTo references the event being replied to.
type InReplyTo struct {
	EventID string `json:"event_id"`
}

// NewNotice creates a plain m.notice message. Bots send notices so
// other bots do not answer them.
func NewNotice(body string) MessageContent {
	return MessageContent{MsgType: "m.notice", Body: body}
}

// NewHTMLNotice creates an m.notice with an HTML formatted body.
func NewHTMLNotice(body, html string) MessageContent {
	return MessageContent{
		MsgType:       "m.notice",
		Body:          body,
		Format:        FormatHTML,
		FormattedBody: html,
	}
}

// InReplyTo returns content marked as a reply to eventID. An empty
// eventID leaves content unchanged.
func (c MessageContent) InReplyTo(eventID string) MessageContent {
	if eventID != "" {
		c.RelatesTo = &RelatesTo{InReplyTo: &InReplyTo{EventID: eventID}}
	}
	return c
}

// Event is a Matrix event as delivered by /sync.
type Event struct {
	EventID        string         `json:"event_id"`
	Type           string         `json:"type"`
	Sender         ref.UserID     `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
	StateKey       *string        `json:"state_key,omitempty"`
}

// ContentString returns a string field of the event content, or "" when
// the field is missing or not a string.
func (e Event) ContentString(key string) string {
	value, _ := e.Content[key].(string)
	return value
}

// SyncOptions controls the /sync request.
type SyncOptions struct {
	Since      string // next_batch token from the previous sync; empty for initial sync
	Timeout    int    // long-poll timeout in milliseconds
	SetTimeout bool   // send Timeout even when zero
	Filter     string // filter ID or inline JSON filter
}

// SyncResponse is the top-level response from /sync.
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection groups per-room sync data by the bot's membership.
// encoding/json validates the room ID keys through ref.RoomID's
// TextUnmarshaler.
type RoomsSection struct {
	Join   map[ref.RoomID]JoinedRoom  `json:"join,omitempty"`
	Invite map[ref.RoomID]InvitedRoom `json:"invite,omitempty"`
	Leave  map[ref.RoomID]LeftRoom    `json:"leave,omitempty"`
}

// JoinedRoom is sync data for a room the bot has joined.
type JoinedRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// InvitedRoom is sync data for a room the bot was invited to.
type InvitedRoom struct {
	InviteState StateSection `json:"invite_state"`
}

// LeftRoom is sync data for a room the bot has left.
type LeftRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// TimelineSection holds timeline events.
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch"`
	Limited   bool    `json:"limited"`
}

// StateSection holds state events.
type StateSection struct {
	Events []Event `json:"events"`
}

// CreateRoomRequest holds parameters for creating a room.
type CreateRoomRequest struct {
	Name     string       `json:"name,omitempty"`
	Preset   string       `json:"preset,omitempty"`
	IsDirect bool         `json:"is_direct,omitempty"`
	Invite   []ref.UserID `json:"invite,omitempty"`
}

// CreateRoomResponse is returned by CreateRoom.
type CreateRoomResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// SendEventResponse is returned by the send and state endpoints.
type SendEventResponse struct {
	EventID string `json:"event_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// MemberContent is the content of an m.room.member state event.
type MemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// DirectRooms is the m.direct account data: user ID to the direct
// message rooms shared with that user.
type DirectRooms map[string][]ref.RoomID
