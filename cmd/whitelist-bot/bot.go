// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/mcwhitelist/lib/card"
	"github.com/bureau-foundation/mcwhitelist/lib/chatcmd"
	"github.com/bureau-foundation/mcwhitelist/lib/clock"
	"github.com/bureau-foundation/mcwhitelist/lib/metrics"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/service"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

// syncFilter limits /sync to what the bot reads: timeline messages and
// membership changes. Everything else is dropped server-side.
var syncFilter = buildSyncFilter()

func buildSyncFilter() string {
	emptyTypes := []string{}
	filter := map[string]any{
		"room": map[string]any{
			"timeline": map[string]any{
				"types": []string{messaging.EventTypeMessage, messaging.EventTypeMember},
				"limit": 50,
			},
			"state": map[string]any{
				"types":                     []string{messaging.EventTypeMember},
				"lazy_load_members":         true,
				"include_redundant_members": false,
			},
			"ephemeral":    map[string]any{"types": emptyTypes},
			"account_data": map[string]any{"types": emptyTypes},
		},
		"presence":     map[string]any{"types": emptyTypes},
		"account_data": map[string]any{"types": emptyTypes},
	}
	data, err := json.Marshal(filter)
	if err != nil {
		panic("building sync filter: " + err.Error())
	}
	return string(data)
}

// bot routes sync events to the dispatcher and the departure handler.
// Events are handled one at a time in sync order.
type bot struct {
	session    messaging.Session
	dispatcher *chatcmd.Dispatcher
	handlers   *handlers

	// community is where departures are tracked. Zero disables
	// departure handling.
	community ref.RoomID

	logger *slog.Logger
}

// botConfig collects what newBot wires together.
type botConfig struct {
	Session messaging.Session
	Machine *whitelist.Machine
	Renders card.Renders
	Metrics *metrics.Metrics

	Prefix    string
	Cooldown  time.Duration
	Operator  ref.UserID
	Community ref.RoomID

	// Clock drives command cooldowns. Defaults to clock.Real().
	Clock  clock.Clock
	Logger *slog.Logger
}

// newBot registers the commands and builds the dispatcher.
func newBot(config botConfig) (*bot, error) {
	commandHandlers := &handlers{
		machine:  config.Machine,
		notifier: newNotifier(config.Session, config.Renders, config.Community, config.Metrics, config.Logger),
		renders:  config.Renders,
		metrics:  config.Metrics,
		logger:   config.Logger,
	}

	registry := chatcmd.NewRegistry()
	commandHandlers.register(registry, config.Prefix, config.Cooldown)
	dispatcher, err := chatcmd.NewDispatcher(registry, chatcmd.DispatcherConfig{
		Prefix:      config.Prefix,
		Bot:         config.Session.UserID(),
		Operator:    config.Operator,
		Permissions: powerLevelChecker{session: config.Session},
		Membership:  roomMembership{session: config.Session, community: config.Community},
		Clock:       config.Clock,
		Observer: func(name string, outcome chatcmd.Outcome) {
			if name == "" {
				name = "unknown"
			}
			config.Metrics.ObserveCommand(name, string(outcome))
		},
		Logger: config.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &bot{
		session:    config.Session,
		dispatcher: dispatcher,
		handlers:   commandHandlers,
		community:  config.Community,
		logger:     config.Logger,
	}, nil
}

func (b *bot) handleSync(ctx context.Context, response *messaging.SyncResponse) {
	service.AcceptInvites(ctx, b.session, response.Rooms.Invite, b.logger)

	rooms := make([]ref.RoomID, 0, len(response.Rooms.Join))
	for roomID := range response.Rooms.Join {
		rooms = append(rooms, roomID)
	}
	slices.SortFunc(rooms, func(a, b ref.RoomID) int { return strings.Compare(a.String(), b.String()) })

	for _, roomID := range rooms {
		for _, event := range response.Rooms.Join[roomID].Timeline.Events {
			if ctx.Err() != nil {
				return
			}
			b.handleEvent(ctx, roomID, event)
		}
	}
}

func (b *bot) handleEvent(ctx context.Context, roomID ref.RoomID, event messaging.Event) {
	switch event.Type {
	case messaging.EventTypeMessage:
		b.handleMessage(ctx, roomID, event)
	case messaging.EventTypeMember:
		b.handleMember(ctx, roomID, event)
	}
}

func (b *bot) handleMessage(ctx context.Context, roomID ref.RoomID, event messaging.Event) {
	if event.Sender == b.session.UserID() {
		return
	}
	// Notices are bot output by convention; answering them loops bots.
	if event.ContentString("msgtype") != "m.text" {
		return
	}

	message := commandMessage(roomID, event)
	reply, ok := b.dispatcher.Dispatch(ctx, message)
	if !ok {
		return
	}
	if _, err := b.session.SendMessage(ctx, roomID, replyContent(reply).InReplyTo(event.EventID)); err != nil {
		b.logger.Error("sending reply",
			"room_id", roomID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}

// commandMessage builds the dispatcher's view of a text message. When
// the sender picked users from the mention autocomplete, the plain body
// holds their display names and only the HTML body names them, so the
// command text is taken from the HTML with each pill replaced by its
// user ID.
func commandMessage(roomID ref.RoomID, event messaging.Event) chatcmd.Message {
	message := chatcmd.Message{
		Room:     roomID,
		Sender:   event.Sender,
		EventID:  event.EventID,
		Body:     event.ContentString("body"),
		Mentions: event.MentionedUsers(),
	}
	if event.ContentString("format") != messaging.FormatHTML {
		return message
	}
	text, pills := messaging.PillText(event.ContentString("formatted_body"))
	if len(pills) == 0 {
		return message
	}
	message.Body = text
	for _, pill := range pills {
		if !slices.Contains(message.Mentions, pill) {
			message.Mentions = append(message.Mentions, pill)
		}
	}
	return message
}

func (b *bot) handleMember(ctx context.Context, roomID ref.RoomID, event messaging.Event) {
	if b.community.IsZero() || roomID != b.community || event.StateKey == nil {
		return
	}
	membership := event.ContentString("membership")
	if membership != messaging.MembershipLeave && membership != messaging.MembershipBan {
		return
	}
	member, err := ref.ParseUserID(*event.StateKey)
	if err != nil {
		b.logger.Warn("member event with invalid state key", "state_key", *event.StateKey, "event_id", event.EventID)
		return
	}
	if member == b.session.UserID() {
		return
	}
	b.logger.Info("member left community", "member", member, "membership", membership)
	b.handlers.departed(ctx, member)
}

// replyContent renders a dispatcher reply as an m.notice. The body is
// the plain text with any detail appended; an HTML body is added when
// the reply has Markdown or detail.
func replyContent(reply chatcmd.Reply) messaging.MessageContent {
	body := reply.Text
	if reply.Detail != "" {
		body += "\n\n" + reply.Detail
	}
	if reply.Markdown == "" && reply.Detail == "" {
		return messaging.NewNotice(body)
	}

	markdown := reply.Markdown
	if markdown == "" {
		markdown = card.Escape(reply.Text)
	}
	if reply.Detail != "" {
		markdown += "\n\n> " + card.Escape(reply.Detail)
	}
	html, err := card.MarkdownToHTML(markdown)
	if err != nil {
		return messaging.NewNotice(body)
	}
	return messaging.NewHTMLNotice(body, html)
}
