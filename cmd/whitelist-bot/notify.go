// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/mcwhitelist/lib/card"
	"github.com/bureau-foundation/mcwhitelist/lib/metrics"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

// ErrUndeliverable is returned for a direct message that could not be
// delivered. The transition it belongs to has already been persisted.
var ErrUndeliverable = errors.New("notification undeliverable")

// errForeignMember is returned for a display name change on anyone but
// the bot. Homeservers only let a member edit their own member event,
// so no request is made and the reply asks the member to do it.
var errForeignMember = errors.New("display name belongs to another member")

// Delivery is the result of one intent.
type Delivery struct {
	Intent whitelist.Intent
	Err    error
}

// Delivered reports whether the intent was carried out.
func (d Delivery) Delivered() bool { return d.Err == nil }

// notifier carries out transition intents over the Matrix session.
// Nothing is retried: a failed intent is reported and dropped.
type notifier struct {
	session   messaging.Session
	renders   card.Renders
	community ref.RoomID
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu     sync.Mutex
	direct map[ref.UserID]ref.RoomID
}

func newNotifier(session messaging.Session, renders card.Renders, community ref.RoomID, observer *metrics.Metrics, logger *slog.Logger) *notifier {
	return &notifier{
		session:   session,
		renders:   renders,
		community: community,
		metrics:   observer,
		logger:    logger,
		direct:    make(map[ref.UserID]ref.RoomID),
	}
}

// Deliver attempts every intent in order. origin is the room the
// triggering command was sent in; display names are set there unless a
// community room is configured.
func (n *notifier) Deliver(ctx context.Context, origin ref.RoomID, intents []whitelist.Intent) []Delivery {
	deliveries := make([]Delivery, 0, len(intents))
	for _, intent := range intents {
		err := n.deliver(ctx, origin, intent)
		outcome := "delivered"
		if err != nil {
			outcome = "failed"
			level := slog.LevelWarn
			if intent.Kind == whitelist.IntentSetDisplayName && (errors.Is(err, errForeignMember) || messaging.IsMatrixError(err, messaging.ErrCodeForbidden)) {
				outcome, level = "forbidden", slog.LevelInfo
			}
			n.logger.Log(ctx, level, "notification not delivered",
				"kind", string(intent.Kind),
				"member", intent.Member,
				"error", err,
			)
		}
		n.metrics.ObserveNotification(string(intent.Kind), outcome)
		deliveries = append(deliveries, Delivery{Intent: intent, Err: err})
	}
	return deliveries
}

func (n *notifier) deliver(ctx context.Context, origin ref.RoomID, intent whitelist.Intent) error {
	switch intent.Kind {
	case whitelist.IntentWhitelistRequest, whitelist.IntentUnwhitelistRequest:
		return n.sendCard(ctx, intent.Room, card.ForIntent(intent, n.renders))
	case whitelist.IntentStatusChanged:
		return n.sendDirect(ctx, intent.Member, statusChangedText(intent.Approved))
	case whitelist.IntentForcedAdd:
		return n.sendDirect(ctx, intent.Member, forcedAddText+intent.Title)
	case whitelist.IntentSetDisplayName:
		if intent.Member != n.session.UserID() {
			return errForeignMember
		}
		room := n.community
		if room.IsZero() {
			room = origin
		}
		return messaging.SetMemberDisplayName(ctx, n.session, room, intent.Member, intent.Title)
	default:
		return fmt.Errorf("unknown intent kind %q", intent.Kind)
	}
}

func (n *notifier) sendCard(ctx context.Context, room ref.RoomID, staffCard card.Card) error {
	html, err := staffCard.HTML()
	if err != nil {
		return err
	}
	_, err = n.session.SendMessage(ctx, room, messaging.NewHTMLNotice(staffCard.Plain(), html))
	return err
}

// sendDirect messages member in their direct room, creating one when
// none is known. A failed send forgets the cached room so the next
// attempt looks it up again.
func (n *notifier) sendDirect(ctx context.Context, member ref.UserID, text string) error {
	room, err := n.directRoom(ctx, member)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUndeliverable, err)
	}
	if _, err := n.session.SendMessage(ctx, room, messaging.NewNotice(text)); err != nil {
		n.mu.Lock()
		delete(n.direct, member)
		n.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrUndeliverable, err)
	}
	return nil
}

func (n *notifier) directRoom(ctx context.Context, member ref.UserID) (ref.RoomID, error) {
	n.mu.Lock()
	room, ok := n.direct[member]
	n.mu.Unlock()
	if ok {
		return room, nil
	}

	rooms, err := n.directRooms(ctx)
	if err != nil {
		return ref.RoomID{}, err
	}
	if existing := rooms[member.String()]; len(existing) > 0 {
		room = existing[len(existing)-1]
	} else {
		response, err := n.session.CreateRoom(ctx, messaging.CreateRoomRequest{
			Preset:   "trusted_private_chat",
			IsDirect: true,
			Invite:   []ref.UserID{member},
		})
		if err != nil {
			return ref.RoomID{}, fmt.Errorf("creating direct room: %w", err)
		}
		room = response.RoomID
		rooms[member.String()] = append(rooms[member.String()], room)
		if err := n.session.SetAccountData(ctx, messaging.AccountDataDirect, rooms); err != nil {
			// The room works without the account data; clients just
			// won't list it as a direct chat.
			n.logger.Warn("could not record direct room", "member", member, "room_id", room, "error", err)
		}
	}

	n.mu.Lock()
	n.direct[member] = room
	n.mu.Unlock()
	return room, nil
}

func (n *notifier) directRooms(ctx context.Context) (messaging.DirectRooms, error) {
	raw, err := n.session.GetAccountData(ctx, messaging.AccountDataDirect)
	if err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			return messaging.DirectRooms{}, nil
		}
		return nil, fmt.Errorf("reading direct rooms: %w", err)
	}
	rooms := messaging.DirectRooms{}
	if err := json.Unmarshal(raw, &rooms); err != nil {
		return nil, fmt.Errorf("parsing direct rooms: %w", err)
	}
	return rooms, nil
}

// failed returns the first delivery of kind that failed.
func failed(deliveries []Delivery, kind whitelist.IntentKind) (Delivery, bool) {
	for _, delivery := range deliveries {
		if delivery.Intent.Kind == kind && !delivery.Delivered() {
			return delivery, true
		}
	}
	return Delivery{}, false
}
