// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/mcwhitelist/lib/card"
	"github.com/bureau-foundation/mcwhitelist/lib/chatcmd"
	"github.com/bureau-foundation/mcwhitelist/lib/metrics"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
)

// Reply texts.
const (
	invalidNameText = "That username doesn't seem valid, a minecraft username can only contain the characters " +
		"alphanumerical characters and underscores. They can also only be 3-16 characters long."
	selfApprovedText = "You've already been whitelisted and should be able to connect. If not, contact a staff " +
		"member. If you changed your Minecraft name, you don't need to rewhitelist, if it's an entirely new " +
		"account, run the unwhitelist command then do this again. (Your old account will be removed from the whitelist)"
	selfPendingText = "You've already applied to be whitelisted but it hasn't been processed yet, " +
		"please give the staff some time to add you."
	otherApprovedText  = "They've already been whitelisted and should be able to connect. If not, contact a staff member."
	otherPendingText   = "They've already applied to be whitelisted but it hasn't been processed yet."
	selfUnknownText    = "I can't seem to find your Minecraft username on Mojang servers, are you using a non-paid MC account?"
	otherUnknownText   = "I can't seem to find that Minecraft username on Mojang servers, is it a non-paid MC account?"
	playerUnknownText  = "I can't seem to find that Minecraft user on Mojang servers, is it a non-paid MC account?"
	resolverDownText   = "It seems like the Mojang API is currently broken, try again later?"
	notWhitelistedText = "You're not whitelisted, there's nothing to remove... Did you mean to whitelist yourself?"
	notInSystemText    = "The user is not in the whitelist system. You can ask them to apply or use the adminadd " +
		"command then run this again"

	requestedText        = "You have been added to the system, a staff member should whitelist you soon."
	withdrawnText        = "You have been removed from the system, a staff member will unwhitelist you shortly."
	withdrawnPendingText = "Your whitelist request has been withdrawn."
	selfNicknameText     = "Please set your nickname to: "
	otherNicknameText    = "Please set their nickname to: "

	statusNotifiedText    = "The whitelist status has been changed and the user has been notified"
	statusNotNotifiedText = "The whitelist status has been changed and the user has not been notified (direct message failed)"
	addedNotifiedText     = "They have been added to the system and the user has been notified"
	addedNotNotifiedText  = "They have been added to the system and the user has not been notified (direct message failed)"
	removedText           = "They have been removed from the system."
	removedApprovedText   = "They have been removed from the system, a staff member will unwhitelist them shortly."

	forcedAddText = "You have been forcefully added to the whitelist system by an admin, the username added was: "
)

func statusChangedText(approved bool) string {
	if approved {
		return "Your whitelist status has been set to: True"
	}
	return "Your whitelist status has been set to: False"
}

// handlers implements the chat commands on top of the machine and the
// notifier.
type handlers struct {
	machine  *whitelist.Machine
	notifier *notifier
	renders  card.Renders
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// register adds the whitelist commands and help to registry, in the
// order help lists them.
func (h *handlers) register(registry *chatcmd.Registry, prefix string, cooldown time.Duration) {
	registry.Register(&chatcmd.Command{
		Name:     "whitelist",
		Summary:  "Request to be whitelisted",
		Args:     []chatcmd.Arg{{Name: "username", Kind: chatcmd.Rest}},
		Cooldown: cooldown,
		Run:      h.whitelist,
	})
	registry.Register(&chatcmd.Command{
		Name:    "unwhitelist",
		Summary: "Withdraw your whitelist request or remove your account",
		Run:     h.unwhitelist,
	})
	registry.Register(&chatcmd.Command{
		Name:    "playerinfo",
		Summary: "Show a player's skin, UUID and username history",
		Args:    []chatcmd.Arg{{Name: "player", Kind: chatcmd.MemberOrName}},
		Run:     h.playerinfo,
	})
	registry.Register(&chatcmd.Command{
		Name:           "setstatus",
		Summary:        "Staff: approve or unapprove a member's request",
		Args:           []chatcmd.Arg{{Name: "user", Kind: chatcmd.Member}, {Name: "status", Kind: chatcmd.Bool}},
		Permissions:    []chatcmd.Permission{chatcmd.ManageRoles},
		BotPermissions: []chatcmd.Permission{chatcmd.SendMessages},
		Run:            h.setstatus,
	})
	registry.Register(&chatcmd.Command{
		Name:           "adminadd",
		Summary:        "Staff: file a whitelist request for a member",
		Args:           []chatcmd.Arg{{Name: "user", Kind: chatcmd.Member}, {Name: "username", Kind: chatcmd.Rest}},
		Permissions:    []chatcmd.Permission{chatcmd.ManageRoles},
		BotPermissions: []chatcmd.Permission{chatcmd.SendMessages},
		Run:            h.adminadd,
	})
	registry.Register(&chatcmd.Command{
		Name:           "adminremove",
		Summary:        "Staff: delete a member's record",
		Args:           []chatcmd.Arg{{Name: "user", Kind: chatcmd.Member}},
		Permissions:    []chatcmd.Permission{chatcmd.ManageRoles},
		BotPermissions: []chatcmd.Permission{chatcmd.SendMessages},
		Run:            h.adminremove,
	})
	registry.Register(chatcmd.HelpCommand(registry, prefix))
}

func (h *handlers) whitelist(ctx context.Context, invocation *chatcmd.Invocation) (chatcmd.Reply, error) {
	transition, err := h.machine.SubmitRequest(ctx, invocation.Message.Sender, invocation.String("username"))
	h.observe(ctx, "submit", err)
	if err != nil {
		return chatcmd.Reply{}, userError(err, true)
	}

	deliveries := h.notifier.Deliver(ctx, invocation.Message.Room, transition.Intents)
	text := requestedText
	if _, ok := failed(deliveries, whitelist.IntentSetDisplayName); ok {
		text = selfNicknameText + transition.CanonicalName + "\n" + text
	}
	return chatcmd.Reply{Text: text}, nil
}

func (h *handlers) unwhitelist(ctx context.Context, invocation *chatcmd.Invocation) (chatcmd.Reply, error) {
	transition, err := h.machine.WithdrawRequest(ctx, invocation.Message.Sender)
	h.observe(ctx, "withdraw", err)
	if err != nil {
		return chatcmd.Reply{}, userError(err, true)
	}

	h.notifier.Deliver(ctx, invocation.Message.Room, transition.Intents)
	if transition.Previous.Approved {
		return chatcmd.Reply{Text: withdrawnText}, nil
	}
	return chatcmd.Reply{Text: withdrawnPendingText}, nil
}

func (h *handlers) setstatus(ctx context.Context, invocation *chatcmd.Invocation) (chatcmd.Reply, error) {
	transition, err := h.machine.SetStatus(ctx, invocation.Member("user"), invocation.Bool("status"))
	h.observe(ctx, "set_status", err)
	if err != nil {
		return chatcmd.Reply{}, userError(err, false)
	}

	deliveries := h.notifier.Deliver(ctx, invocation.Message.Room, transition.Intents)
	if _, ok := failed(deliveries, whitelist.IntentStatusChanged); ok {
		return chatcmd.Reply{Text: statusNotNotifiedText}, nil
	}
	return chatcmd.Reply{Text: statusNotifiedText}, nil
}

func (h *handlers) adminadd(ctx context.Context, invocation *chatcmd.Invocation) (chatcmd.Reply, error) {
	transition, err := h.machine.AdminForceAdd(ctx, invocation.Message.Sender, invocation.Member("user"), invocation.String("username"))
	h.observe(ctx, "force_add", err)
	if err != nil {
		return chatcmd.Reply{}, userError(err, false)
	}

	deliveries := h.notifier.Deliver(ctx, invocation.Message.Room, transition.Intents)
	text := addedNotifiedText
	if _, ok := failed(deliveries, whitelist.IntentForcedAdd); ok {
		text = addedNotNotifiedText
	}
	if _, ok := failed(deliveries, whitelist.IntentSetDisplayName); ok {
		text = otherNicknameText + transition.CanonicalName + "\n" + text
	}
	return chatcmd.Reply{Text: text}, nil
}

func (h *handlers) adminremove(ctx context.Context, invocation *chatcmd.Invocation) (chatcmd.Reply, error) {
	transition, err := h.machine.AdminRemove(ctx, invocation.Member("user"))
	h.observe(ctx, "admin_remove", err)
	if err != nil {
		return chatcmd.Reply{}, userError(err, false)
	}

	h.notifier.Deliver(ctx, invocation.Message.Room, transition.Intents)
	if transition.Previous.Approved {
		return chatcmd.Reply{Text: removedApprovedText}, nil
	}
	return chatcmd.Reply{Text: removedText}, nil
}

func (h *handlers) playerinfo(ctx context.Context, invocation *chatcmd.Invocation) (chatcmd.Reply, error) {
	player := invocation.MemberOrName("player")
	target := whitelist.ByName(player.Name)
	if player.IsMember() {
		target = whitelist.ByMember(player.Member)
	}

	profile, err := h.machine.LookupProfile(ctx, target)
	h.metrics.ObserveTransition("lookup", resultLabel(err))
	if err != nil {
		if errors.Is(err, whitelist.ErrUnknownAccount) {
			return chatcmd.Reply{}, chatcmd.Userf("%s", playerUnknownText)
		}
		return chatcmd.Reply{}, userError(err, false)
	}

	info := card.ForProfile(profile, h.renders)
	return chatcmd.Reply{Text: info.Plain(), Markdown: info.Markdown()}, nil
}

// departed removes the record of a member who left or was banned from
// the community.
func (h *handlers) departed(ctx context.Context, member ref.UserID) {
	transition, err := h.machine.RemoveOnDeparture(ctx, member)
	h.observe(ctx, "departure", err)
	if err != nil {
		h.logger.Error("removing departed member", "member", member, "error", err)
		return
	}
	h.notifier.Deliver(ctx, ref.RoomID{}, transition.Intents)
}

// observe counts a transition and, after a successful one, refreshes
// the record gauges.
func (h *handlers) observe(ctx context.Context, operation string, err error) {
	h.metrics.ObserveTransition(operation, resultLabel(err))
	if err != nil || h.metrics == nil {
		return
	}
	stats, err := h.machine.Stats(ctx)
	if err != nil {
		h.logger.Warn("counting records for metrics", "error", err)
		return
	}
	h.metrics.SetRecords(stats.Pending, stats.Approved)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, whitelist.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, whitelist.ErrAlreadyPending):
		return "already_pending"
	case errors.Is(err, whitelist.ErrAlreadyApproved):
		return "already_approved"
	case errors.Is(err, whitelist.ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, whitelist.ErrResolverDown):
		return "resolver_down"
	case errors.Is(err, whitelist.ErrNotWhitelisted):
		return "not_whitelisted"
	case errors.Is(err, whitelist.ErrNotInSystem):
		return "not_in_system"
	case errors.Is(err, whitelist.ErrStorage):
		return "storage"
	}
	return "error"
}

// userError turns a domain outcome into the text shown to the member.
// self selects the wording for a member acting on their own record.
// Storage failures become a *chatcmd.StorageError. Anything else is
// returned unchanged and reported as an unexpected failure by the
// dispatcher.
func userError(err error, self bool) error {
	var text string
	switch {
	case errors.Is(err, whitelist.ErrInvalidName):
		text = invalidNameText
	case errors.Is(err, whitelist.ErrAlreadyApproved):
		text = pick(self, selfApprovedText, otherApprovedText)
	case errors.Is(err, whitelist.ErrAlreadyPending):
		text = pick(self, selfPendingText, otherPendingText)
	case errors.Is(err, whitelist.ErrUnknownAccount):
		text = pick(self, selfUnknownText, otherUnknownText)
	case errors.Is(err, whitelist.ErrResolverDown):
		text = resolverDownText
	case errors.Is(err, whitelist.ErrNotWhitelisted):
		text = notWhitelistedText
	case errors.Is(err, whitelist.ErrNotInSystem):
		text = notInSystemText
	case errors.Is(err, whitelist.ErrStorage):
		return &chatcmd.StorageError{Err: err}
	default:
		return err
	}
	return chatcmd.Userf("%s", text)
}

func pick(self bool, selfText, otherText string) string {
	if self {
		return selfText
	}
	return otherText
}
