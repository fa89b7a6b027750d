// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatcmd

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// Permission is a named capability in a room.
type Permission string

const (
	ManageRoles    Permission = "manage_roles"
	KickMembers    Permission = "kick_members"
	BanMembers     Permission = "ban_members"
	SendMessages   Permission = "send_messages"
	ChangeNickname Permission = "change_nickname"
)

func (p Permission) String() string { return string(p) }

var titleCaser = cases.Title(language.English)

// Humanize renders the permission for people: "manage_roles" becomes
// "Manage Roles".
func (p Permission) Humanize() string {
	return titleCaser.String(strings.ReplaceAll(string(p), "_", " "))
}

// PermissionChecker reports which of required the user lacks in room.
type PermissionChecker interface {
	Missing(ctx context.Context, room ref.RoomID, user ref.UserID, required []Permission) ([]Permission, error)
}
