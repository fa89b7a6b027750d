// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"net/url"
	"strings"
)

// matrixToPrefix is the permalink form clients insert when a user
// picks a member from the mention autocomplete.
const matrixToPrefix = "https://matrix.to/#/"

// ParseMention accepts either a bare user ID ("@steve:example.org") or
// a matrix.to permalink to one, optionally wrapped in angle brackets.
// The second return value is false when token is neither.
func ParseMention(token string) (UserID, bool) {
	token = strings.TrimSpace(token)
	token = strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
	if strings.HasPrefix(token, matrixToPrefix) {
		rest := strings.TrimPrefix(token, matrixToPrefix)
		if unescaped, err := url.PathUnescape(rest); err == nil {
			rest = unescaped
		}
		// Drop via= parameters.
		if query := strings.IndexByte(rest, '?'); query > 0 {
			rest = rest[:query]
		}
		token = rest
	}
	userID, err := ParseUserID(token)
	if err != nil {
		return UserID{}, false
	}
	return userID, true
}

// Pill returns the matrix.to permalink for userID, which clients render
// as a mention pill in formatted bodies.
func Pill(userID UserID) string {
	return matrixToPrefix + userID.String()
}
