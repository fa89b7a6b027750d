// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// FormatHTML is the format value of messages with an HTML formatted
// body.
const FormatHTML = "org.matrix.custom.html"

// MentionedUsers returns the user IDs listed in the content's
// m.mentions, skipping entries that are not valid user IDs.
func (e Event) MentionedUsers() []ref.UserID {
	mentions, _ := e.Content["m.mentions"].(map[string]any)
	raw, _ := mentions["user_ids"].([]any)
	var users []ref.UserID
	for _, entry := range raw {
		text, ok := entry.(string)
		if !ok {
			continue
		}
		if userID, err := ref.ParseUserID(text); err == nil {
			users = append(users, userID)
		}
	}
	return users
}

// PillText flattens an HTML formatted body to plain text, replacing
// every user pill (an anchor linking to a matrix.to user permalink)
// with the bare user ID. The reply fallback in <mx-reply> is dropped.
// users lists the pilled user IDs in order of appearance; it is empty
// when the body has no pills.
func PillText(formattedBody string) (text string, users []ref.UserID) {
	tokenizer := html.NewTokenizer(strings.NewReader(formattedBody))
	var (
		builder strings.Builder
		// pill is set while inside a user anchor, whose display text is
		// replaced by the user ID.
		pill     bool
		skipping int
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF at the end of input; anything else is malformed
			// markup, which is cut off where the tokenizer stopped.
			return strings.TrimSpace(builder.String()), users

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch {
			case token.Data == "mx-reply":
				skipping++
			case skipping > 0:
			case token.DataAtom == atom.A:
				if userID, ok := ref.ParseMention(attribute(token, "href")); ok {
					builder.WriteString(userID.String())
					users = append(users, userID)
					pill = true
				}
			case token.DataAtom == atom.Br:
				builder.WriteByte('\n')
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			switch {
			case token.Data == "mx-reply":
				skipping = max(skipping-1, 0)
			case token.DataAtom == atom.A:
				pill = false
			case token.DataAtom == atom.P || token.DataAtom == atom.Div:
				builder.WriteByte('\n')
			}

		case html.TextToken:
			if skipping == 0 && !pill {
				builder.WriteString(tokenizer.Token().Data)
			}
		}
	}
}

func attribute(token html.Token, name string) string {
	for _, attr := range token.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}
