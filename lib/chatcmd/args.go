// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatcmd

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// Membership answers whether a user belongs to the community a message
// was sent from. Member arguments are checked against it.
type Membership interface {
	IsMember(ctx context.Context, room ref.RoomID, user ref.UserID) (bool, error)
}

// MemberOrNameValue is a parsed MemberOrName argument. Exactly one of
// Member and Name is set.
type MemberOrNameValue struct {
	Member ref.UserID
	Name   string
}

// IsMember reports whether the value names a member.
func (v MemberOrNameValue) IsMember() bool { return !v.Member.IsZero() }

// Invocation is a command call with its parsed arguments.
type Invocation struct {
	Message Message
	Command *Command

	// Bot is the bot's own user ID.
	Bot ref.UserID

	values map[string]any
}

// Has reports whether the named argument was supplied.
func (i *Invocation) Has(name string) bool {
	_, ok := i.values[name]
	return ok
}

// String returns a String or Rest argument.
func (i *Invocation) String(name string) string {
	value, _ := i.values[name].(string)
	return value
}

// Bool returns a Bool argument.
func (i *Invocation) Bool(name string) bool {
	value, _ := i.values[name].(bool)
	return value
}

// Member returns a Member argument.
func (i *Invocation) Member(name string) ref.UserID {
	value, _ := i.values[name].(ref.UserID)
	return value
}

// MemberOrName returns a MemberOrName argument.
func (i *Invocation) MemberOrName(name string) MemberOrNameValue {
	value, _ := i.values[name].(MemberOrNameValue)
	return value
}

// scanner walks the argument text one token at a time.
type scanner struct {
	text     string
	position int
}

func (s *scanner) skipSpace() {
	for s.position < len(s.text) {
		r := rune(s.text[s.position])
		if r >= 0x80 || !unicode.IsSpace(r) {
			return
		}
		s.position++
	}
}

// next returns the next token. A token opening with a double quote runs
// to the closing quote, which is an error if missing.
func (s *scanner) next() (string, bool, error) {
	s.skipSpace()
	if s.position >= len(s.text) {
		return "", false, nil
	}

	if s.text[s.position] == '"' {
		end := strings.IndexByte(s.text[s.position+1:], '"')
		if end < 0 {
			return "", false, fmt.Errorf("unclosed quote")
		}
		token := s.text[s.position+1 : s.position+1+end]
		s.position += end + 2
		return token, true, nil
	}

	start := s.position
	for s.position < len(s.text) {
		r := rune(s.text[s.position])
		if r < 0x80 && unicode.IsSpace(r) {
			break
		}
		s.position++
	}
	return s.text[start:s.position], true, nil
}

func (s *scanner) rest() string {
	remaining := strings.TrimSpace(s.text[s.position:])
	s.position = len(s.text)
	return remaining
}

// parseBool follows the conventional chat-bot boolean vocabulary.
func parseBool(token string) (bool, error) {
	switch strings.ToLower(token) {
	case "yes", "y", "true", "t", "1", "enable", "on":
		return true, nil
	case "no", "n", "false", "f", "0", "disable", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a recognised boolean option", token)
}

// parseArgs fills invocation.values from text according to the
// command's declared arguments.
func parseArgs(ctx context.Context, membership Membership, invocation *Invocation, text string) error {
	invocation.values = make(map[string]any, len(invocation.Command.Args))
	input := &scanner{text: text}

	for _, arg := range invocation.Command.Args {
		if arg.Kind == Rest {
			remaining := input.rest()
			if remaining == "" {
				if arg.Optional {
					continue
				}
				return &MissingArgumentError{Param: arg.Name}
			}
			invocation.values[arg.Name] = remaining
			continue
		}

		token, ok, err := input.next()
		if err != nil {
			return &BadArgumentError{Param: arg.Name, Err: err}
		}
		if !ok {
			if arg.Optional {
				continue
			}
			return &MissingArgumentError{Param: arg.Name}
		}

		value, err := convert(ctx, membership, invocation.Message, arg, token)
		if err != nil {
			return err
		}
		invocation.values[arg.Name] = value
	}
	return nil
}

func convert(ctx context.Context, membership Membership, message Message, arg Arg, token string) (any, error) {
	room := message.Room
	switch arg.Kind {
	case String:
		return token, nil

	case Bool:
		value, err := parseBool(token)
		if err != nil {
			return nil, &BadArgumentError{Param: arg.Name, Err: err}
		}
		return value, nil

	case Member:
		userID, ok := resolveMention(token, message.Mentions)
		if !ok {
			return nil, &BadArgumentError{Param: arg.Name, Err: fmt.Errorf("member %q not found", token)}
		}
		member, err := isMember(ctx, membership, room, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, &BadArgumentError{Param: arg.Name, Err: fmt.Errorf("member %q not found", token)}
		}
		return userID, nil

	case MemberOrName:
		if userID, ok := resolveMention(token, message.Mentions); ok {
			member, err := isMember(ctx, membership, room, userID)
			if err != nil {
				return nil, err
			}
			if member {
				return MemberOrNameValue{Member: userID}, nil
			}
		}
		return MemberOrNameValue{Name: token}, nil
	}
	return nil, fmt.Errorf("chatcmd: argument %q has unsupported kind %v", arg.Name, arg.Kind)
}

// resolveMention reads token as a user ID or permalink, or else as the
// localpart of one of the mentioned users ("steve", "@steve" and
// "steve:" all match @steve:example.org).
func resolveMention(token string, mentions []ref.UserID) (ref.UserID, bool) {
	if userID, ok := ref.ParseMention(token); ok {
		return userID, true
	}
	localpart := strings.TrimRight(strings.TrimPrefix(token, "@"), ":,")
	if localpart == "" {
		return ref.UserID{}, false
	}
	for _, mention := range mentions {
		if strings.EqualFold(mention.Localpart(), localpart) {
			return mention, true
		}
	}
	return ref.UserID{}, false
}

func isMember(ctx context.Context, membership Membership, room ref.RoomID, user ref.UserID) (bool, error) {
	if membership == nil {
		return false, fmt.Errorf("chatcmd: member arguments need a Membership")
	}
	member, err := membership.IsMember(ctx, room, user)
	if err != nil {
		return false, fmt.Errorf("checking membership of %s: %w", user, err)
	}
	return member, nil
}
