// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatcmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// Message is an incoming chat message.
type Message struct {
	Room    ref.RoomID
	Sender  ref.UserID
	EventID string
	Body    string

	// Mentions are the users the message explicitly addresses. Member
	// arguments that are not user IDs are matched against them.
	Mentions []ref.UserID
}

// Reply is the bot's answer to a message. Text is always set; Markdown,
// when set, is the rich rendering of the same content. Detail carries
// diagnostic text shown below the reply.
type Reply struct {
	Text     string
	Markdown string
	Detail   string
}

// Textf builds a plain Reply.
func Textf(format string, args ...any) Reply {
	return Reply{Text: fmt.Sprintf(format, args...)}
}

// ArgKind is how an argument is parsed.
type ArgKind int

const (
	// String is one token. Double quotes group words into one token.
	String ArgKind = iota

	// Rest is the remaining message text, trimmed. It must be last.
	Rest

	// Bool accepts yes/y/true/t/1/enable/on and
	// no/n/false/f/0/disable/off, case-insensitively.
	Bool

	// Member is a Matrix user ID, a matrix.to link, or the localpart
	// of a user the message mentions, naming a current member of the
	// community.
	Member

	// MemberOrName is a Member when the token names one, otherwise the
	// token as a bare name.
	MemberOrName
)

func (k ArgKind) String() string {
	switch k {
	case String:
		return "string"
	case Rest:
		return "text"
	case Bool:
		return "bool"
	case Member:
		return "member"
	case MemberOrName:
		return "member-or-name"
	}
	return fmt.Sprintf("ArgKind(%d)", int(k))
}

// Arg declares one command parameter.
type Arg struct {
	Name     string
	Kind     ArgKind
	Optional bool
}

// Command is a registered chat command.
type Command struct {
	// Name is what follows the prefix.
	Name string

	// Summary is the one-line help text.
	Summary string

	// Args are parsed in order from the message.
	Args []Arg

	// Permissions are required of the caller in the message's room.
	Permissions []Permission

	// BotPermissions are required of the bot in the message's room.
	BotPermissions []Permission

	// Cooldown is the per-user interval between invocations. Zero
	// disables it.
	Cooldown time.Duration

	Run func(ctx context.Context, invocation *Invocation) (Reply, error)
}

// Usage renders the command's argument synopsis, e.g.
// "setstatus <user> <status>".
func (c *Command) Usage() string {
	var builder strings.Builder
	builder.WriteString(c.Name)
	for _, arg := range c.Args {
		if arg.Optional {
			fmt.Fprintf(&builder, " [%s]", arg.Name)
		} else {
			fmt.Fprintf(&builder, " <%s>", arg.Name)
		}
	}
	return builder.String()
}

// Registry holds commands in registration order.
type Registry struct {
	commands []*Command
	byName   map[string]*Command
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds command. It panics on a duplicate name, a missing Run,
// or a Rest argument that is not last; those are programming errors.
func (r *Registry) Register(command *Command) {
	if command.Name == "" || strings.ContainsAny(command.Name, " \t\n") {
		panic(fmt.Sprintf("chatcmd: invalid command name %q", command.Name))
	}
	if _, exists := r.byName[command.Name]; exists {
		panic(fmt.Sprintf("chatcmd: command %q registered twice", command.Name))
	}
	if command.Run == nil {
		panic(fmt.Sprintf("chatcmd: command %q has no Run", command.Name))
	}
	for index, arg := range command.Args {
		if arg.Kind == Rest && index != len(command.Args)-1 {
			panic(fmt.Sprintf("chatcmd: command %q: rest argument %q must be last", command.Name, arg.Name))
		}
	}
	r.commands = append(r.commands, command)
	r.byName[command.Name] = command
}

// Lookup returns the command called name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	command, ok := r.byName[name]
	return command, ok
}

// Commands returns the commands in registration order.
func (r *Registry) Commands() []*Command {
	return append([]*Command(nil), r.commands...)
}

// Names returns the command names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.commands))
	for index, command := range r.commands {
		names[index] = command.Name
	}
	return names
}
