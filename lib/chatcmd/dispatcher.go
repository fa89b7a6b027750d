// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/mcwhitelist/lib/clock"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/similarity"
)

// SuggestionThreshold is the minimum similarity for a "did you mean"
// suggestion.
const SuggestionThreshold = 0.55

// StorageFailureText is the reply to a command aborted by a storage
// failure.
const StorageFailureText = "Couldn't save that change, nothing was recorded. Try again or contact an operator."

// Outcome classifies how a dispatch ended, for metrics.
type Outcome string

const (
	OutcomeOK                 Outcome = "ok"
	OutcomeUnknownCommand     Outcome = "unknown_command"
	OutcomeMissingArgument    Outcome = "missing_argument"
	OutcomeBadArgument        Outcome = "bad_argument"
	OutcomeCooldown           Outcome = "cooldown"
	OutcomeMissingPermissions Outcome = "missing_permissions"
	OutcomeBotPermissions     Outcome = "bot_missing_permissions"
	OutcomeUserError          Outcome = "user_error"
	OutcomeStorage            Outcome = "storage"
	OutcomeUnclassified       Outcome = "unclassified"
)

// Observer is told the outcome of every dispatched command. name is
// empty for unknown commands.
type Observer func(name string, outcome Outcome)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Prefix introduces commands, e.g. "w!".
	Prefix string

	// Bot is the bot's user ID, used for bot permission checks.
	Bot ref.UserID

	// Operator is mentioned in replies to unclassified failures.
	// Optional.
	Operator ref.UserID

	// Permissions is required when any command declares permissions.
	Permissions PermissionChecker

	// Membership is required when any command takes member arguments.
	Membership Membership

	// Clock drives cooldowns. Defaults to clock.Real().
	Clock clock.Clock

	// Observer is optional.
	Observer Observer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Dispatcher runs commands from a Registry.
type Dispatcher struct {
	registry    *Registry
	prefix      string
	bot         ref.UserID
	operator    ref.UserID
	permissions PermissionChecker
	membership  Membership
	cooldowns   *cooldowns
	observer    Observer
	logger      *slog.Logger
}

// NewDispatcher returns a Dispatcher over registry.
func NewDispatcher(registry *Registry, config DispatcherConfig) (*Dispatcher, error) {
	if registry == nil {
		return nil, errors.New("chatcmd: registry is required")
	}
	if strings.TrimSpace(config.Prefix) == "" {
		return nil, errors.New("chatcmd: Prefix is required")
	}
	timeSource := config.Clock
	if timeSource == nil {
		timeSource = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := config.Observer
	if observer == nil {
		observer = func(string, Outcome) {}
	}
	return &Dispatcher{
		registry:    registry,
		prefix:      config.Prefix,
		bot:         config.Bot,
		operator:    config.Operator,
		permissions: config.Permissions,
		membership:  config.Membership,
		cooldowns:   newCooldowns(timeSource),
		observer:    observer,
		logger:      logger,
	}, nil
}

// Prefix returns the command prefix.
func (d *Dispatcher) Prefix() string { return d.prefix }

// Dispatch handles message. ok is false when the message is not a
// command and should be ignored; otherwise reply is what to send back.
func (d *Dispatcher) Dispatch(ctx context.Context, message Message) (reply Reply, ok bool) {
	body, found := strings.CutPrefix(message.Body, d.prefix)
	if !found {
		return Reply{}, false
	}
	name, arguments := splitCommand(body)
	if name == "" {
		return Reply{}, false
	}

	command, registered := d.registry.Lookup(name)
	if !registered {
		d.observer("", OutcomeUnknownCommand)
		d.logger.Debug("unknown command", "command", name, "sender", message.Sender)
		return d.suggest(name), true
	}

	invocation := &Invocation{Message: message, Command: command, Bot: d.bot}
	reply, err := d.run(ctx, invocation, arguments)
	if err != nil {
		outcome, failure := d.classify(command, message, err)
		d.observer(command.Name, outcome)
		return failure, true
	}
	d.observer(command.Name, OutcomeOK)
	return reply, true
}

// splitCommand separates the command name from its argument text.
func splitCommand(body string) (name, arguments string) {
	end := strings.IndexFunc(body, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if end < 0 {
		return body, ""
	}
	return body[:end], body[end:]
}

func (d *Dispatcher) run(ctx context.Context, invocation *Invocation, arguments string) (Reply, error) {
	command := invocation.Command
	message := invocation.Message

	if len(command.Permissions) > 0 {
		missing, err := d.missing(ctx, message.Room, message.Sender, command.Permissions)
		if err != nil {
			return Reply{}, err
		}
		if len(missing) > 0 {
			return Reply{}, &MissingPermissionsError{Missing: missing}
		}
	}
	if len(command.BotPermissions) > 0 {
		missing, err := d.missing(ctx, message.Room, d.bot, command.BotPermissions)
		if err != nil {
			return Reply{}, err
		}
		if len(missing) > 0 {
			return Reply{}, &BotMissingPermissionsError{Missing: missing}
		}
	}

	if remaining, allowed := d.cooldowns.take(command, message.Sender); !allowed {
		return Reply{}, &CooldownError{Command: command.Name, Remaining: remaining}
	}

	if err := parseArgs(ctx, d.membership, invocation, arguments); err != nil {
		return Reply{}, err
	}

	return command.Run(ctx, invocation)
}

func (d *Dispatcher) missing(ctx context.Context, room ref.RoomID, user ref.UserID, required []Permission) ([]Permission, error) {
	if d.permissions == nil {
		return nil, errors.New("chatcmd: command requires permissions but no PermissionChecker is configured")
	}
	missing, err := d.permissions.Missing(ctx, room, user, required)
	if err != nil {
		return nil, fmt.Errorf("checking permissions of %s: %w", user, err)
	}
	return missing, nil
}

// suggest builds the unknown-command reply.
func (d *Dispatcher) suggest(name string) Reply {
	best, score, ok := similarity.Closest(name, d.registry.Names())
	switch {
	case !ok:
		return Reply{Text: "Invalid Command, no similar commands found."}
	case score < SuggestionThreshold:
		return Reply{Text: fmt.Sprintf("Invalid Command, no commands with greater than %.0f%% similarity found.",
			SuggestionThreshold*100)}
	default:
		return Reply{Text: fmt.Sprintf("Invalid Command, did you mean `%s`?", best)}
	}
}

// classify turns a failed invocation into its reply.
func (d *Dispatcher) classify(command *Command, message Message, err error) (Outcome, Reply) {
	var (
		missingArgument *MissingArgumentError
		badArgument     *BadArgumentError
		cooldown        *CooldownError
		missingCaller   *MissingPermissionsError
		missingBot      *BotMissingPermissionsError
		userError       *UserError
		storage         *StorageError
	)

	switch {
	case errors.As(err, &missingArgument):
		return OutcomeMissingArgument, Reply{Text: fmt.Sprintf("Missing Required Argument: %s.", missingArgument.Param)}

	case errors.As(err, &badArgument):
		return OutcomeBadArgument, Reply{
			Text:   "Bad Argument: Could Not Parse Commands Argument",
			Detail: badArgument.Error(),
		}

	case errors.As(err, &cooldown):
		seconds := cooldown.Remaining.Seconds()
		return OutcomeCooldown, Reply{
			Text:     fmt.Sprintf("The Command is on Cooldown, Try Again in %.2f seconds", seconds),
			Markdown: fmt.Sprintf("The Command is on Cooldown, Try Again in **%.2f** seconds", seconds),
			Detail:   cooldown.Error(),
		}

	case errors.As(err, &missingCaller):
		return OutcomeMissingPermissions, Reply{
			Text:   "Missing Permissions to Run This Command: " + joinPermissions(missingCaller.Missing, Permission.Humanize),
			Detail: missingCaller.Error(),
		}

	case errors.As(err, &missingBot):
		return OutcomeBotPermissions, Reply{
			Text:   "Bot is Missing the Required Permissions to Run This Command: " + joinPermissions(missingBot.Missing, Permission.Humanize),
			Detail: missingBot.Error(),
		}

	case errors.As(err, &userError):
		return OutcomeUserError, Reply{Text: userError.Message}

	case errors.As(err, &storage):
		d.logger.Error("command aborted by storage failure",
			"command", command.Name,
			"sender", message.Sender,
			"room", message.Room,
			"event_id", message.EventID,
			"error", err,
		)
		return OutcomeStorage, Reply{Text: StorageFailureText}
	}

	d.logger.Error("command failed",
		"command", command.Name,
		"sender", message.Sender,
		"room", message.Room,
		"event_id", message.EventID,
		"operator", d.operator,
		"error", err,
	)
	text := "Uncommon Error"
	markdown := text
	if !d.operator.IsZero() {
		text += " " + d.operator.String()
		markdown += fmt.Sprintf(" [%s](%s)", d.operator, ref.Pill(d.operator))
	}
	return OutcomeUnclassified, Reply{Text: text, Markdown: markdown, Detail: err.Error()}
}
