// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/mcwhitelist/lib/card"
	"github.com/bureau-foundation/mcwhitelist/lib/cli"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/version"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
)

// defaultCardWidth is used when stdout is not a terminal.
const defaultCardWidth = 72

type profileEntry struct {
	Name      string         `json:"name"`
	AccountID string         `json:"account_id"`
	Owner     string         `json:"owner,omitempty"`
	State     string         `json:"state,omitempty"`
	History   []historyEntry `json:"history"`
}

type historyEntry struct {
	Name      string     `json:"name"`
	ChangedAt *time.Time `json:"changed_at,omitempty"`
}

func newProfileEntry(profile *whitelist.Profile) profileEntry {
	entry := profileEntry{Name: profile.Name, AccountID: profile.AccountID}
	if !profile.Owner.IsZero() {
		entry.Owner = profile.Owner.String()
	}
	if profile.Record != nil {
		entry.State = profile.Record.State()
	}
	for _, change := range profile.History {
		item := historyEntry{Name: change.Name}
		if !change.ChangedAt.IsZero() {
			changedAt := change.ChangedAt
			item.ChangedAt = &changedAt
		}
		entry.History = append(entry.History, item)
	}
	return entry
}

// --- show ---

func showCommand(env *environment) *cli.Command {
	var (
		flags   storeFlags
		jsonOut bool
		width   int
	)
	return &cli.Command{
		Name:    "show",
		Summary: "Show a player's profile card",
		Description: `Look up a member's record, or a game username, and print the same
profile card the bot's playerinfo command shows: name history, account
UUID, linked member and record state.`,
		Usage: "whitelistctl show <member|username> [flags]",
		Examples: []cli.Example{
			{Description: "By member", Command: "whitelistctl show @steve:example.org"},
			{Description: "By game username", Command: "whitelistctl show Notch --json"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&jsonOut, "json", false, "print JSON")
			flagSet.IntVar(&width, "width", 0, "card width in columns (default: terminal width)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs(args, "member|username"); err != nil {
				return err
			}
			target := whitelist.ByName(args[0])
			if owner, ok := ref.ParseMention(args[0]); ok {
				target = whitelist.ByMember(owner)
			}
			ws, err := env.open(flags)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			profile, err := ws.machine.LookupProfile(ctx, target)
			switch {
			case errors.Is(err, whitelist.ErrNotInSystem):
				return fmt.Errorf("%s has no whitelist record", target)
			case errors.Is(err, whitelist.ErrUnknownAccount):
				return fmt.Errorf("no game account named %s", target)
			case err != nil:
				return err
			}

			out := env.stdout
			if jsonOut {
				return out.WriteJSON(newProfileEntry(profile))
			}
			renderer := card.NewTerminalRenderer(out.Writer, cardWidth(out, width))
			if !out.Color {
				renderer = renderer.WithProfile(termenv.Ascii)
			}
			out.Printf("%s\n", renderer.Render(card.ForProfile(profile, ws.identity)))
			return nil
		},
	}
}

// cardWidth is the requested width, else the terminal's, else
// defaultCardWidth.
func cardWidth(out cli.Output, requested int) int {
	if requested > 0 {
		return requested
	}
	if file, ok := out.Writer.(*os.File); ok && out.Color {
		if columns, _, err := term.GetSize(int(file.Fd())); err == nil && columns > 0 {
			return min(columns, 100)
		}
	}
	return defaultCardWidth
}

// --- version ---

func versionCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			env.stdout.Printf("whitelistctl %s\n", version.Info())
			return nil
		},
	}
}
