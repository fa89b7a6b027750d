// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mcwhitelist/lib/cli"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
)

// --- set-status ---

func setStatusCommand(env *environment) *cli.Command {
	var flags storeFlags
	return &cli.Command{
		Name:    "set-status",
		Summary: "Approve or unapprove a member's request",
		Description: `Set the approval state of a member's record. The member is not sent
a direct message; use the bot's setstatus command for that.`,
		Usage: "whitelistctl set-status <member> <true|false> [flags]",
		Examples: []cli.Example{
			{Description: "Approve a request", Command: "whitelistctl set-status @steve:example.org true"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("set-status", pflag.ContinueOnError)
			flags.bind(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs(args, "member", "status"); err != nil {
				return err
			}
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			approved, err := strconv.ParseBool(args[1])
			if err != nil {
				return &cli.UsageError{Message: fmt.Sprintf("status %q is not true or false", args[1])}
			}
			ws, err := env.open(flags)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			transition, err := ws.machine.SetStatus(ctx, owner, approved)
			if errors.Is(err, whitelist.ErrNotInSystem) {
				return fmt.Errorf("%s has no whitelist record", owner)
			}
			if err != nil {
				return err
			}
			env.stdout.Printf("%s (%s) is now %s\n", owner, transition.Record.AccountID, transition.Record.State())
			return nil
		},
	}
}

// --- remove ---

func removeCommand(env *environment) *cli.Command {
	var flags storeFlags
	return &cli.Command{
		Name:    "remove",
		Summary: "Delete a member's record",
		Description: `Delete a member's record. When the record was approved the account
is still on the game server's whitelist and must be removed there.`,
		Usage: "whitelistctl remove <member> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("remove", pflag.ContinueOnError)
			flags.bind(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs(args, "member"); err != nil {
				return err
			}
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			ws, err := env.open(flags)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			transition, err := ws.machine.AdminRemove(ctx, owner)
			if errors.Is(err, whitelist.ErrNotInSystem) {
				return fmt.Errorf("%s has no whitelist record", owner)
			}
			if err != nil {
				return err
			}
			env.stdout.Printf("removed %s (%s)\n", owner, transition.Previous.AccountID)
			if transition.Previous.Approved {
				env.stdout.Printf("%s was approved: remove %s from the server whitelist\n",
					owner, transition.CanonicalName)
			}
			return nil
		},
	}
}
