// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command whitelistctl inspects and edits the whitelist store from the
// shell. It works on the same store file as the running bot; the
// store's file lock keeps the two from losing each other's writes.
//
// Members are named by Matrix user ID or matrix.to link:
//
//	whitelistctl list --pending
//	whitelistctl show @steve:example.org
//	whitelistctl set-status @steve:example.org true
//	whitelistctl export --format cbor --output users.cbor
//
// Changes made here are not announced in chat: set-status does not
// send the member a direct message and remove does not post a staff
// card.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/mcwhitelist/lib/cli"
)

func main() {
	env := newEnvironment()
	err := rootCommand(env).Execute(os.Args[1:])
	code, silent := cli.ExitCode(err)
	if !silent {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(code)
}

func rootCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name: "whitelistctl",
		Description: `whitelistctl: operator tool for the Minecraft whitelist bot.

Reads and edits the bot's record store directly. The store is located
through the bot's config file, given with --config or the
WHITELIST_CONFIG environment variable.`,
		Subcommands: []*cli.Command{
			listCommand(env),
			showCommand(env),
			setStatusCommand(env),
			removeCommand(env),
			reviewCommand(env),
			exportCommand(env),
			statsCommand(env),
			versionCommand(env),
		},
		Stderr: env.stderr,
	}
}
