// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mcwhitelist/lib/cli"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist/store"
)

// recordEntry is one record as list prints it.
type recordEntry struct {
	Owner     string `json:"owner"`
	AccountID string `json:"account_id"`
	State     string `json:"state"`
}

// entries returns the snapshot's records in owner order, keeping those
// for which keep is true.
func entries(snapshot store.Snapshot, keep func(store.Record) bool) []recordEntry {
	var result []recordEntry
	for _, owner := range snapshot.Owners() {
		record := snapshot[owner]
		if keep != nil && !keep(record) {
			continue
		}
		result = append(result, recordEntry{
			Owner:     owner.String(),
			AccountID: record.AccountID,
			State:     record.State(),
		})
	}
	return result
}

// --- list ---

func listCommand(env *environment) *cli.Command {
	var (
		flags    storeFlags
		pending  bool
		approved bool
		jsonOut  bool
	)
	return &cli.Command{
		Name:    "list",
		Summary: "List whitelist records",
		Description: `List every record in the store, ordered by member. --pending and
--approved narrow the list to one state.`,
		Examples: []cli.Example{
			{Description: "Requests waiting for staff", Command: "whitelistctl list --pending"},
			{Description: "Everything, as JSON", Command: "whitelistctl list --json"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&pending, "pending", false, "only records awaiting approval")
			flagSet.BoolVar(&approved, "approved", false, "only approved records")
			flagSet.BoolVar(&jsonOut, "json", false, "print JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			if pending && approved {
				return &cli.UsageError{Message: "--pending and --approved are mutually exclusive"}
			}
			ws, err := env.open(flags)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			snapshot, err := ws.records.Load(ctx)
			if err != nil {
				return err
			}
			var keep func(store.Record) bool
			switch {
			case pending:
				keep = func(record store.Record) bool { return !record.Approved }
			case approved:
				keep = func(record store.Record) bool { return record.Approved }
			}
			listed := entries(snapshot, keep)

			out := env.stdout
			if jsonOut {
				return out.WriteJSON(listed)
			}
			if len(listed) == 0 {
				env.logger.Info("no records found", "path", ws.records.Path())
				return nil
			}
			writer := tabwriter.NewWriter(out.Writer, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "OWNER\tACCOUNT\tSTATE")
			for _, entry := range listed {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.Owner, entry.AccountID, entry.State)
			}
			return writer.Flush()
		},
	}
}

// --- stats ---

type statsEntry struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Total    int `json:"total"`
}

func statsCommand(env *environment) *cli.Command {
	var (
		flags   storeFlags
		jsonOut bool
	)
	return &cli.Command{
		Name:    "stats",
		Summary: "Count records by state",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("stats", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&jsonOut, "json", false, "print JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			ws, err := env.open(flags)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			stats, err := ws.machine.Stats(ctx)
			if err != nil {
				return err
			}
			entry := statsEntry{Pending: stats.Pending, Approved: stats.Approved, Total: stats.Total()}
			if jsonOut {
				return env.stdout.WriteJSON(entry)
			}
			env.stdout.Printf("pending:  %d\napproved: %d\ntotal:    %d\n", entry.Pending, entry.Approved, entry.Total)
			return nil
		},
	}
}

// --- export ---

func exportCommand(env *environment) *cli.Command {
	var (
		flags  storeFlags
		format string
		output string
	)
	return &cli.Command{
		Name:    "export",
		Summary: "Write the store in JSON or CBOR",
		Description: `Write a copy of the store. The JSON form is the users.json layout the
bot reads; CBOR holds the same map in binary. Use --output - for
standard output.`,
		Examples: []cli.Example{
			{Description: "Back up as CBOR", Command: "whitelistctl export --format cbor --output users.cbor"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("export", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.StringVar(&format, "format", "json", "output encoding: json or cbor")
			flagSet.StringVarP(&output, "output", "o", "", "destination file, or - for stdout (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			if output == "" {
				return &cli.UsageError{Message: "--output is required"}
			}
			encoding, err := store.FormatByName(format)
			if err != nil {
				return &cli.UsageError{Message: err.Error()}
			}
			ws, err := env.open(flags)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			snapshot, err := ws.records.Load(ctx)
			if err != nil {
				return err
			}
			data, err := encoding.Encode(snapshot)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", encoding.Name(), err)
			}

			if output == "-" {
				_, err := env.stdout.Writer.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return err
			}
			stats := whitelist.CountRecords(snapshot)
			env.logger.Info("exported whitelist store",
				"path", output,
				"format", encoding.Name(),
				"records", stats.Total(),
			)
			return nil
		},
	}
}
