// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mcwhitelist/lib/similarity"
)

// suggestThreshold is the minimum similarity ratio for a suggestion,
// the same cut-off the chat dispatcher uses.
const suggestThreshold = 0.55

// suggestCommand returns the subcommand name closest to unknown, or ""
// when none is close enough.
func suggestCommand(unknown string, commands []*Command) string {
	names := make([]string, len(commands))
	for index, command := range commands {
		names[index] = command.Name
	}
	best, score, ok := similarity.Closest(unknown, names)
	if !ok || score < suggestThreshold {
		return ""
	}
	return best
}

// suggestFlag finds the first undefined long flag in args and returns
// the closest defined flag, prefixed with "--", or "".
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	var defined []string
	flagSet.VisitAll(func(f *pflag.Flag) {
		defined = append(defined, f.Name)
	})

	for _, arg := range args {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		name := strings.TrimPrefix(arg, "--")
		if index := strings.IndexByte(name, '='); index >= 0 {
			name = name[:index]
		}
		if flagSet.Lookup(name) != nil {
			continue
		}
		best, score, ok := similarity.Closest(name, defined)
		if !ok || score < suggestThreshold {
			return ""
		}
		return "--" + best
	}
	return ""
}
