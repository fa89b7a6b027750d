// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatcmd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var fuzzyInit sync.Once

// HelpCommand returns a "help [query]" command listing the registry's
// commands. With a query, commands are ranked by fuzzy match against
// their name and summary and non-matches are dropped.
func HelpCommand(registry *Registry, prefix string) *Command {
	return &Command{
		Name:    "help",
		Summary: "List commands, or search them",
		Args:    []Arg{{Name: "query", Kind: Rest, Optional: true}},
		Run: func(ctx context.Context, invocation *Invocation) (Reply, error) {
			query := invocation.String("query")
			commands := registry.Commands()
			if query != "" {
				commands = RankCommands(commands, query)
				if len(commands) == 0 {
					return Reply{Text: fmt.Sprintf("No commands match `%s`.", query)}, nil
				}
			}

			var text, markdown strings.Builder
			for _, command := range commands {
				fmt.Fprintf(&text, "%s%s: %s\n", prefix, command.Usage(), command.Summary)
				fmt.Fprintf(&markdown, "- `%s%s`: %s\n", prefix, command.Usage(), command.Summary)
			}
			return Reply{
				Text:     strings.TrimRight(text.String(), "\n"),
				Markdown: "**Commands**\n\n" + markdown.String(),
			}, nil
		},
	}
}

// RankCommands returns the commands matching query, best first. Equal
// scores keep registration order.
func RankCommands(commands []*Command, query string) []*Command {
	fuzzyInit.Do(func() { algo.Init("default") })

	pattern := []rune(strings.ToLower(strings.TrimSpace(query)))
	slab := util.MakeSlab(100*1024, 2048)

	type ranked struct {
		command *Command
		score   int
	}
	var matches []ranked
	for _, command := range commands {
		input := util.ToChars([]byte(strings.ToLower(command.Name + " " + command.Summary)))
		result, _ := algo.FuzzyMatchV2(false, true, true, &input, pattern, false, slab)
		if result.Start < 0 || result.Score <= 0 {
			continue
		}
		matches = append(matches, ranked{command: command, score: result.Score})
	}

	slices.SortStableFunc(matches, func(a, b ranked) int { return b.score - a.score })

	sorted := make([]*Command, len(matches))
	for index, match := range matches {
		sorted[index] = match.command
	}
	return sorted
}
