// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mcwhitelist/lib/card"
	"github.com/bureau-foundation/mcwhitelist/lib/cli"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist/store"
)

// --- review ---

func reviewCommand(env *environment) *cli.Command {
	var (
		flags storeFlags
		all   bool
	)
	return &cli.Command{
		Name:    "review",
		Summary: "Work through pending requests interactively",
		Description: `Open a terminal view of the pending requests. Approve with a, return
an approved record to pending with u, delete with d (confirmed with y).
--all includes approved records.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("review", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&all, "all", false, "include approved records")
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			if !cli.IsTerminal(os.Stdout) {
				return errors.New("review needs a terminal; use list for scripts")
			}
			ws, err := env.open(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			model := newReviewModel(ctx, ws, os.Stdout, all)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}

// reviewKeyMap is the review view's bindings.
type reviewKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Approve   key.Binding
	Unapprove key.Binding
	Remove    key.Binding
	ToggleAll key.Binding
	Reload    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var defaultReviewKeys = reviewKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Approve: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "approve"),
	),
	Unapprove: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "unapprove"),
	),
	Remove: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	ToggleAll: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "pending/all"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k reviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Approve, k.Remove, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k reviewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.ToggleAll, k.Reload},
		{k.Approve, k.Unapprove, k.Remove},
		{k.Help, k.Quit},
	}
}

// loadedMsg carries a fresh snapshot, and the result of the action
// that preceded the load.
type loadedMsg struct {
	snapshot store.Snapshot
	status   string
	err      error
}

type reviewModel struct {
	ctx       context.Context
	workspace *workspace
	output    io.Writer

	all        bool
	entries    []recordEntry
	cursor     int
	confirming bool
	status     string

	keys   reviewKeyMap
	help   help.Model
	detail viewport.Model
	width  int
	height int
}

func newReviewModel(ctx context.Context, ws *workspace, output io.Writer, all bool) reviewModel {
	return reviewModel{
		ctx:       ctx,
		workspace: ws,
		output:    output,
		all:       all,
		keys:      defaultReviewKeys,
		help:      help.New(),
		width:     80,
		height:    24,
	}
}

// Init implements tea.Model.
func (m reviewModel) Init() tea.Cmd {
	return m.load("")
}

func (m reviewModel) load(status string) tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.workspace.records.Load(m.ctx)
		return loadedMsg{snapshot: snapshot, status: status, err: err}
	}
}

// act runs a store change and reloads. status describes the change on
// success.
func (m reviewModel) act(status string, change func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := change(m.ctx); err != nil {
			return loadedMsg{err: err}
		}
		snapshot, err := m.workspace.records.Load(m.ctx)
		return loadedMsg{snapshot: snapshot, status: status, err: err}
	}
}

func (m reviewModel) selected() (ref.UserID, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return ref.UserID{}, false
	}
	owner, err := ref.ParseUserID(m.entries[m.cursor].Owner)
	return owner, err == nil
}

// Update implements tea.Model.
func (m reviewModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case loadedMsg:
		if message.err != nil {
			m.status = "error: " + message.err.Error()
			return m, nil
		}
		var keep func(store.Record) bool
		if !m.all {
			keep = func(record store.Record) bool { return !record.Approved }
		}
		m.entries = entries(message.snapshot, keep)
		m.cursor = max(0, min(m.cursor, len(m.entries)-1))
		m.status = message.status
		m.refreshDetail()
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = message.Width, message.Height
		m.help.Width = message.Width
		m.refreshDetail()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(message)
	}
	return m, nil
}

func (m reviewModel) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		m.confirming = false
		owner, ok := m.selected()
		if message.String() != "y" || !ok {
			m.status = "delete cancelled"
			return m, nil
		}
		return m, m.act("deleted "+owner.String(), func(ctx context.Context) error {
			_, err := m.workspace.machine.AdminRemove(ctx, owner)
			return err
		})
	}

	switch {
	case key.Matches(message, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(message, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.refreshDetail()
		}
	case key.Matches(message, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
			m.refreshDetail()
		}
	case key.Matches(message, m.keys.Approve):
		return m, m.setStatus(true)
	case key.Matches(message, m.keys.Unapprove):
		return m, m.setStatus(false)
	case key.Matches(message, m.keys.Remove):
		if owner, ok := m.selected(); ok {
			m.confirming = true
			m.status = fmt.Sprintf("delete %s? (y/n)", owner)
		}
	case key.Matches(message, m.keys.ToggleAll):
		m.all = !m.all
		return m, m.load("")
	case key.Matches(message, m.keys.Reload):
		return m, m.load("reloaded")
	case key.Matches(message, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m reviewModel) setStatus(approved bool) tea.Cmd {
	owner, ok := m.selected()
	if !ok {
		return nil
	}
	verb := "approved"
	if !approved {
		verb = "unapproved"
	}
	return m.act(verb+" "+owner.String(), func(ctx context.Context) error {
		_, err := m.workspace.machine.SetStatus(ctx, owner, approved)
		return err
	})
}

// listHeight is the rows given to the record list; the card takes the
// rest.
func (m reviewModel) listHeight() int {
	return max(3, min(len(m.entries), m.height/3))
}

func (m *reviewModel) refreshDetail() {
	m.detail.Width = m.width
	m.detail.Height = max(1, m.height-m.listHeight()-4)

	if m.cursor >= len(m.entries) {
		m.detail.SetContent("")
		return
	}
	entry := m.entries[m.cursor]
	owner, _ := ref.ParseUserID(entry.Owner)
	renderer := card.NewTerminalRenderer(m.output, min(m.width, 100))
	m.detail.SetContent(renderer.Render(card.Card{
		Title: entry.AccountID,
		Fields: []card.Field{
			{Name: "Matrix User", Value: entry.Owner, Link: ref.Pill(owner)},
			{Name: "Status", Value: entry.State},
		},
		Thumbnail: m.workspace.identity.AvatarURL(entry.AccountID),
	}))
	m.detail.GotoTop()
}

// View implements tea.Model.
func (m reviewModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(fmt.Sprintf("#%06x", card.Accent)))
	selectedStyle := lipgloss.NewStyle().Reverse(true)

	scope := "pending"
	if m.all {
		scope = "all"
	}
	var builder strings.Builder
	builder.WriteString(titleStyle.Render(fmt.Sprintf("Whitelist review: %d %s", len(m.entries), scope)))
	builder.WriteString("\n")

	if len(m.entries) == 0 {
		builder.WriteString("  nothing to review\n")
	} else {
		rows := m.listHeight()
		first := max(0, min(m.cursor-rows/2, len(m.entries)-rows))
		for index := first; index < min(first+rows, len(m.entries)); index++ {
			entry := m.entries[index]
			line := fmt.Sprintf("%-40s %-32s %s", entry.Owner, entry.AccountID, entry.State)
			if index == m.cursor {
				line = selectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			builder.WriteString(line + "\n")
		}
		builder.WriteString(m.detail.View() + "\n")
	}

	if m.status != "" {
		builder.WriteString(m.status + "\n")
	}
	builder.WriteString(m.help.View(m.keys))
	return builder.String()
}
