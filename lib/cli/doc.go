// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command tree behind whitelistctl: nested
// subcommands, pflag flag sets parsed lazily per command, structured
// help, and "did you mean" suggestions for mistyped commands and flags.
//
// Output helpers write JSON for scripts and syntax-highlight it when
// stdout is a terminal. NewCommandLogger picks a text or JSON slog
// handler depending on whether stderr is a terminal.
package cli
