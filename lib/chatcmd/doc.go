// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatcmd routes prefixed chat messages to registered commands.
//
// A [Registry] holds commands in registration order. A [Dispatcher]
// takes a [Message], strips the command prefix, and runs the named
// command through a fixed pipeline:
//
//  1. caller permission check, then bot permission check
//  2. per-user cooldown
//  3. argument parsing against the command's declared [Arg] list
//  4. the command's Run function
//
// Any failure along the way is classified into the user-facing reply:
// a missing or unparseable argument, a cooldown with the time left,
// missing permissions (humanised, e.g. "Manage Roles"), a [UserError]
// shown verbatim, a [StorageError] asking the caller to retry, or an
// unclassified failure shown with a generic message and the operator's
// mention.
//
// An unknown command name is compared against every registered name
// with [similarity.Ratio]. The best match is suggested when its score
// reaches [SuggestionThreshold]; earlier-registered commands win ties.
package chatcmd
