// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the long-running scaffolding of the bot
// binary:
//
//   - Connect: build a Matrix session from loaded credentials and check
//     the token with WhoAmI before anything else runs.
//   - Sync loop: an initial /sync for the starting token, then the
//     incremental long-poll with exponential backoff, delivering each
//     response to a caller-provided handler.
//   - SyncPosition: the last handled next_batch token, kept in the
//     state directory so a restart resumes where the bot stopped.
//
// The binary composes these in its own run function. The package
// provides building blocks, not a runtime.
package service
