// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the slice of the Matrix client-server API the
// whitelist bot uses.
//
// [Client] holds the homeserver URL and HTTP transport. [DirectSession]
// adds an access token (kept in mmap-backed [secret.Buffer] memory) and
// exposes the authenticated calls: incremental sync, sending messages
// and state events, joining and creating rooms, reading power levels and
// member state, and the m.direct account data that maps users to their
// direct-message rooms. [Session] is the interface the bot programs
// against, so tests can substitute a fake.
//
// All API errors are returned as [*MatrixError] carrying the Matrix error
// code and HTTP status. [IsMatrixError] tests for a specific code.
// Request URLs are built by string concatenation with path-escaped
// segments rather than through url.URL, which re-encodes paths.
package messaging
