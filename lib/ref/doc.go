// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated value types for the Matrix identifiers
// the whitelist bot handles: user IDs (the owner key of every whitelist
// record) and room IDs (the staff, community, and direct-message rooms).
//
// Identifiers are parsed once at the boundary (config files, /sync
// responses, command arguments) and carried as immutable values after
// that. Both types implement encoding.TextMarshaler so they can be used
// directly as JSON fields and map keys.
package ref
