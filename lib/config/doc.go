// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the whitelist bot's configuration file.
//
// Configuration comes from a single file named by the WHITELIST_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery and no environment override of
// individual values; the file is the single source of truth.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas allowed (tidwall/jsonc). The flat settings.json shape
// used by earlier deployments, {"request_channel": "..."}, is accepted:
// request_channel is an alias of rooms.requests. Every other extension
// is parsed as YAML.
//
// After loading, ${VAR} and ${VAR:-default} patterns in path fields
// are expanded; ${STATE_DIR} refers to the configured state_dir.
// [Config.Validate] reports every problem at once via errors.Join.
package config
