// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists whitelist records in a single file mapping
// each Matrix user ID to its record.
//
// Every operation is a complete cycle over the file: read the whole
// snapshot, change it, write the whole snapshot back. Writes replace the
// file atomically (temporary file, fsync, rename, directory fsync), so a
// reader sees either the old snapshot or the new one. Each cycle holds
// an in-process mutex and an advisory flock(2) on "<path>.lock", which
// lets the operator CLI edit the store while the bot is running.
//
// Two encodings are supported. JSON (the default) is indented with
// sorted keys and uses the field names of the original users.json:
//
//	{
//	  "@steve:example.org": {
//	    "uuid": "069a79f444e94726a5befca90e38aaf5",
//	    "whitelisted": false
//	  }
//	}
//
// The JSON reader accepts comments and trailing commas so hand-edited
// files load. CBOR uses Core Deterministic Encoding. With either
// encoding, saving a snapshot identical to the file's content leaves
// the file untouched: the encoded bytes are compared by BLAKE3 digest
// before writing.
//
// Failures reading, decoding or writing the file are reported as
// [*Error] values that match [ErrStorage] under errors.Is.
package store
