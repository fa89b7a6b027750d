// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/mcwhitelist/lib/codec"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// Format is an on-disk encoding of a Snapshot.
type Format interface {
	Name() string
	Encode(Snapshot) ([]byte, error)
	Decode([]byte) (Snapshot, error)
}

// FormatByName returns the Format called name ("json" or "cbor").
func FormatByName(name string) (Format, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	}
	return nil, fmt.Errorf("unknown store format %q (want json or cbor)", name)
}

var (
	// JSON is the indented, key-sorted users.json encoding.
	JSON Format = jsonFormat{}

	// CBOR is the deterministic binary encoding.
	CBOR Format = cborFormat{}
)

type jsonFormat struct{}

func (jsonFormat) Name() string { return "json" }

func (jsonFormat) Encode(snapshot Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(flatten(snapshot), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (jsonFormat) Decode(data []byte) (Snapshot, error) {
	var raw map[string]Record
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, err
	}
	return inflate(raw)
}

type cborFormat struct{}

func (cborFormat) Name() string { return "cbor" }

func (cborFormat) Encode(snapshot Snapshot) ([]byte, error) {
	return codec.Marshal(flatten(snapshot))
}

func (cborFormat) Decode(data []byte) (Snapshot, error) {
	var raw map[string]Record
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return inflate(raw)
}

// flatten keys by string so both encoders sort keys the same way.
func flatten(snapshot Snapshot) map[string]Record {
	raw := make(map[string]Record, len(snapshot))
	for owner, record := range snapshot {
		raw[owner.String()] = record
	}
	return raw
}

func inflate(raw map[string]Record) (Snapshot, error) {
	if raw == nil {
		// A literal null is not a store.
		return nil, fmt.Errorf("store content is null, want an object")
	}
	snapshot := make(Snapshot, len(raw))
	for key, record := range raw {
		owner, err := ref.ParseUserID(key)
		if err != nil {
			return nil, fmt.Errorf("record key: %w", err)
		}
		if record.AccountID == "" {
			return nil, fmt.Errorf("record for %s has no uuid", key)
		}
		record.Owner = owner
		snapshot[owner] = record
	}
	return snapshot, nil
}
