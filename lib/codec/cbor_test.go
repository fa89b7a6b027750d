// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

type entry struct {
	AccountID string `json:"uuid"`
	Approved  bool   `json:"whitelisted"`
}

func TestMarshalDeterministic(t *testing.T) {
	snapshot := map[string]entry{
		"@zed:example.org":   {AccountID: "b", Approved: true},
		"@alice:example.org": {AccountID: "a"},
	}

	first, err := Marshal(snapshot)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(snapshot)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding of identical data differed between calls")
		}
	}

	var decoded map[string]entry
	if err := Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := decoded["@zed:example.org"]; got != (entry{AccountID: "b", Approved: true}) {
		t.Errorf("decoded zed = %+v", got)
	}
}

func TestUserIDAsTextString(t *testing.T) {
	type owned struct {
		Owner ref.UserID `json:"owner"`
	}
	original := owned{Owner: ref.MustParseUserID("@steve:example.org")}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"@steve:example.org"`) {
		t.Errorf("user ID not encoded as text: %s", diagnostic)
	}

	var decoded owned
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Owner != original.Owner {
		t.Errorf("round trip = %v, want %v", decoded.Owner, original.Owner)
	}
}

func TestJSONTagsShareFieldNames(t *testing.T) {
	data, err := Marshal(entry{AccountID: "069a79f4", Approved: true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	for _, key := range []string{`"uuid"`, `"whitelisted"`} {
		if !strings.Contains(diagnostic, key) {
			t.Errorf("diagnostic %s missing key %s", diagnostic, key)
		}
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"uuid": "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Errorf("decoded type %T, want map[string]any", decoded)
	}
}
