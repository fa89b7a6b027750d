// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	var buffer bytes.Buffer
	output := Output{Writer: &buffer}

	var none []string
	if err := output.WriteJSON(none); err != nil {
		t.Fatal(err)
	}
	if buffer.String() != "[]\n" {
		t.Errorf("nil slice = %q, want []", buffer.String())
	}

	buffer.Reset()
	if err := output.WriteJSON(map[string]int{"pending": 2}); err != nil {
		t.Fatal(err)
	}
	if buffer.String() != "{\n  \"pending\": 2\n}\n" {
		t.Errorf("map = %q", buffer.String())
	}
}

func TestWriteJSONColor(t *testing.T) {
	var buffer bytes.Buffer
	output := Output{Writer: &buffer, Color: true}
	if err := output.WriteJSON(map[string]bool{"whitelisted": true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buffer.String(), "\x1b[") {
		t.Errorf("highlighted output has no escape sequences: %q", buffer.String())
	}
	if !strings.Contains(buffer.String(), "whitelisted") {
		t.Errorf("highlighted output lost content: %q", buffer.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}
