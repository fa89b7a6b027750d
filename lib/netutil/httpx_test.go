// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"strings"
	"testing"
)

func TestDecodeResponse(t *testing.T) {
	var profile struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	}
	body := strings.NewReader(`{"name":"Notch","id":"069a79f444e94726a5befca90e38aaf5"}`)
	if err := DecodeResponse(body, &profile); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if profile.Name != "Notch" || profile.ID != "069a79f444e94726a5befca90e38aaf5" {
		t.Errorf("decoded %+v", profile)
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	var target map[string]any
	if err := DecodeResponse(strings.NewReader("<html>"), &target); err == nil {
		t.Fatal("expected an error for a non-JSON body")
	}
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("upstream exploded")); got != "upstream exploded" {
		t.Errorf("ErrorBody = %q", got)
	}
}
