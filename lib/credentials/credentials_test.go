// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/secret"
)

func TestLoadFromEnvironment(t *testing.T) {
	creds, err := LoadFrom(map[string]string{
		"BOT_USER_ID":      "@whitelist:example.org",
		"BOT_ACCESS_TOKEN": "syt_env_token",
	}, t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	defer creds.Close()

	if creds.UserID.String() != "@whitelist:example.org" {
		t.Errorf("UserID = %v", creds.UserID)
	}
	if creds.Token.String() != "syt_env_token" {
		t.Errorf("Token = %q", creds.Token.String())
	}
}

func TestLoadFromEnvironmentIncomplete(t *testing.T) {
	_, err := LoadFrom(map[string]string{"BOT_USER_ID": "@whitelist:example.org"}, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "must be set together") {
		t.Fatalf("err = %v, want incomplete-environment error", err)
	}
}

func TestLoadFallsBackToSessionFile(t *testing.T) {
	stateDir := t.TempDir()
	token, err := secret.NewFromString("syt_file_token")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	defer token.Close()

	userID := ref.MustParseUserID("@whitelist:example.org")
	if err := SaveSession(stateDir, "https://matrix.example.org", userID, token); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	info, err := os.Stat(filepath.Join(stateDir, SessionFile))
	if err != nil {
		t.Fatalf("stat session file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	creds, err := LoadFrom(map[string]string{}, stateDir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	defer creds.Close()

	if creds.UserID != userID {
		t.Errorf("UserID = %v, want %v", creds.UserID, userID)
	}
	if creds.HomeserverURL != "https://matrix.example.org" {
		t.Errorf("HomeserverURL = %q", creds.HomeserverURL)
	}
	if creds.Token.String() != "syt_file_token" {
		t.Errorf("Token = %q", creds.Token.String())
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := LoadFrom(map[string]string{}, t.TempDir())
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("err = %v, want ErrMissing", err)
	}
}

func TestLoadIncompleteSessionFile(t *testing.T) {
	stateDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(stateDir, SessionFile), []byte(`{"user_id":"@whitelist:example.org"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFrom(map[string]string{}, stateDir)
	if err == nil || !strings.Contains(err.Error(), "incomplete") {
		t.Fatalf("err = %v, want incomplete session error", err)
	}
}

func TestLoadInvalidUserID(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"BOT_USER_ID":      "whitelist",
		"BOT_ACCESS_TOKEN": "token",
	}, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "BOT_USER_ID") {
		t.Fatalf("err = %v, want invalid BOT_USER_ID", err)
	}
}
