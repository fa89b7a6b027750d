// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bureau-foundation/mcwhitelist/lib/credentials"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/secret"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

func whoamiServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_matrix/client/v3/account/whoami" {
			t.Errorf("unexpected request %s", r.URL.Path)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func testCredentials(t *testing.T, homeserver string) *credentials.Credentials {
	t.Helper()
	token, err := secret.NewFromString("syt_token")
	if err != nil {
		t.Fatal(err)
	}
	return &credentials.Credentials{
		UserID:        ref.MustParseUserID("@whitelist:example.org"),
		HomeserverURL: homeserver,
		Token:         token,
	}
}

func TestConnect(t *testing.T) {
	server := whoamiServer(t, http.StatusOK, `{"user_id":"@whitelist:example.org"}`)

	session, err := Connect(context.Background(), testCredentials(t, server.URL), ConnectConfig{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()
	if session.UserID().String() != "@whitelist:example.org" {
		t.Errorf("UserID = %v", session.UserID())
	}
}

func TestConnectHomeserverOverride(t *testing.T) {
	server := whoamiServer(t, http.StatusOK, `{"user_id":"@whitelist:example.org"}`)

	session, err := Connect(context.Background(), testCredentials(t, "http://unreachable.invalid"),
		ConnectConfig{HomeserverURL: server.URL, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	session.Close()
}

func TestConnectFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"rejected token", http.StatusUnauthorized, `{"errcode":"M_UNKNOWN_TOKEN","error":"Invalid"}`, "M_UNKNOWN_TOKEN"},
		{"other user", http.StatusOK, `{"user_id":"@someone:example.org"}`, "belongs to @someone:example.org"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := whoamiServer(t, test.status, test.body)
			_, err := Connect(context.Background(), testCredentials(t, server.URL), ConnectConfig{Logger: discardLogger()})
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("Connect error = %v, want %q", err, test.want)
			}
		})
	}

	t.Run("no homeserver", func(t *testing.T) {
		_, err := Connect(context.Background(), testCredentials(t, ""), ConnectConfig{})
		if err == nil {
			t.Error("Connect succeeded without a homeserver")
		}
	})
}

var _ messaging.Session = (*scriptedSession)(nil)
