// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const notchID = "069a79f444e94726a5befca90e38aaf5"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		APIURL:     server.URL,
		RenderURL:  "https://render.example.org/",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Notch", true},
		{"abc", true},
		{"a_b_c_d_e_f_g_h_", true},
		{"ab", false},
		{"a_b_c_d_e_f_g_h_i", false},
		{"has space", false},
		{"dash-name", false},
		{"ünïcode", false},
		{"", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ValidName(test.name); got != test.want {
				t.Errorf("ValidName(%q) = %v, want %v", test.name, got, test.want)
			}
		})
	}
}

func TestResolveByName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/profiles/minecraft/notch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"name":"Notch","id":"` + notchID + `"}`))
	})

	profile, err := client.ResolveByName(context.Background(), "notch")
	if err != nil {
		t.Fatalf("ResolveByName: %v", err)
	}
	if profile.Name != "Notch" || profile.ID != notchID {
		t.Errorf("profile = %+v", profile)
	}
}

func TestResolveByNameFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no content", http.StatusNoContent, "", ErrNotFound},
		{"bad request", http.StatusBadRequest, `{"error":"IllegalArgumentException"}`, ErrNotFound},
		{"not found", http.StatusNotFound, `{"errorMessage":"Couldn't find any profile"}`, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, "", ErrUnavailable},
		{"server error", http.StatusInternalServerError, "", ErrUnavailable},
		{"not json", http.StatusOK, "<html>", ErrUnavailable},
		{"id not a uuid", http.StatusOK, `{"name":"Notch","id":"nope"}`, ErrUnavailable},
		{"missing name", http.StatusOK, `{"id":"` + notchID + `"}`, ErrUnavailable},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				w.Write([]byte(test.body))
			})
			_, err := client.ResolveByName(context.Background(), "Notch")
			if !errors.Is(err, test.wantErr) {
				t.Errorf("err = %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestResolveByNameTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Config{APIURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.ResolveByName(context.Background(), "Notch"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestNameHistoryAndResolveByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/profiles/"+notchID+"/names" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"name":"Steve"},{"name":"Alex","changedToAt":1423059891000},{"name":"Notch","changedToAt":1500000000000}]`))
	})
	ctx := context.Background()

	history, err := client.NameHistory(ctx, notchID)
	if err != nil {
		t.Fatalf("NameHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	if history[0].Name != "Steve" || !history[0].ChangedAt.IsZero() {
		t.Errorf("history[0] = %+v", history[0])
	}
	if want := time.UnixMilli(1423059891000).UTC(); !history[1].ChangedAt.Equal(want) {
		t.Errorf("history[1].ChangedAt = %v, want %v", history[1].ChangedAt, want)
	}

	current, err := client.ResolveByID(ctx, notchID)
	if err != nil {
		t.Fatalf("ResolveByID: %v", err)
	}
	if current != "Notch" {
		t.Errorf("ResolveByID = %q, want most recent name Notch", current)
	}
}

func TestNameHistoryFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no content", http.StatusNoContent, "", ErrNotFound},
		{"bad request", http.StatusBadRequest, "", ErrNotFound},
		{"unavailable", http.StatusServiceUnavailable, "", ErrUnavailable},
		{"empty history", http.StatusOK, "[]", ErrUnavailable},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				w.Write([]byte(test.body))
			})
			if _, err := client.ResolveByID(context.Background(), notchID); !errors.Is(err, test.wantErr) {
				t.Errorf("err = %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestRenderURLs(t *testing.T) {
	client, err := NewClient(Config{APIURL: "https://api.example.org", RenderURL: "https://render.example.org/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got, want := client.AvatarURL(notchID), "https://render.example.org/avatars/"+notchID+"?overlay"; got != want {
		t.Errorf("AvatarURL = %q, want %q", got, want)
	}
	if got, want := client.BodyRenderURL(notchID), "https://render.example.org/renders/body/"+notchID+"?overlay"; got != want {
		t.Errorf("BodyRenderURL = %q, want %q", got, want)
	}
}

func TestObserveRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/profiles/minecraft/Notch" {
			w.Write([]byte(`{"name":"Notch","id":"` + notchID + `"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var endpoints []string
	client, err := NewClient(Config{
		APIURL:     server.URL,
		HTTPClient: server.Client(),
		Observe: func(endpoint string, duration time.Duration) {
			if duration < 0 {
				t.Errorf("negative duration %v", duration)
			}
			endpoints = append(endpoints, endpoint)
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.ResolveByName(context.Background(), "Notch"); err != nil {
		t.Fatalf("ResolveByName: %v", err)
	}
	if _, err := client.NameHistory(context.Background(), notchID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("NameHistory error = %v, want ErrNotFound", err)
	}
	if len(endpoints) != 2 || endpoints[0] != "profile" || endpoints[1] != "names" {
		t.Errorf("observed endpoints = %v", endpoints)
	}
}
