// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/mcwhitelist/lib/cli"
	"github.com/bureau-foundation/mcwhitelist/lib/config"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist/store"
)

const (
	notchID = "069a79f444e94726a5befca90e38aaf5"
	jebID   = "853c80ef3c3749fdaa49938b674adae6"
)

var (
	steve = ref.MustParseUserID("@steve:example.org")
	alex  = ref.MustParseUserID("@alex:example.org")
)

type harness struct {
	environment *environment
	stdout      *bytes.Buffer
	stderr      *bytes.Buffer
	configPath  string
	records     *store.File
}

// newHarness writes a config whose store holds steve (pending, Notch)
// and alex (approved, jeb_), and points the identity API at a fake.
func newHarness(t *testing.T) *harness {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/profiles/minecraft/{name}", func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(r.PathValue("name"), "notch") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fmt.Fprintf(w, `{"name":"Notch","id":%q}`, notchID)
	})
	mux.HandleFunc("GET /user/profiles/{id}/names", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case notchID:
			fmt.Fprint(w, `[{"name":"Notch_old"},{"name":"Notch","changedToAt":1420070400000}]`)
		case jebID:
			fmt.Fprint(w, `[{"name":"jeb_"}]`)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	directory := t.TempDir()
	storePath := filepath.Join(directory, "users.json")
	configPath := filepath.Join(directory, "config.yaml")
	configText := fmt.Sprintf(`homeserver: https://matrix.example.org
state_dir: %s
rooms:
  requests: "!staff:example.org"
store:
  path: %s
identity:
  api_url: %s
  render_url: https://render.example.org
`, directory, storePath, server.URL)
	if err := os.WriteFile(configPath, []byte(configText), 0o600); err != nil {
		t.Fatal(err)
	}

	records, err := store.New(store.Config{Path: storePath})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := records.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := records.Put(ctx, steve, store.Record{AccountID: notchID}); err != nil {
		t.Fatal(err)
	}
	if err := records.Put(ctx, alex, store.Record{AccountID: jebID, Approved: true}); err != nil {
		t.Fatal(err)
	}

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	return &harness{
		environment: &environment{
			stdout:     cli.Output{Writer: stdout},
			stderr:     stderr,
			logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
			httpClient: server.Client(),
		},
		stdout:     stdout,
		stderr:     stderr,
		configPath: configPath,
		records:    records,
	}
}

func (h *harness) run(args ...string) error {
	h.stdout.Reset()
	if len(args) > 0 && args[0] != "version" {
		args = append(args, "--config", h.configPath)
	}
	return rootCommand(h.environment).Execute(args)
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := h.run(args...); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return h.stdout.String()
}

func (h *harness) record(t *testing.T, owner ref.UserID) (store.Record, bool) {
	t.Helper()
	record, ok, err := h.records.Get(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	return record, ok
}

func TestList(t *testing.T) {
	h := newHarness(t)

	output := h.mustRun(t, "list")
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Fatalf("list printed %d lines, want header and 2 rows:\n%s", len(lines), output)
	}
	if fields := strings.Fields(lines[0]); strings.Join(fields, " ") != "OWNER ACCOUNT STATE" {
		t.Errorf("header = %q", lines[0])
	}
	// Rows are in owner order.
	if fields := strings.Fields(lines[1]); fields[0] != alex.String() || fields[2] != "approved" {
		t.Errorf("first row = %q", lines[1])
	}
	if fields := strings.Fields(lines[2]); fields[0] != steve.String() || fields[1] != notchID || fields[2] != "pending" {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestListFilters(t *testing.T) {
	tests := []struct {
		flag string
		want []recordEntry
	}{
		{"--pending", []recordEntry{{Owner: steve.String(), AccountID: notchID, State: "pending"}}},
		{"--approved", []recordEntry{{Owner: alex.String(), AccountID: jebID, State: "approved"}}},
	}
	for _, test := range tests {
		t.Run(test.flag, func(t *testing.T) {
			h := newHarness(t)
			var got []recordEntry
			if err := json.Unmarshal([]byte(h.mustRun(t, "list", test.flag, "--json")), &got); err != nil {
				t.Fatal(err)
			}
			if len(got) != len(test.want) || got[0] != test.want[0] {
				t.Errorf("list %s = %+v, want %+v", test.flag, got, test.want)
			}
		})
	}
}

func TestListEmptyJSONIsArray(t *testing.T) {
	h := newHarness(t)
	if err := h.records.Save(context.Background(), store.Snapshot{}); err != nil {
		t.Fatal(err)
	}
	if output := strings.TrimSpace(h.mustRun(t, "list", "--json")); output != "[]" {
		t.Errorf("empty list JSON = %q, want []", output)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"exclusive filters", []string{"list", "--pending", "--approved"}, "mutually exclusive"},
		{"unknown command", []string{"lst"}, `did you mean "list"`},
		{"unknown flag", []string{"list", "--pendng"}, "did you mean --pending"},
		{"bad owner", []string{"remove", "steve"}, "is not a Matrix user ID"},
		{"bad status", []string{"set-status", "@steve:example.org", "maybe"}, "is not true or false"},
		{"missing argument", []string{"set-status", "@steve:example.org"}, "missing argument <status>"},
		{"extra argument", []string{"stats", "extra"}, `unexpected argument "extra"`},
		{"export without output", []string{"export"}, "--output is required"},
		{"export bad format", []string{"export", "--format", "xml", "--output", "-"}, "unknown store format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(test.args...)
			var usage *cli.UsageError
			if !errors.As(err, &usage) {
				t.Fatalf("error = %v, want a usage error", err)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %q, want it to contain %q", err, test.want)
			}
			if code, _ := cli.ExitCode(err); code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
		})
	}
}

func TestMissingConfig(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	h := newHarness(t)
	err := rootCommand(h.environment).Execute([]string{"list"})
	if err == nil || !strings.Contains(err.Error(), config.EnvironmentVariable) {
		t.Errorf("error = %v, want a pointer to %s", err, config.EnvironmentVariable)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.EnvironmentVariable, h.configPath)
	if err := rootCommand(h.environment).Execute([]string{"stats"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "total:    2") {
		t.Errorf("stats = %q", h.stdout.String())
	}
}

func TestSetStatus(t *testing.T) {
	h := newHarness(t)

	output := h.mustRun(t, "set-status", "https://matrix.to/#/@steve:example.org", "true")
	if output != "@steve:example.org ("+notchID+") is now approved\n" {
		t.Errorf("output = %q", output)
	}
	if record, _ := h.record(t, steve); !record.Approved {
		t.Error("record not approved")
	}

	err := h.run("set-status", "@nobody:example.org", "true")
	if err == nil || !strings.Contains(err.Error(), "has no whitelist record") {
		t.Errorf("absent member error = %v", err)
	}
}

func TestRemove(t *testing.T) {
	h := newHarness(t)

	output := h.mustRun(t, "remove", "@alex:example.org")
	want := "removed @alex:example.org (" + jebID + ")\n" +
		"@alex:example.org was approved: remove jeb_ from the server whitelist\n"
	if output != want {
		t.Errorf("output = %q, want %q", output, want)
	}
	if _, ok := h.record(t, alex); ok {
		t.Error("record still present")
	}

	output = h.mustRun(t, "remove", "@steve:example.org")
	if strings.Contains(output, "server whitelist") {
		t.Errorf("pending removal mentions the server whitelist: %q", output)
	}

	if err := h.run("remove", "@steve:example.org"); err == nil {
		t.Error("second remove succeeded")
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	want, err := h.records.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	destination := filepath.Join(t.TempDir(), "users.cbor")
	h.mustRun(t, "export", "--format", "cbor", "--output", destination)
	data, err := os.ReadFile(destination)
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.CBOR.Decode(data)
	if err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if len(got) != len(want) || got[steve] != want[steve] || got[alex] != want[alex] {
		t.Errorf("exported %+v, want %+v", got, want)
	}

	var layout map[string]map[string]any
	if err := json.Unmarshal([]byte(h.mustRun(t, "export", "--output", "-")), &layout); err != nil {
		t.Fatal(err)
	}
	if layout[steve.String()]["uuid"] != notchID || layout[steve.String()]["whitelisted"] != false {
		t.Errorf("JSON export entry = %v", layout[steve.String()])
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	var stats statsEntry
	if err := json.Unmarshal([]byte(h.mustRun(t, "stats", "--json")), &stats); err != nil {
		t.Fatal(err)
	}
	if stats != (statsEntry{Pending: 1, Approved: 1, Total: 2}) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestShowJSON(t *testing.T) {
	h := newHarness(t)

	for _, target := range []string{"@steve:example.org", "notch"} {
		var profile profileEntry
		if err := json.Unmarshal([]byte(h.mustRun(t, "show", target, "--json")), &profile); err != nil {
			t.Fatal(err)
		}
		if profile.Name != "Notch" || profile.AccountID != notchID || profile.Owner != steve.String() || profile.State != "pending" {
			t.Errorf("show %s = %+v", target, profile)
		}
		if len(profile.History) != 2 || profile.History[0].ChangedAt != nil || profile.History[1].ChangedAt == nil {
			t.Errorf("show %s history = %+v", target, profile.History)
		}
	}

	err := h.run("show", "Herobrine")
	if err == nil || !strings.Contains(err.Error(), "no game account named Herobrine") {
		t.Errorf("unknown name error = %v", err)
	}
}

func TestShowCard(t *testing.T) {
	h := newHarness(t)
	output := h.mustRun(t, "show", "@steve:example.org", "--width", "60")
	if !strings.HasPrefix(output, "╭") {
		t.Errorf("card does not start with a border:\n%s", output)
	}
	for _, want := range []string{"Notch", "Notch_old", notchID, "@steve:example.org"} {
		if !strings.Contains(output, want) {
			t.Errorf("card missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Errorf("card written to a non-terminal contains escape sequences:\n%q", output)
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	if output := h.mustRun(t, "version"); !strings.HasPrefix(output, "whitelistctl ") {
		t.Errorf("version = %q", output)
	}
}
