// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/mcwhitelist/lib/clock"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

type syncResult struct {
	response *messaging.SyncResponse
	err      error
}

// scriptedSession answers Sync from a fixed script, then blocks until
// the context ends. Other calls are not used by the sync loop except
// JoinRoom.
type scriptedSession struct {
	mu      sync.Mutex
	script  []syncResult
	since   []string
	joined  []ref.RoomID
	joinErr map[ref.RoomID]error
}

func (s *scriptedSession) UserID() ref.UserID { return ref.MustParseUserID("@whitelist:example.org") }

func (s *scriptedSession) WhoAmI(context.Context) (ref.UserID, error) { return s.UserID(), nil }

func (s *scriptedSession) Sync(ctx context.Context, options messaging.SyncOptions) (*messaging.SyncResponse, error) {
	s.mu.Lock()
	s.since = append(s.since, options.Since)
	if len(s.script) == 0 {
		s.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	next := s.script[0]
	s.script = s.script[1:]
	s.mu.Unlock()
	return next.response, next.err
}

func (s *scriptedSession) JoinRoom(_ context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	if err := s.joinErr[roomID]; err != nil {
		return ref.RoomID{}, err
	}
	s.joined = append(s.joined, roomID)
	return roomID, nil
}

func (s *scriptedSession) CreateRoom(context.Context, messaging.CreateRoomRequest) (*messaging.CreateRoomResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *scriptedSession) SendMessage(context.Context, ref.RoomID, messaging.MessageContent) (string, error) {
	return "", errors.New("not implemented")
}

func (s *scriptedSession) GetStateEvent(context.Context, ref.RoomID, string, string) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (s *scriptedSession) SendStateEvent(context.Context, ref.RoomID, string, string, any) (string, error) {
	return "", errors.New("not implemented")
}

func (s *scriptedSession) GetAccountData(context.Context, string) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (s *scriptedSession) SetAccountData(context.Context, string, any) error {
	return errors.New("not implemented")
}

func (s *scriptedSession) sinceTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.since...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func batch(token string) syncResult {
	return syncResult{response: &messaging.SyncResponse{NextBatch: token}}
}

func TestInitialSync(t *testing.T) {
	session := &scriptedSession{script: []syncResult{batch("s1")}}
	token, response, err := InitialSync(context.Background(), session, `{}`)
	if err != nil {
		t.Fatalf("InitialSync: %v", err)
	}
	if token != "s1" || response.NextBatch != "s1" {
		t.Errorf("token = %q", token)
	}
	if since := session.sinceTokens(); since[0] != "" {
		t.Errorf("initial sync sent since=%q", since[0])
	}
}

func TestRunSyncLoopDeliversAndAdvancesToken(t *testing.T) {
	session := &scriptedSession{script: []syncResult{batch("s2"), batch("s3")}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var delivered []string
	handler := func(_ context.Context, response *messaging.SyncResponse) {
		delivered = append(delivered, response.NextBatch)
		if len(delivered) == 2 {
			cancel()
		}
	}

	err := RunSyncLoop(ctx, session, SyncConfig{Logger: discardLogger()}, "s1", handler)
	if err != nil {
		t.Fatalf("RunSyncLoop = %v, want nil on cancel", err)
	}
	if len(delivered) != 2 || delivered[1] != "s3" {
		t.Errorf("delivered = %v", delivered)
	}
	since := session.sinceTokens()
	if since[0] != "s1" || since[1] != "s2" {
		t.Errorf("since tokens = %v", since)
	}
}

func TestRunSyncLoopSavesPosition(t *testing.T) {
	position := NewSyncPosition(t.TempDir())
	session := &scriptedSession{script: []syncResult{batch("s2"), batch("s3")}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var saved []string
	handler := func(_ context.Context, response *messaging.SyncResponse) {
		// The token is saved only after the handler returns.
		token, err := position.Load()
		if err != nil {
			t.Errorf("Load: %v", err)
		}
		saved = append(saved, token)
		if response.NextBatch == "s3" {
			cancel()
		}
	}

	err := RunSyncLoop(ctx, session, SyncConfig{Position: position, Logger: discardLogger()}, "s1", handler)
	if err != nil {
		t.Fatalf("RunSyncLoop = %v", err)
	}
	if len(saved) != 2 || saved[0] != "" || saved[1] != "s2" {
		t.Errorf("position seen by handler = %q, want [\"\" \"s2\"]", saved)
	}
	if token, err := position.Load(); err != nil || token != "s3" {
		t.Errorf("Load() = %q, %v; want s3", token, err)
	}
}

func TestSyncPosition(t *testing.T) {
	directory := t.TempDir()
	position := NewSyncPosition(directory)

	token, err := position.Load()
	if err != nil || token != "" {
		t.Fatalf("Load() before save = %q, %v; want empty", token, err)
	}

	for _, want := range []string{"s72594_4483_1934", "s72595_4483_1935"} {
		if err := position.Save(want); err != nil {
			t.Fatalf("Save(%q): %v", want, err)
		}
		// A fresh value reads what the previous process wrote.
		if token, err := NewSyncPosition(directory).Load(); err != nil || token != want {
			t.Errorf("Load() = %q, %v; want %q", token, err, want)
		}
	}
	if _, err := os.Stat(position.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}

	missing := NewSyncPosition(filepath.Join(directory, "absent"))
	if err := missing.Save("s1"); err == nil {
		t.Error("Save into a missing directory succeeded")
	}
}

func TestRunSyncLoopBacksOff(t *testing.T) {
	transient := errors.New("connection reset")
	session := &scriptedSession{script: []syncResult{
		{err: transient},
		{err: transient},
		batch("s2"),
	}}
	fakeClock := clock.Fake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- RunSyncLoop(ctx, session, SyncConfig{Clock: fakeClock, Logger: discardLogger()}, "s1",
			func(_ context.Context, response *messaging.SyncResponse) { delivered <- response.NextBatch })
	}()

	// First failure waits one second.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)

	// Second failure waits two.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)
	if fakeClock.PendingCount() != 1 {
		t.Fatal("second backoff fired after one second")
	}
	fakeClock.Advance(time.Second)

	select {
	case token := <-delivered:
		if token != "s2" {
			t.Errorf("delivered %q", token)
		}
	case <-t.Context().Done():
		t.Fatal("no response delivered after backoff")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("RunSyncLoop = %v", err)
	}
	since := session.sinceTokens()
	if since[0] != "s1" || since[1] != "s1" || since[2] != "s1" {
		t.Errorf("retries used since tokens %v, want s1", since)
	}
}

func TestRunSyncLoopStopsOnAuthError(t *testing.T) {
	session := &scriptedSession{script: []syncResult{{
		err: &messaging.MatrixError{Code: messaging.ErrCodeUnknownToken, StatusCode: 401},
	}}}
	err := RunSyncLoop(context.Background(), session, SyncConfig{Logger: discardLogger()}, "s1",
		func(context.Context, *messaging.SyncResponse) { t.Error("handler called") })
	if !messaging.IsAuthError(err) {
		t.Errorf("RunSyncLoop = %v, want the auth error", err)
	}
}

func TestAcceptInvites(t *testing.T) {
	good := ref.MustParseRoomID("!staff:example.org")
	bad := ref.MustParseRoomID("!gone:example.org")
	session := &scriptedSession{joinErr: map[ref.RoomID]error{bad: errors.New("room gone")}}

	accepted := AcceptInvites(context.Background(), session, map[ref.RoomID]messaging.InvitedRoom{
		good: {},
		bad:  {},
	}, discardLogger())
	if len(accepted) != 1 || accepted[0] != good {
		t.Errorf("accepted = %v, want only %v", accepted, good)
	}
}
