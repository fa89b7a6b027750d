// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

var (
	steve = ref.MustParseUserID("@steve:example.org")
	alex  = ref.MustParseUserID("@alex:example.org")
)

const (
	steveAccount = "069a79f444e94726a5befca90e38aaf5"
	alexAccount  = "853c80ef3c3749fdaa49938b674adae6"
)

func newStore(t *testing.T, format Format) *File {
	t.Helper()
	file, err := New(Config{Path: filepath.Join(t.TempDir(), "users.json"), Format: format})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := file.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return file
}

func TestInitCreatesEmptyStore(t *testing.T) {
	file := newStore(t, JSON)

	data, err := os.ReadFile(file.Path())
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	if string(data) != "{}\n" {
		t.Errorf("initial content = %q, want {}", data)
	}

	snapshot, err := file.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("len(snapshot) = %d, want 0", len(snapshot))
	}
}

func TestInitLeavesExistingFile(t *testing.T) {
	file := newStore(t, JSON)
	ctx := context.Background()
	if err := file.Put(ctx, steve, Record{AccountID: steveAccount}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := file.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if _, ok, _ := file.Get(ctx, steve); !ok {
		t.Error("Init overwrote an existing store")
	}
}

func TestPutGetDelete(t *testing.T) {
	for _, format := range []Format{JSON, CBOR} {
		t.Run(format.Name(), func(t *testing.T) {
			file := newStore(t, format)
			ctx := context.Background()

			if err := file.Put(ctx, steve, Record{AccountID: steveAccount}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			record, ok, err := file.Get(ctx, steve)
			if err != nil || !ok {
				t.Fatalf("Get = %+v, %v, %v", record, ok, err)
			}
			want := Record{Owner: steve, AccountID: steveAccount}
			if record != want {
				t.Errorf("Get = %+v, want %+v", record, want)
			}

			removed, found, err := file.Delete(ctx, steve)
			if err != nil || !found || removed != want {
				t.Fatalf("Delete = %+v, %v, %v", removed, found, err)
			}
			if _, ok, _ := file.Get(ctx, steve); ok {
				t.Error("record still present after Delete")
			}

			if _, found, err := file.Delete(ctx, steve); found || err != nil {
				t.Errorf("second Delete = %v, %v; want not found", found, err)
			}
		})
	}
}

func TestJSONLayout(t *testing.T) {
	file := newStore(t, JSON)
	ctx := context.Background()
	if err := file.Put(ctx, steve, Record{AccountID: steveAccount, Approved: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := file.Put(ctx, alex, Record{AccountID: alexAccount}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	want := `{
  "@alex:example.org": {
    "uuid": "853c80ef3c3749fdaa49938b674adae6",
    "whitelisted": false
  },
  "@steve:example.org": {
    "uuid": "069a79f444e94726a5befca90e38aaf5",
    "whitelisted": true
  }
}
`
	data, err := os.ReadFile(file.Path())
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	if string(data) != want {
		t.Errorf("store content:\n%s\nwant:\n%s", data, want)
	}
}

func TestSaveOfLoadIsNoOp(t *testing.T) {
	for _, format := range []Format{JSON, CBOR} {
		t.Run(format.Name(), func(t *testing.T) {
			file := newStore(t, format)
			ctx := context.Background()
			if err := file.Put(ctx, steve, Record{AccountID: steveAccount, Approved: true}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := file.Put(ctx, alex, Record{AccountID: alexAccount}); err != nil {
				t.Fatalf("Put: %v", err)
			}

			before, err := os.ReadFile(file.Path())
			if err != nil {
				t.Fatal(err)
			}
			infoBefore, err := os.Stat(file.Path())
			if err != nil {
				t.Fatal(err)
			}

			snapshot, err := file.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := file.Save(ctx, snapshot); err != nil {
				t.Fatalf("Save: %v", err)
			}

			after, err := os.ReadFile(file.Path())
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(before, after) {
				t.Errorf("Save(Load()) changed the file:\nbefore %q\nafter  %q", before, after)
			}
			infoAfter, err := os.Stat(file.Path())
			if err != nil {
				t.Fatal(err)
			}
			if !os.SameFile(infoBefore, infoAfter) {
				t.Error("Save(Load()) replaced the file instead of skipping the write")
			}
		})
	}
}

func TestLoadTolerantJSON(t *testing.T) {
	file := newStore(t, JSON)
	content := `{
  // approved by moderators on the 3rd
  "@steve:example.org": {"uuid": "069a79f444e94726a5befca90e38aaf5", "whitelisted": true,},
}`
	if err := os.WriteFile(file.Path(), []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
	record, ok, err := file.Get(context.Background(), steve)
	if err != nil || !ok || !record.Approved {
		t.Errorf("Get = %+v, %v, %v", record, ok, err)
	}
}

func TestLoadFailuresAreStorageErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "users go here"},
		{"null", "null"},
		{"array", "[]"},
		{"bad key", `{"616032766974361640": {"uuid": "x", "whitelisted": false}}`},
		{"missing uuid", `{"@steve:example.org": {"whitelisted": false}}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			file := newStore(t, JSON)
			if err := os.WriteFile(file.Path(), []byte(test.content), 0o640); err != nil {
				t.Fatal(err)
			}
			_, err := file.Load(context.Background())
			if !errors.Is(err, ErrStorage) {
				t.Errorf("Load err = %v, want ErrStorage", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	file, err := New(Config{Path: filepath.Join(t.TempDir(), "absent.json")})
	if err != nil {
		t.Fatal(err)
	}
	_, err = file.Load(context.Background())
	if !errors.Is(err, ErrStorage) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load err = %v, want ErrStorage wrapping ErrNotExist", err)
	}
}

func TestUpdateErrorAbortsWithoutSaving(t *testing.T) {
	file := newStore(t, JSON)
	ctx := context.Background()
	abort := errors.New("abort")

	err := file.Update(ctx, func(snapshot Snapshot) error {
		snapshot[steve] = Record{Owner: steve, AccountID: steveAccount}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("Update err = %v, want abort", err)
	}
	if _, ok, _ := file.Get(ctx, steve); ok {
		t.Error("aborted Update persisted its change")
	}
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	file := newStore(t, JSON)
	ctx := context.Background()

	const writers = 20
	var group sync.WaitGroup
	for index := range writers {
		group.Add(1)
		go func() {
			defer group.Done()
			owner := ref.MustParseUserID("@member" + string(rune('a'+index)) + ":example.org")
			if err := file.Put(ctx, owner, Record{AccountID: steveAccount}); err != nil {
				t.Errorf("Put: %v", err)
			}
		}()
	}
	group.Wait()

	snapshot, err := file.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot) != writers {
		t.Errorf("len(snapshot) = %d, want %d", len(snapshot), writers)
	}
}

func TestLockHonoursContext(t *testing.T) {
	file := newStore(t, JSON)

	// A second File on the same path stands in for another process.
	other, err := New(Config{Path: file.Path()})
	if err != nil {
		t.Fatal(err)
	}

	holding := make(chan struct{})
	release := make(chan struct{})
	go other.Update(context.Background(), func(Snapshot) error {
		close(holding)
		<-release
		return nil
	})
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = file.Load(ctx)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Load err = %v, want lock timeout", err)
	}
}

func TestSnapshotOwnerOf(t *testing.T) {
	snapshot := Snapshot{
		steve: {Owner: steve, AccountID: steveAccount},
		alex:  {Owner: alex, AccountID: alexAccount},
	}
	owner, ok := snapshot.OwnerOf(alexAccount)
	if !ok || owner != alex {
		t.Errorf("OwnerOf(alex) = %v, %v", owner, ok)
	}
	if _, ok := snapshot.OwnerOf("ffffffffffffffffffffffffffffffff"); ok {
		t.Error("OwnerOf found an unknown account")
	}
	if owners := snapshot.Owners(); len(owners) != 2 || owners[0] != alex {
		t.Errorf("Owners() = %v, want alex first", owners)
	}
}
