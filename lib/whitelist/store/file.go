// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// lockPollInterval is how often a blocked cycle retries the file lock.
const lockPollInterval = 10 * time.Millisecond

// Config configures a File.
type Config struct {
	// Path is the store file. Its directory must exist.
	Path string

	// Format defaults to JSON.
	Format Format

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// File is the file-backed record store. Safe for concurrent use within
// a process and across processes sharing the file.
type File struct {
	path     string
	lockPath string
	format   Format
	logger   *slog.Logger

	mu sync.Mutex
}

// New returns a File for config.Path. The file is not touched until the
// first operation; call Init to create it.
func New(config Config) (*File, error) {
	if config.Path == "" {
		return nil, errors.New("store: Path is required")
	}
	format := config.Format
	if format == nil {
		format = JSON
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &File{
		path:     config.Path,
		lockPath: config.Path + ".lock",
		format:   format,
		logger:   logger,
	}, nil
}

// Path returns the store file path.
func (f *File) Path() string { return f.path }

// Init creates an empty store if the file does not exist. An existing
// file is left alone, even if it is malformed.
func (f *File) Init(ctx context.Context) error {
	return f.locked(ctx, unix.LOCK_EX, func() error {
		if _, err := os.Stat(f.path); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return &Error{Op: "init", Path: f.path, Err: err}
		}
		if err := f.write(Snapshot{}); err != nil {
			return err
		}
		f.logger.Info("created empty whitelist store", "path", f.path, "format", f.format.Name())
		return nil
	})
}

// Load reads the whole store.
func (f *File) Load(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot
	err := f.locked(ctx, unix.LOCK_SH, func() error {
		var err error
		snapshot, _, err = f.read()
		return err
	})
	return snapshot, err
}

// Save replaces the store with snapshot. Saving content identical to
// the file's is a no-op.
func (f *File) Save(ctx context.Context, snapshot Snapshot) error {
	return f.locked(ctx, unix.LOCK_EX, func() error {
		return f.write(snapshot)
	})
}

// Update runs fn on the current snapshot inside one locked cycle and
// saves the result. An error from fn is returned as-is and nothing is
// written.
func (f *File) Update(ctx context.Context, fn func(Snapshot) error) error {
	return f.locked(ctx, unix.LOCK_EX, func() error {
		snapshot, _, err := f.read()
		if err != nil {
			return err
		}
		if err := fn(snapshot); err != nil {
			return err
		}
		return f.write(snapshot)
	})
}

// Get returns owner's record.
func (f *File) Get(ctx context.Context, owner ref.UserID) (Record, bool, error) {
	snapshot, err := f.Load(ctx)
	if err != nil {
		return Record{}, false, err
	}
	record, ok := snapshot[owner]
	return record, ok, nil
}

// Put creates or replaces owner's record.
func (f *File) Put(ctx context.Context, owner ref.UserID, record Record) error {
	record.Owner = owner
	return f.Update(ctx, func(snapshot Snapshot) error {
		snapshot[owner] = record
		return nil
	})
}

// Delete removes owner's record and returns it. Deleting an absent
// owner reports false and writes nothing.
func (f *File) Delete(ctx context.Context, owner ref.UserID) (Record, bool, error) {
	var (
		removed Record
		found   bool
	)
	err := f.Update(ctx, func(snapshot Snapshot) error {
		removed, found = snapshot[owner]
		delete(snapshot, owner)
		return nil
	})
	return removed, found, err
}

// locked runs fn holding the process mutex and a flock of kind how.
func (f *File) locked(ctx context.Context, how int, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lockFile, err := os.OpenFile(f.lockPath, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return &Error{Op: "lock", Path: f.lockPath, Err: err}
	}
	defer lockFile.Close()

	for {
		err := unix.Flock(int(lockFile.Fd()), how|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			return &Error{Op: "lock", Path: f.lockPath, Err: err}
		}
		select {
		case <-ctx.Done():
			return &Error{Op: "lock", Path: f.lockPath, Err: ctx.Err()}
		case <-time.After(lockPollInterval):
		}
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	return fn()
}

// read loads and decodes the file, returning the raw bytes alongside.
// Callers hold the lock.
func (f *File) read() (Snapshot, []byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, nil, &Error{Op: "load", Path: f.path, Err: err}
	}
	snapshot, err := f.format.Decode(data)
	if err != nil {
		return nil, nil, &Error{Op: "load", Path: f.path, Err: fmt.Errorf("malformed %s: %w", f.format.Name(), err)}
	}
	return snapshot, data, nil
}

// write atomically replaces the file unless its content already
// matches. Callers hold the exclusive lock.
func (f *File) write(snapshot Snapshot) error {
	data, err := f.format.Encode(snapshot)
	if err != nil {
		return &Error{Op: "save", Path: f.path, Err: fmt.Errorf("encoding: %w", err)}
	}

	if current, err := os.ReadFile(f.path); err == nil && blake3.Sum256(current) == blake3.Sum256(data) {
		f.logger.Debug("store unchanged, skipping write", "path", f.path)
		return nil
	}

	temporaryPath := f.path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return &Error{Op: "save", Path: f.path, Err: err}
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return &Error{Op: "save", Path: f.path, Err: err}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return &Error{Op: "save", Path: f.path, Err: err}
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return &Error{Op: "save", Path: f.path, Err: err}
	}
	if err := os.Rename(temporaryPath, f.path); err != nil {
		os.Remove(temporaryPath)
		return &Error{Op: "save", Path: f.path, Err: err}
	}

	// The rename is only durable once the directory entry is flushed.
	if directory, err := os.Open(filepath.Dir(f.path)); err == nil {
		directory.Sync()
		directory.Close()
	}

	f.logger.Debug("store written", "path", f.path, "records", len(snapshot), "bytes", len(data))
	return nil
}
