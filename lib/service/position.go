// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SyncPositionFile is the file in the state directory holding the last
// handled next_batch token.
const SyncPositionFile = "sync_position"

// SyncPosition persists the /sync token across restarts. Membership
// changes that happen while the bot is down are then delivered by the
// first sync after startup instead of being skipped.
type SyncPosition struct {
	path string
}

// NewSyncPosition returns the position stored in stateDir.
func NewSyncPosition(stateDir string) *SyncPosition {
	return &SyncPosition{path: filepath.Join(stateDir, SyncPositionFile)}
}

// Path returns the position file path.
func (p *SyncPosition) Path() string { return p.path }

// Load returns the saved token, or "" when none has been saved.
func (p *SyncPosition) Load() (string, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync position: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the saved token. The file is written beside its final
// name, fsynced and renamed into place, so a crash leaves either the
// old token or the new one.
func (p *SyncPosition) Save(token string) error {
	temporaryPath := p.path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary sync position: %w", err)
	}
	if _, err := file.WriteString(token + "\n"); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing sync position: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing sync position: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing sync position: %w", err)
	}
	if err := os.Rename(temporaryPath, p.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming sync position into place: %w", err)
	}
	return nil
}
