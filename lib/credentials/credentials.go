// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credentials locates the bot's Matrix identity and access
// token. Environment variables take precedence; otherwise the session
// file written at registration (state_dir/session.json) is read.
// The token is moved into a [secret.Buffer] as soon as it is read.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/secret"
)

// SessionFile is the session file name inside the state directory.
const SessionFile = "session.json"

// ErrMissing is returned when neither the environment nor the session
// file supplies credentials.
var ErrMissing = errors.New("bot credentials not found")

// Credentials is an authenticated bot identity. Close releases the
// token's protected memory.
type Credentials struct {
	UserID ref.UserID

	// HomeserverURL is set only when the source recorded one.
	HomeserverURL string

	Token *secret.Buffer
}

// Close releases the token buffer.
func (c *Credentials) Close() error {
	if c == nil || c.Token == nil {
		return nil
	}
	return c.Token.Close()
}

type environment struct {
	UserID      string `env:"BOT_USER_ID"`
	AccessToken string `env:"BOT_ACCESS_TOKEN,unset"`
	Homeserver  string `env:"BOT_HOMESERVER"`
}

type sessionData struct {
	HomeserverURL string `json:"homeserver_url"`
	UserID        string `json:"user_id"`
	AccessToken   string `json:"access_token"`
}

// Load reads credentials from the process environment, falling back to
// stateDir/session.json.
func Load(stateDir string) (*Credentials, error) {
	return load(env.Options{}, stateDir)
}

// LoadFrom is Load with an explicit environment instead of the
// process's.
func LoadFrom(environ map[string]string, stateDir string) (*Credentials, error) {
	return load(env.Options{Environment: environ}, stateDir)
}

func load(options env.Options, stateDir string) (*Credentials, error) {
	var fromEnv environment
	if err := env.ParseWithOptions(&fromEnv, options); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch {
	case fromEnv.UserID != "" && fromEnv.AccessToken != "":
		return build(fromEnv.UserID, fromEnv.AccessToken, fromEnv.Homeserver, "BOT_USER_ID")
	case fromEnv.UserID != "" || fromEnv.AccessToken != "":
		return nil, errors.New("BOT_USER_ID and BOT_ACCESS_TOKEN must be set together")
	}

	sessionPath := filepath.Join(stateDir, SessionFile)
	jsonData, err := os.ReadFile(sessionPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: set BOT_USER_ID and BOT_ACCESS_TOKEN or write %s", ErrMissing, sessionPath)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from %s: %w", sessionPath, err)
	}

	var data sessionData
	err = json.Unmarshal(jsonData, &data)
	secret.Zero(jsonData)
	if err != nil {
		return nil, fmt.Errorf("parsing session from %s: %w", sessionPath, err)
	}
	if data.UserID == "" || data.AccessToken == "" {
		return nil, fmt.Errorf("session file %s is incomplete: user_id and access_token are required", sessionPath)
	}
	return build(data.UserID, data.AccessToken, data.HomeserverURL, "user_id in "+sessionPath)
}

func build(rawUserID, token, homeserver, source string) (*Credentials, error) {
	userID, err := ref.ParseUserID(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", source, err)
	}
	buffer, err := secret.NewFromString(token)
	if err != nil {
		return nil, fmt.Errorf("protecting access token: %w", err)
	}
	return &Credentials{UserID: userID, HomeserverURL: homeserver, Token: buffer}, nil
}

// SaveSession writes a session file readable by Load. whitelistctl uses
// it to provision a state directory from a login.
func SaveSession(stateDir, homeserverURL string, userID ref.UserID, token *secret.Buffer) error {
	jsonData, err := json.Marshal(sessionData{
		HomeserverURL: homeserverURL,
		UserID:        userID.String(),
		AccessToken:   token.String(),
	})
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	sessionPath := filepath.Join(stateDir, SessionFile)
	writeError := os.WriteFile(sessionPath, jsonData, 0o600)
	secret.Zero(jsonData)
	if writeError != nil {
		return fmt.Errorf("writing session to %s: %w", sessionPath, writeError)
	}
	return nil
}
