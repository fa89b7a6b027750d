// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity resolves Minecraft usernames against the Mojang
// profile API and builds Crafatar render URLs for resolved accounts.
//
// Every lookup is a single HTTP request with no retries. Failures fall
// into two classes: [ErrNotFound] when the directory says the name or
// account does not exist (204, 400 or 404), and [ErrUnavailable] for
// anything else (transport errors, other statuses, bodies that do not
// match the documented shape).
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/mcwhitelist/lib/netutil"
)

var (
	// ErrNotFound means the directory has no such name or account.
	ErrNotFound = errors.New("identity: not found")

	// ErrUnavailable means the directory could not answer.
	ErrUnavailable = errors.New("identity: upstream unavailable")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

// ValidName reports whether name satisfies the Minecraft username
// grammar: 3 to 16 ASCII letters, digits or underscores.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Profile is a resolved account.
type Profile struct {
	// Name is the canonical capitalisation of the username.
	Name string `json:"name"`

	// ID is the account UUID as the directory returns it (32 hex
	// digits, undashed).
	ID string `json:"id"`
}

// NameChange is one entry of an account's name history. ChangedAt is
// zero for the account's original name.
type NameChange struct {
	Name      string
	ChangedAt time.Time
}

// Config configures a Client.
type Config struct {
	// APIURL is the profile API base URL, e.g. https://api.mojang.com.
	APIURL string

	// RenderURL is the render service base URL, e.g.
	// https://crafatar.com.
	RenderURL string

	// Timeout bounds each request. Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the transport. Tests pass the httptest
	// server's client.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observe, when set, is called with the endpoint ("profile" or
	// "names") and duration of every request that got a response.
	Observe func(endpoint string, duration time.Duration)
}

// Client talks to the profile API. Safe for concurrent use.
type Client struct {
	apiURL     string
	renderURL  string
	httpClient *http.Client
	logger     *slog.Logger
	observe    func(string, time.Duration)
}

// NewClient validates config and returns a Client.
func NewClient(config Config) (*Client, error) {
	if config.APIURL == "" {
		return nil, errors.New("identity: APIURL is required")
	}
	if _, err := url.Parse(config.APIURL); err != nil {
		return nil, fmt.Errorf("identity: invalid APIURL %q: %w", config.APIURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observe := config.Observe
	if observe == nil {
		observe = func(string, time.Duration) {}
	}

	return &Client{
		apiURL:     strings.TrimRight(config.APIURL, "/"),
		renderURL:  strings.TrimRight(config.RenderURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		observe:    observe,
	}, nil
}

// ResolveByName looks up the canonical name and account id for name.
func (c *Client) ResolveByName(ctx context.Context, name string) (Profile, error) {
	var profile Profile
	if err := c.get(ctx, "profile", "/users/profiles/minecraft/"+url.PathEscape(name), &profile); err != nil {
		return Profile{}, fmt.Errorf("resolving name %q: %w", name, err)
	}
	if profile.Name == "" || !validAccountID(profile.ID) {
		return Profile{}, fmt.Errorf("resolving name %q: %w: malformed profile %+v", name, ErrUnavailable, profile)
	}
	return profile, nil
}

// ResolveByID returns the current name of the account, which is the
// last entry of its name history.
func (c *Client) ResolveByID(ctx context.Context, accountID string) (string, error) {
	history, err := c.NameHistory(ctx, accountID)
	if err != nil {
		return "", err
	}
	return history[len(history)-1].Name, nil
}

// NameHistory returns the account's names, oldest first. The result is
// never empty on success.
func (c *Client) NameHistory(ctx context.Context, accountID string) ([]NameChange, error) {
	var entries []struct {
		Name        string `json:"name"`
		ChangedToAt int64  `json:"changedToAt"`
	}
	if err := c.get(ctx, "names", "/user/profiles/"+url.PathEscape(accountID)+"/names", &entries); err != nil {
		return nil, fmt.Errorf("fetching name history for %s: %w", accountID, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("fetching name history for %s: %w: empty history", accountID, ErrUnavailable)
	}

	history := make([]NameChange, 0, len(entries))
	for _, entry := range entries {
		change := NameChange{Name: entry.Name}
		if entry.ChangedToAt != 0 {
			change.ChangedAt = time.UnixMilli(entry.ChangedToAt).UTC()
		}
		history = append(history, change)
	}
	return history, nil
}

// AvatarURL is the head render shown as a card thumbnail.
func (c *Client) AvatarURL(accountID string) string {
	return c.renderURL + "/avatars/" + url.PathEscape(accountID) + "?overlay"
}

// BodyRenderURL is the full-body render shown on profile cards.
func (c *Client) BodyRenderURL(accountID string) string {
	return c.renderURL + "/renders/body/" + url.PathEscape(accountID) + "?overlay"
}

func (c *Client) get(ctx context.Context, endpoint, path string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	request.Header.Set("Accept", "application/json")

	started := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer response.Body.Close()

	elapsed := time.Since(started)
	c.observe(endpoint, elapsed)
	c.logger.Debug("identity request",
		"path", path,
		"status", response.StatusCode,
		"duration", elapsed,
	)

	switch {
	case response.StatusCode == http.StatusNoContent,
		response.StatusCode == http.StatusBadRequest,
		response.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case response.StatusCode < 200 || response.StatusCode > 299:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, response.StatusCode,
			strings.TrimSpace(netutil.ErrorBody(response.Body)))
	}

	if err := netutil.DecodeResponse(response.Body, target); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func validAccountID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
