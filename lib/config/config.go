// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "WHITELIST_CONFIG"

// Config is the complete bot configuration.
type Config struct {
	// Homeserver is the Matrix homeserver base URL.
	Homeserver string `yaml:"homeserver" json:"homeserver"`

	// StateDir holds session.json and, by default, the store file.
	StateDir string `yaml:"state_dir" json:"state_dir"`

	// CommandPrefix precedes every chat command. Default: w!
	CommandPrefix string `yaml:"command_prefix" json:"command_prefix"`

	Rooms    RoomsConfig    `yaml:"rooms" json:"rooms"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	Identity IdentityConfig `yaml:"identity" json:"identity"`
	Commands CommandsConfig `yaml:"commands" json:"commands"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`

	// Operator is mentioned in replies to unexpected failures so a
	// human notices them. Optional.
	Operator string `yaml:"operator" json:"operator"`

	// RequestChannel is the legacy settings.json key for
	// Rooms.Requests.
	RequestChannel string `yaml:"request_channel,omitempty" json:"request_channel,omitempty"`
}

// RoomsConfig names the Matrix rooms the bot works with.
type RoomsConfig struct {
	// Requests is the staff room that receives request cards. Required.
	Requests string `yaml:"requests" json:"requests"`

	// Community is the room whose members may apply. Leaving or being
	// banned from it removes the member's record. When empty, departure
	// tracking is disabled and any room the bot shares counts.
	Community string `yaml:"community" json:"community"`
}

// StoreConfig locates the record store.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`

	// Format is "json" (default) or "cbor".
	Format string `yaml:"format" json:"format"`
}

// IdentityConfig points at the Minecraft profile API and the render
// service used for avatar URLs.
type IdentityConfig struct {
	APIURL    string   `yaml:"api_url" json:"api_url"`
	RenderURL string   `yaml:"render_url" json:"render_url"`
	Timeout   Duration `yaml:"timeout" json:"timeout"`
}

// CommandsConfig tunes command behavior.
type CommandsConfig struct {
	// WhitelistCooldown is the per-user interval between whitelist
	// commands. Zero disables the cooldown.
	WhitelistCooldown Duration `yaml:"whitelist_cooldown" json:"whitelist_cooldown"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is a host:port for /metrics. Empty disables the endpoint.
	Listen string `yaml:"listen" json:"listen"`
}

// Duration is a time.Duration written as a Go duration string ("30s")
// in both YAML and JSON.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(data []byte) error {
	parsed, err := time.ParseDuration(string(data))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration every file is layered onto.
func Default() *Config {
	return &Config{
		StateDir:      "data",
		CommandPrefix: "w!",
		Store: StoreConfig{
			Path:   "${STATE_DIR}/users.json",
			Format: "json",
		},
		Identity: IdentityConfig{
			APIURL:    "https://api.mojang.com",
			RenderURL: "https://crafatar.com",
			Timeout:   Duration(10 * time.Second),
		},
		Commands: CommandsConfig{
			WhitelistCooldown: Duration(30 * time.Second),
		},
	}
}

// Load loads the file named by WHITELIST_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of the bot's config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads path over Default and expands path variables. It does
// not validate; callers run Validate once any flag overrides are
// applied.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if cfg.Rooms.Requests == "" {
		cfg.Rooms.Requests = cfg.RequestChannel
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}

	c.StateDir = expandVars(c.StateDir, vars)
	vars["STATE_DIR"] = c.StateDir
	c.Store.Path = expandVars(c.Store.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, checking vars before
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every configuration problem.
func (c *Config) Validate() error {
	var errs []error

	if c.Homeserver == "" {
		errs = append(errs, errors.New("homeserver is required"))
	} else if err := validateURL(c.Homeserver); err != nil {
		errs = append(errs, fmt.Errorf("homeserver: %w", err))
	}

	if c.Rooms.Requests == "" {
		errs = append(errs, errors.New("rooms.requests is required (the staff room that receives requests)"))
	} else if _, err := ref.ParseRoomID(c.Rooms.Requests); err != nil {
		errs = append(errs, fmt.Errorf("rooms.requests: %w", err))
	}
	if c.Rooms.Community != "" {
		if _, err := ref.ParseRoomID(c.Rooms.Community); err != nil {
			errs = append(errs, fmt.Errorf("rooms.community: %w", err))
		}
	}

	if strings.TrimSpace(c.CommandPrefix) == "" {
		errs = append(errs, errors.New("command_prefix must not be empty"))
	}
	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Store.Format != "json" && c.Store.Format != "cbor" {
		errs = append(errs, fmt.Errorf("store.format must be json or cbor, got %q", c.Store.Format))
	}

	if err := validateURL(c.Identity.APIURL); err != nil {
		errs = append(errs, fmt.Errorf("identity.api_url: %w", err))
	}
	if err := validateURL(c.Identity.RenderURL); err != nil {
		errs = append(errs, fmt.Errorf("identity.render_url: %w", err))
	}
	if c.Identity.Timeout <= 0 {
		errs = append(errs, errors.New("identity.timeout must be positive"))
	}
	if c.Commands.WhitelistCooldown < 0 {
		errs = append(errs, errors.New("commands.whitelist_cooldown must not be negative"))
	}

	if c.Operator != "" {
		if _, err := ref.ParseUserID(c.Operator); err != nil {
			errs = append(errs, fmt.Errorf("operator: %w", err))
		}
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the state directory and the store's parent.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.StateDir, filepath.Dir(c.Store.Path)} {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

// RequestRoom returns the parsed staff room. Valid only after Validate.
func (c *Config) RequestRoom() ref.RoomID {
	roomID, _ := ref.ParseRoomID(c.Rooms.Requests)
	return roomID
}

// CommunityRoom returns the parsed community room, or the zero RoomID
// when none is configured.
func (c *Config) CommunityRoom() ref.RoomID {
	roomID, _ := ref.ParseRoomID(c.Rooms.Community)
	return roomID
}

// OperatorID returns the parsed operator, or the zero UserID.
func (c *Config) OperatorID() ref.UserID {
	userID, _ := ref.ParseUserID(c.Operator)
	return userID
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%q must be an http or https URL", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
