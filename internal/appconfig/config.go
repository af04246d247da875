// Package appconfig holds the operator's CLI preferences. They live apart
// from the service config so a shared server file is never rewritten by a
// local terminal setting.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	ModeProduction = "production"
	ModeDebug      = "debug"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the CLI-side preference file.
type Config struct {
	Mode   string      `json:"mode"`
	Color  string      `json:"color"`
	Badges BadgesPrefs `json:"badges"`
}

// BadgesPrefs are defaults for the badges command. Flags still win.
type BadgesPrefs struct {
	// MarkSeen nil defers to the service's mark_seen_on_refresh.
	MarkSeen *bool `json:"mark_seen,omitempty"`
}

func Default() Config {
	return Config{Mode: ModeProduction, Color: ColorAuto}
}

func (c Config) IsDebug() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), ModeDebug)
}

func (c Config) Normalize() Config {
	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	if mode != ModeDebug {
		mode = ModeProduction
	}
	c.Mode = mode

	switch color := strings.ToLower(strings.TrimSpace(c.Color)); color {
	case ColorAlways, ColorNever:
		c.Color = color
	default:
		c.Color = ColorAuto
	}
	return c
}

// ColorOverride reports whether the file forces color on or off. In auto
// mode forced is false and terminal detection decides.
func (c Config) ColorOverride() (enabled, forced bool) {
	switch c.Color {
	case ColorAlways:
		return true, true
	case ColorNever:
		return false, true
	}
	return false, false
}

// MarkSeen resolves whether a CLI refresh marks records, given the
// service-level default.
func (c Config) MarkSeen(serviceDefault bool) bool {
	if c.Badges.MarkSeen != nil {
		return *c.Badges.MarkSeen
	}
	return serviceDefault
}

func ParseMode(s string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case ModeProduction, ModeDebug:
		return v, nil
	}
	return "", errors.New("mode must be production or debug")
}

func ParseColor(s string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case ColorAuto, ColorAlways, ColorNever:
		return v, nil
	}
	return "", errors.New("color must be auto, always or never")
}

// ParseToggle reads on/off/default. default clears the override.
func ParseToggle(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes":
		v := true
		return &v, nil
	case "off", "false", "no":
		v := false
		return &v, nil
	case "default", "":
		return nil, nil
	}
	return nil, fmt.Errorf("invalid toggle %q (on, off or default)", s)
}

func ConfigPath() string {
	if custom := strings.TrimSpace(os.Getenv("HUBDECK_CLI_CONFIG")); custom != "" {
		return custom
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hubdeck-cli.json"
	}
	return filepath.Join(home, ".hubdeck", "cli.json")
}

// Load returns defaults for a missing or blank file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return cfg.Normalize(), nil
}

func Save(path string, cfg Config) error {
	cfg = cfg.Normalize()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
