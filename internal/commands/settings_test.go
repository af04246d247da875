package commands

import (
	"path/filepath"
	"testing"

	"hubdeck/internal/appconfig"
	"hubdeck/internal/output"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCLIConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.json")
	t.Setenv("HUBDECK_CLI_CONFIG", path)
	prev := output.IsDebug()
	t.Cleanup(func() { output.SetDebug(prev) })
	return path
}

func TestSettingsSet_OnlyTouchesNamedFlags(t *testing.T) {
	path := withCLIConfig(t)

	require.Equal(t, 0, SettingsSet([]string{"--color", "never", "--mark", "off"}))
	require.Equal(t, 0, SettingsSet([]string{"--mode", "debug"}))

	cfg, err := appconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, appconfig.ModeDebug, cfg.Mode)
	assert.Equal(t, appconfig.ColorNever, cfg.Color)
	require.NotNil(t, cfg.Badges.MarkSeen)
	assert.False(t, *cfg.Badges.MarkSeen)
	assert.False(t, cfg.MarkSeen(true), "the cli preference overrides the service default")

	require.Equal(t, 0, SettingsSet([]string{"--mark", "default"}))
	cfg, err = appconfig.Load(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Badges.MarkSeen)
	assert.Equal(t, appconfig.ColorNever, cfg.Color)
}

func TestSettingsSet_RejectsBadInput(t *testing.T) {
	path := withCLIConfig(t)

	assert.Equal(t, 2, SettingsSet(nil))
	assert.Equal(t, 2, SettingsSet([]string{"--color", "rainbow"}))
	assert.Equal(t, 2, SettingsSet([]string{"--mode", "loud"}))
	assert.Equal(t, 2, SettingsSet([]string{"--mark", "sometimes"}))

	cfg, err := appconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, appconfig.Default(), cfg, "nothing is saved on a rejected value")
}
