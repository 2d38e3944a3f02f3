package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "release", cfg.Mode)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 60*time.Second, cfg.Lifecycle.RefreshWindow)
	require.Equal(t, 30*time.Second, cfg.Lifecycle.SDKTimeout)
	require.Equal(t, 1, cfg.Signature.VideoWebRTCMode)
	require.Equal(t, "https://app.tethersupervision.com", cfg.Session.DefaultLeaveURL)
	require.Equal(t, 3, cfg.Help.Limit)
	require.Equal(t, time.Minute, cfg.Help.Interval)
	require.Equal(t, "admin", cfg.Admin.User)
	require.Empty(t, cfg.Admin.Password)
}

func TestLoadFlagsAndEnv(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("MEET_LIFECYCLE_REFRESH_WINDOW", "90s")
	t.Setenv("MEET_ADMIN_PASSWORD", "s3cret")

	cfg, err := Load([]string{"--port", "9001", "--signature-url", "https://sign.example.com"})
	require.NoError(t, err)
	require.Equal(t, 9001, cfg.Port)
	require.Equal(t, "https://sign.example.com", cfg.Signature.URL)
	require.Equal(t, 90*time.Second, cfg.Lifecycle.RefreshWindow)
	require.Equal(t, "s3cret", cfg.Admin.Password)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte("mode: debug\nsignature:\n  url: https://file.example.com\nhelp:\n  limit: 5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.unit.yaml"), yaml, 0o644))

	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "unit")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Mode)
	require.Equal(t, "https://file.example.com", cfg.Signature.URL)
	require.Equal(t, 5, cfg.Help.Limit)
}

func TestLoadBadFlag(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")

	_, err := Load([]string{"--nope"})
	require.Error(t, err)
}
