package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv(EnvPrefix+"CONFIG_PATH", "")
	t.Cleanup(reset)
	return dir
}

func TestLoadAndGet(t *testing.T) {
	isolate(t)
	Load()

	require.Equal(t, "default", Get("missing", "default"))
	require.Equal(t, "sqlite", Get("storage_backend", ""))
	require.Equal(t, 7, GetInt("record_retention_days", 0))
	require.Equal(t, 300*time.Millisecond, GetDuration("refresh_pacing", 0))
	require.True(t, GetBool("bulk_enumeration", false))
}

func TestRemoteDefaults(t *testing.T) {
	isolate(t)
	Load()

	p := NewProvider()
	ctx := context.Background()
	require.False(t, p.GetBool(ctx, "notification_keep_at_top", true))
	require.Equal(t, float64(10), p.GetNumber(ctx, "notification_limit", 0))
	require.Equal(t, float64(300000), p.GetNumber(ctx, "notification_unlock_at_top_timeout_ms", 0))
	require.Equal(t, float64(3), p.GetNumber(ctx, "notification_unlock_at_top_limit", 0))
	require.Equal(t, "1", p.GetString(ctx, "notification_ui_version", ""))
	require.Equal(t, "fallback", p.GetString(ctx, "unknown_key", "fallback"))
}

func TestEnvOverridesRemoteKey(t *testing.T) {
	isolate(t)
	t.Setenv("NOTIFLOW_REMOTE__NOTIFICATION_LIMIT", "4")
	t.Setenv("NOTIFLOW_REMOTE__NOTIFICATION_KEEP_AT_TOP", "yes")
	Load()

	require.Equal(t, 4, GetInt("remote.notification_limit", 0))
	require.Equal(t, "true", Get("remote.notification_keep_at_top", ""))

	require.True(t, IsRemoteSet("notification_limit"))
	require.True(t, IsRemoteSet("notification_keep_at_top"))
	require.False(t, IsRemoteSet("notification_unlock_at_top_limit"))
	require.False(t, IsRemoteSet("not_a_remote_key"))
}

func TestFileLayerFlattensTables(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	content := "storage_backend = \"memory\"\nrefresh_schedule = \"@every 1m\"\n\n[remote]\nnotification_limit = 6\nnotification_keep_at_top = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), FileModeFile))
	t.Setenv(EnvPrefix+"CONFIG_PATH", path)
	Load()

	require.Equal(t, "memory", Get("storage_backend", ""))
	require.Equal(t, "@every 1m", Get("refresh_schedule", ""))
	require.Equal(t, 6, GetInt("remote.notification_limit", 0))
	require.True(t, GetBool("remote.notification_keep_at_top", false))
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("package_name = \"from.file\"\n"), FileModeFile))
	t.Setenv(EnvPrefix+"CONFIG_PATH", path)
	t.Setenv(EnvPrefix+"PACKAGE_NAME", "from.env")
	Load()

	require.Equal(t, "from.env", Get("package_name", ""))
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPrefix+"STORAGE_BACKEND", "postgres")
	t.Setenv(EnvPrefix+"REFRESH_SCHEDULE", "not a schedule")
	t.Setenv(EnvPrefix+"REFRESH_PACING", "soon")
	t.Setenv(EnvPrefix+"REMOTE__NOTIFICATION_LIMIT", "-2")
	Load()

	require.Equal(t, "sqlite", Get("storage_backend", ""))
	require.Equal(t, "@every 15m", Get("refresh_schedule", ""))
	require.Equal(t, "300ms", Get("refresh_pacing", ""))
	require.Equal(t, "10", Get("remote.notification_limit", ""))
}

func TestZeroLimitIsAccepted(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPrefix+"REMOTE__NOTIFICATION_LIMIT", "0")
	Load()

	require.Equal(t, 0, GetInt("remote.notification_limit", -1))
}

func TestSampleConfigWritten(t *testing.T) {
	dir := isolate(t)
	Load()

	data, err := os.ReadFile(filepath.Join(dir, "config", "notiflow", "config.toml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "[remote]")
	require.Contains(t, string(data), "notification_limit = 10")
}

func TestRemoteSnapshot(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPrefix+"REMOTE__IS_STICKY_NOTIFICATION_ACTIVE", "on")
	Load()

	snap := RemoteSnapshot()
	require.Equal(t, "true", snap["is_sticky_notification_active"])
	require.Equal(t, "3600000", snap["sticky_notification_time_interval"])
	require.Len(t, snap, len(remoteDefaults))
}

func TestBoolValidator(t *testing.T) {
	v := BoolValidator()
	got, err := v("debug", "ON", "false")
	require.NoError(t, err)
	require.Equal(t, "true", got)

	got, err = v("debug", "maybe", "false")
	require.NoError(t, err)
	require.Equal(t, "false", got)
}
