package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tx7do/flubber/permissions"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, VersionLatest, c.Version)
	assert.Equal(t, DefaultEntry, c.Script.Entry)
	assert.Equal(t, Duration(0), c.Script.DrainTimeout)
	assert.Equal(t, "flubber/1.2.3", c.UserAgent("1.2.3"))
	assert.Equal(t, DefaultFetchTimeout, c.Fetch.Timeout.AsDuration())
	assert.Equal(t, DefaultRotateSpeed, c.Host.RotateSpeed)

	gate, err := c.Gate(nil)
	require.NoError(t, err)
	assert.IsType(t, permissions.AllowAll{}, gate)
}

func TestNewConfigFromBytes(t *testing.T) {
	data := []byte(`
version = "v1"

[script]
entry = "scripts/app.js"
drain_timeout = "1m30s"

[log]
level = "debug"
format = "json"

[fetch]
product = "spinner"
timeout = "5s"
max_body_bytes = 1024

[permissions]
policy = "static"
net = true
hrtime = true
deny_hosts = ["*.internal"]
deny_paths = ["/etc/*"]

[host]
frames = 10
physics_fps = 30
rotate_speed = 2.5
`)
	c, err := NewConfigFromBytes(data)
	require.NoError(t, err)

	assert.Equal(t, "scripts/app.js", c.Script.Entry)
	assert.Equal(t, 90*time.Second, c.Script.DrainTimeout.AsDuration())
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "spinner/0.1.0", c.UserAgent("0.1.0"))
	assert.Equal(t, 5*time.Second, c.Fetch.Timeout.AsDuration())
	assert.Equal(t, int64(1024), c.Fetch.MaxBodyBytes)
	assert.Equal(t, 10, c.Host.Frames)
	assert.Equal(t, 30, c.Host.PhysicsFPS)
	assert.Equal(t, 2.5, c.Host.RotateSpeed)

	gate, err := c.Gate(nil)
	require.NoError(t, err)
	static, ok := gate.(*permissions.Static)
	require.True(t, ok)
	assert.Nil(t, static.Logger)
	assert.True(t, static.Net)
	assert.False(t, static.Read)
	assert.True(t, static.AllowHRTime())
	assert.Equal(t, []string{"*.internal"}, static.DenyHosts)
}

func TestStaticGateLogsUnstableUse(t *testing.T) {
	c := Default()
	c.Permissions.Policy = PolicyStatic

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	gate, err := c.Gate(logger)
	require.NoError(t, err)

	gate.CheckUnstable("Flubber.loopStats()")
	assert.Contains(t, buf.String(), "Unstable API used")
	assert.Contains(t, buf.String(), "component=permissions")
	assert.Contains(t, buf.String(), "Flubber.loopStats()")
}

func TestValidateCollectsErrors(t *testing.T) {
	data := []byte(`
version = "v2"
[log]
level = "loud"
format = "xml"
[permissions]
policy = "static"
deny_hosts = ["["]
[host]
frames = -1
`)
	_, err := NewConfigFromBytes(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailedToValidateConfig)
	assert.ErrorIs(t, err, ErrUnsupportedConfigVer)

	for _, want := range []string{"log.level", "log.format", "deny pattern", "host.frames"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestInvalidDuration(t *testing.T) {
	_, err := NewConfigFromBytes([]byte("[script]\ndrain_timeout = \"soon\"\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailedToLoadConfig)
}

func TestNewConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flubber.toml")
	require.NoError(t, os.WriteFile(path, []byte("[host]\nframes = 3\n"), 0o600))

	c, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Host.Frames)

	_, err = NewConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrFailedToLoadConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, 250*time.Millisecond, d.AsDuration())

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "250ms", string(out))
}
