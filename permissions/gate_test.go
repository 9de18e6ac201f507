package permissions

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tx7do/flubber"
)

func TestAllowAll(t *testing.T) {
	var g Gate = AllowAll{}

	u, err := url.Parse("https://example.com/data.json")
	require.NoError(t, err)

	assert.True(t, g.AllowHRTime())
	assert.NotPanics(t, func() { g.CheckUnstable("Flubber.loopStats") })
	assert.NoError(t, g.CheckNetURL(u, "fetch()"))
	assert.NoError(t, g.CheckRead("/etc/hosts", "fetch()"))
}

func TestStatic(t *testing.T) {
	s, err := NewStatic(true, true, false, []string{"*.internal", "10.0.0.1:8080"}, []string{"/etc/*"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		url     string
		allowed bool
	}{
		{name: "public host", url: "https://example.com/", allowed: true},
		{name: "denied wildcard", url: "http://api.internal/v1", allowed: false},
		{name: "denied host and port", url: "http://10.0.0.1:8080/", allowed: false},
		{name: "same host other port", url: "http://10.0.0.1:9090/", allowed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			err = s.CheckNetURL(u, "fetch()")
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, flubber.ErrPermissionDenied)

			var perr *flubber.PermissionError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "net", perr.Kind)
			assert.Equal(t, "fetch()", perr.API)
		})
	}

	assert.ErrorIs(t, s.CheckRead("/etc/passwd", "fetch()"), flubber.ErrPermissionDenied)
	assert.NoError(t, s.CheckRead("/tmp/data.txt", "fetch()"))
	assert.False(t, s.AllowHRTime())
}

func TestStaticDisabled(t *testing.T) {
	s, err := NewStatic(false, false, false, nil, nil)
	require.NoError(t, err)

	u, err := url.Parse("https://example.com/")
	require.NoError(t, err)
	assert.ErrorIs(t, s.CheckNetURL(u, "fetch()"), flubber.ErrPermissionDenied)
	assert.ErrorIs(t, s.CheckRead("data.txt", "fetch()"), flubber.ErrPermissionDenied)
}

func TestNewStaticInvalidPattern(t *testing.T) {
	_, err := NewStatic(true, true, true, []string{"[bad"}, nil)
	assert.Error(t, err)

	_, err = NewStatic(true, true, true, nil, []string{"  "})
	assert.Error(t, err)
}
