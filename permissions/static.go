package permissions

import (
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/tx7do/flubber"
)

var _ Gate = (*Static)(nil)

// Static is a fixed policy built from configuration: one switch per
// capability kind plus deny patterns for hosts and paths.
type Static struct {
	Net    bool
	Read   bool
	HRTime bool

	// DenyHosts holds path.Match patterns matched against the URL host
	// (host:port when a port is present, then the bare hostname).
	DenyHosts []string
	// DenyPaths holds path.Match patterns matched against cleaned, slash
	// separated file paths.
	DenyPaths []string

	Logger *slog.Logger
}

// NewStatic returns a Static policy and validates its deny patterns.
func NewStatic(net, read, hrtime bool, denyHosts, denyPaths []string) (*Static, error) {
	for _, p := range append(append([]string{}, denyHosts...), denyPaths...) {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("deny pattern cannot be empty")
		}
		if _, err := path.Match(p, "x"); err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", p, err)
		}
	}
	return &Static{
		Net:       net,
		Read:      read,
		HRTime:    hrtime,
		DenyHosts: denyHosts,
		DenyPaths: denyPaths,
	}, nil
}

func (s *Static) AllowHRTime() bool {
	return s.HRTime
}

func (s *Static) CheckUnstable(apiName string) {
	if s.Logger != nil {
		s.Logger.Debug("Unstable API used", "api", apiName)
	}
}

func (s *Static) CheckNetURL(u *url.URL, apiName string) error {
	denied := &flubber.PermissionError{Kind: "net", Target: u.String(), API: apiName}
	if !s.Net {
		return denied
	}
	for _, pattern := range s.DenyHosts {
		if match(pattern, u.Host) || match(pattern, u.Hostname()) {
			return denied
		}
	}
	return nil
}

func (s *Static) CheckRead(p string, apiName string) error {
	denied := &flubber.PermissionError{Kind: "read", Target: p, API: apiName}
	if !s.Read {
		return denied
	}
	cleaned := filepath.ToSlash(filepath.Clean(p))
	for _, pattern := range s.DenyPaths {
		if match(pattern, cleaned) {
			return denied
		}
	}
	return nil
}

func match(pattern, name string) bool {
	if pattern == "*" {
		return name != ""
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
