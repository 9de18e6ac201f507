// Package permissions defines the gate consulted by privileged built-ins
// before they touch the clock, the network or the filesystem.
package permissions

import "net/url"

// Gate is the capability-check protocol consulted by built-in modules.
//
// Every method is queried synchronously at the point of use, each time the
// capability is needed. Implementations must not block and must not cache a
// decision across calls with different arguments.
type Gate interface {
	// AllowHRTime reports whether scripts may read high-resolution time.
	AllowHRTime() bool

	// CheckUnstable is consulted before an unstable API is used. The
	// protocol has no rejection path; a policy that wants to refuse must
	// fail the following capability check instead.
	CheckUnstable(apiName string)

	// CheckNetURL is consulted before every outbound network operation.
	CheckNetURL(u *url.URL, apiName string) error

	// CheckRead is consulted before every filesystem read requested by a built-in.
	CheckRead(path string, apiName string) error
}

// AllowAll grants every request unconditionally.
//
// It is a placeholder that keeps the call sites in place, not a security
// boundary. Use Static, or another Gate implementation, for a real policy.
type AllowAll struct{}

var _ Gate = AllowAll{}

func (AllowAll) AllowHRTime() bool { return true }

func (AllowAll) CheckUnstable(string) {}

func (AllowAll) CheckNetURL(*url.URL, string) error { return nil }

func (AllowAll) CheckRead(string, string) error { return nil }
