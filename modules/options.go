package modules

import (
	"io"
	"net/http"
)

// DefaultMaxBodyBytes bounds the body fetch reads into memory.
const DefaultMaxBodyBytes int64 = 32 << 20

// Options configures the default module set.
type Options struct {
	// Stdout receives console.log/info/debug, Stderr console.warn/error.
	Stdout io.Writer
	Stderr io.Writer

	Fetch FetchOptions
}

// FetchOptions configures the fetch module.
type FetchOptions struct {
	// UserAgent identifies the embedding on outbound requests, e.g. "flubber/1.0.0".
	UserAgent string
	Client    *http.Client
	// MaxBodyBytes limits response bodies; zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}
