// Package source fetches the raw substitution rules document from a URL or a
// local file.
package source

import (
	"context"
	"strings"
	"time"
)

// Source returns the raw bytes of the rules document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Describe returns the location for logs and error messages.
	Describe() string
}

// Options configures New
type Options struct {
	Location     string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// New returns an HTTPSource for http(s) locations and a FileSource otherwise.
func New(opts Options) Source {
	loc := strings.TrimSpace(opts.Location)
	if IsRemote(loc) {
		return NewHTTPSource(loc, opts.Timeout, opts.MaxBodyBytes)
	}
	return NewFileSource(loc, opts.MaxBodyBytes)
}

// IsRemote reports whether location is an http or https URL.
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
