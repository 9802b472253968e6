// Package generation implements a latest-wins token for overlapping fetches.
package generation

import "sync/atomic"

// Counter hands out increasing tokens. A result is applied only when its token is still current.
// The zero value is ready to use.
type Counter struct {
	n atomic.Uint64
}

// Next starts a new request and returns its token. Earlier tokens become stale.
func (c *Counter) Next() uint64 {
	return c.n.Add(1)
}

// Current reports whether token belongs to the latest request.
func (c *Counter) Current(token uint64) bool {
	return c.n.Load() == token
}
