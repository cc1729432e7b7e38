//go:build !linux

package bpf

import (
	"errors"

	"github.com/Gthulhu/scx_serverless/plugin"
)

// ErrUnsupported is returned by Open off Linux.
var ErrUnsupported = errors.New("bpf boundary requires linux")

// Boundary is unavailable off Linux.
type Boundary struct {
	plugin.Boundary
}

// Open always fails off Linux.
func Open(pinPath string) (*Boundary, error) {
	return nil, ErrUnsupported
}

// Close is a no-op.
func (b *Boundary) Close() error { return nil }
