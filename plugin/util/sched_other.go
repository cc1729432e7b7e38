//go:build !linux

package util

import "errors"

var errUnsupported = errors.New("requires linux")

func LockMemory() error { return errUnsupported }

func SetSchedExt() error { return errUnsupported }
