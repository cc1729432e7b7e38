//go:build !linux

package wake

// New returns the best Notifier for the platform.
func New() (Notifier, error) {
	return NewChan(), nil
}
