package location

import (
	"context"
	"errors"
)

var (
	// ErrLocationUnavailable is returned when the platform has no positioning capability at all.
	ErrLocationUnavailable = errors.New("location services are not available on this device")

	// ErrLocationAcquisitionFailed is returned when every attempt failed and no reading was collected.
	ErrLocationAcquisitionFailed = errors.New("failed to acquire location")

	// ErrNoFix is returned by providers when a request finished without a usable fix.
	ErrNoFix = errors.New("no valid GPS data found")
)

// Provider is a single-shot positioning capability.
type Provider interface {
	// Supported reports whether the capability exists on this platform.
	Supported() bool
	// CurrentPosition requests one fix. Implementations must return once opts.Timeout elapses.
	CurrentPosition(ctx context.Context, opts Options) (Reading, error)
	Close() error
}
