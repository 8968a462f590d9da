package location

import "time"

// Reading is a single fix reported by a positioning provider.
type Reading struct {
	Latitude  float64 // degrees
	Longitude float64 // degrees
	Accuracy  float64 // uncertainty radius in meters
}

// Coordinates is the resolved location handed back to callers of Acquire.
// Accuracy never leaves the sampler.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Options configures a single positioning request.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration // zero means a cached fix is never reused
}
