package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SamplerConfig controls how many fixes are collected per acquisition and how they are requested.
type SamplerConfig struct {
	MaxReadings       int
	PerReadingTimeout time.Duration
	InterReadingDelay time.Duration
	HighAccuracy      bool
}

// DefaultSamplerConfig returns three high-accuracy readings, 8s each, 800ms apart.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		MaxReadings:       3,
		PerReadingTimeout: 8 * time.Second,
		InterReadingDelay: 800 * time.Millisecond,
		HighAccuracy:      true,
	}
}

// Validate checks the configuration for values the sampler cannot work with.
func (c SamplerConfig) Validate() error {
	if c.MaxReadings < 1 {
		return fmt.Errorf("max readings must be at least 1, got %d", c.MaxReadings)
	}
	if c.PerReadingTimeout < 0 || c.InterReadingDelay < 0 {
		return errors.New("sampler durations must not be negative")
	}
	return nil
}

// Sampler resolves a location by averaging several consecutive fixes from a Provider.
//
// Readings are requested one at a time. A failure after at least one success ends the
// acquisition early with whatever was collected; failures before any success are retried
// until the attempt budget is spent. The result is a plain arithmetic mean: readings are
// not weighted by accuracy and outliers are not rejected.
type Sampler struct {
	provider Provider
	config   SamplerConfig
	logger   zerolog.Logger

	wait func(ctx context.Context, d time.Duration) error
}

// NewSampler creates a Sampler for the given provider.
func NewSampler(provider Provider, config SamplerConfig, logger zerolog.Logger) (*Sampler, error) {
	if provider == nil {
		return nil, errors.New("location provider is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Sampler{
		provider: provider,
		config:   config,
		logger:   logger,
		wait:     sleepContext,
	}, nil
}

// Acquire collects up to MaxReadings fixes and returns their mean.
//
// It fails with ErrLocationUnavailable, without issuing any request, when the provider is
// not supported, and with ErrLocationAcquisitionFailed when no reading at all could be
// collected. ctx only aborts the acquisition as a whole.
func (s *Sampler) Acquire(ctx context.Context) (Coordinates, error) {
	if !s.provider.Supported() {
		s.logger.Warn().Msg("Positioning is not supported on this device")
		return Coordinates{}, ErrLocationUnavailable
	}

	opts := Options{
		HighAccuracy: s.config.HighAccuracy,
		Timeout:      s.config.PerReadingTimeout,
		MaximumAge:   0,
	}
	maxReadings := s.config.MaxReadings
	samples := make([]Reading, 0, maxReadings)

	for attempt := 0; attempt < maxReadings; attempt++ {
		reading, err := s.request(ctx, opts)
		if err == nil {
			samples = append(samples, reading)
			s.logger.Debug().
				Int("attempt", attempt+1).
				Int("max_readings", maxReadings).
				Float64("accuracy", reading.Accuracy).
				Msg("Location reading collected")

			if attempt+1 == maxReadings {
				return s.resolve(samples, false), nil
			}
		} else {
			s.logger.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("collected", len(samples)).
				Msg("Location reading failed")

			if len(samples) > 0 {
				return s.resolve(samples, true), nil
			}
			if attempt+1 >= maxReadings {
				return Coordinates{}, fmt.Errorf("%w after %d attempts: %w", ErrLocationAcquisitionFailed, maxReadings, err)
			}
		}

		if err := s.wait(ctx, s.config.InterReadingDelay); err != nil {
			return Coordinates{}, fmt.Errorf("location acquisition aborted: %w", err)
		}
	}

	// Every iteration either returns or continues, and the last one always returns.
	return Coordinates{}, ErrLocationAcquisitionFailed
}

// request issues a single positioning request bounded by the per-reading timeout.
func (s *Sampler) request(ctx context.Context, opts Options) (Reading, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return s.provider.CurrentPosition(ctx, opts)
}

func (s *Sampler) resolve(samples []Reading, partial bool) Coordinates {
	mean, _ := Mean(samples)

	s.logger.Info().
		Int("samples", len(samples)).
		Bool("partial", partial).
		Float64("avg_accuracy", mean.Accuracy).
		Msg("Location resolved")

	return mean.Coordinates()
}

// Mean returns the arithmetic mean of the samples' latitude, longitude and accuracy.
// ok is false for an empty slice.
func Mean(samples []Reading) (mean Reading, ok bool) {
	if len(samples) == 0 {
		return Reading{}, false
	}

	for _, r := range samples {
		mean.Latitude += r.Latitude
		mean.Longitude += r.Longitude
		mean.Accuracy += r.Accuracy
	}
	n := float64(len(samples))
	mean.Latitude /= n
	mean.Longitude /= n
	mean.Accuracy /= n

	return mean, true
}

// Coordinates drops the accuracy of a reading.
func (r Reading) Coordinates() Coordinates {
	return Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
