package location

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// nominalUERE is the user equivalent range error, in meters, used to turn HDOP into an accuracy radius.
const nominalUERE = 5.0

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication

	mu sync.Mutex // the port is opened by one request at a time

	openPort func(c *serial.Config) (io.ReadCloser, error)
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
		openPort: func(c *serial.Config) (io.ReadCloser, error) {
			return serial.OpenPort(c)
		},
	}
}

// Supported reports whether the GPS device node is present.
func (d *DeviceSensorProvider) Supported() bool {
	_, err := os.Stat(d.port)
	return err == nil
}

// CurrentPosition reads NMEA sentences until the first valid GGA fix or until the request times out.
// The receiver is always read live, so opts.MaximumAge has no effect.
func (d *DeviceSensorProvider) CurrentPosition(ctx context.Context, opts Options) (Reading, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c := &serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: time.Second}
	port, err := d.openPort(c)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to open GPS port %s: %w", d.port, err)
	}

	var closeOnce sync.Once
	closePort := func() { closeOnce.Do(func() { port.Close() }) }
	defer closePort()

	// Closing the port unblocks a pending read once the deadline passes
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closePort()
		case <-done:
		}
	}()

	reading, err := scanFix(ctx, port)
	if err != nil && ctx.Err() != nil {
		return Reading{}, fmt.Errorf("GPS request timed out: %w", ctx.Err())
	}
	return reading, err
}

// Close is a no-op; the serial port is opened per request.
func (d *DeviceSensorProvider) Close() error {
	return nil
}

// scanFix returns the first GGA sentence carrying a valid fix.
func scanFix(ctx context.Context, r io.Reader) (Reading, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Reading{}, err
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") || !strings.Contains(line, "GGA,") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// Serial noise corrupts sentences now and then; wait for the next one
			continue
		}

		gga, ok := sentence.(nmea.GGA)
		if !ok || gga.FixQuality == nmea.Invalid {
			continue
		}

		return Reading{
			Latitude:  gga.Latitude,
			Longitude: gga.Longitude,
			Accuracy:  gga.HDOP * nominalUERE,
		}, nil
	}

	if err := scanner.Err(); err != nil {
		return Reading{}, err
	}

	return Reading{}, ErrNoFix
}
