package location

import (
	"context"
	"io"
	"time"

	"github.com/tarm/serial"
	"googlemaps.github.io/maps"
)

// SetWait replaces the inter-reading wait so tests can observe delays without sleeping.
func (s *Sampler) SetWait(wait func(ctx context.Context, d time.Duration) error) {
	s.wait = wait
}

var (
	ParseWiFiAccessPoints = parseWiFiAccessPoints
	ParseCellTowers       = parseCellTowers
	IsValidMAC            = isValidMAC
)

// SetOpenPort swaps the serial port opener for an in-memory stream.
func (d *DeviceSensorProvider) SetOpenPort(open func(c *serial.Config) (io.ReadCloser, error)) {
	d.openPort = open
}

// SetScanners replaces the nmcli and mmcli scans.
func (g *GoogleGeolocationProvider) SetScanners(
	wifi func(ctx context.Context) ([]maps.WiFiAccessPoint, error),
	cells func(ctx context.Context, modemIndex int) ([]maps.CellTower, error),
) {
	g.scanWiFi = wifi
	g.scanCells = cells
}

func (g *GoogleGeolocationProvider) BuildRequest(ctx context.Context, opts Options) (*maps.GeolocationRequest, error) {
	return g.buildRequest(ctx, opts)
}
