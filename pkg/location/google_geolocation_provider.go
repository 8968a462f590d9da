package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider uses the Google Maps API to get location data.
type GoogleGeolocationProvider struct {
	client     *maps.Client // Maps API client for making geolocation requests
	modemIndex int          // ModemManager index queried for the serving cell
	logger     zerolog.Logger

	scanWiFi  func(ctx context.Context) ([]maps.WiFiAccessPoint, error)
	scanCells func(ctx context.Context, modemIndex int) ([]maps.CellTower, error)
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int, logger zerolog.Logger) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleGeolocationProvider{
		client:     c,
		modemIndex: modemIndex,
		logger:     logger,
		scanWiFi:   getWiFiAccessPoints,
		scanCells:  getCellTowers,
	}, nil
}

// Supported reports whether the provider has a usable API client.
func (g *GoogleGeolocationProvider) Supported() bool {
	return g.client != nil
}

// CurrentPosition locates the device from nearby WiFi access points and the serving cell.
// A high-accuracy request never falls back to IP-based geolocation.
func (g *GoogleGeolocationProvider) CurrentPosition(ctx context.Context, opts Options) (Reading, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := g.buildRequest(ctx, opts)
	if err != nil {
		return Reading{}, err
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Reading{}, fmt.Errorf("geolocation request failed: %w", err)
	}

	return Reading{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
	}, nil
}

// buildRequest gathers radio observations. Scan failures are tolerated while another source remains.
func (g *GoogleGeolocationProvider) buildRequest(ctx context.Context, opts Options) (*maps.GeolocationRequest, error) {
	wifiAPs, err := g.scanWiFi(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("WiFi scan failed")
	}

	cellTowers, err := g.scanCells(ctx, g.modemIndex)
	if err != nil {
		g.logger.Warn().Err(err).Int("modem", g.modemIndex).Msg("Cell tower scan failed")
	}

	if opts.HighAccuracy && len(wifiAPs) == 0 && len(cellTowers) == 0 {
		return nil, errors.New("no WiFi access points or cell towers available for geolocation")
	}

	return &maps.GeolocationRequest{
		ConsiderIP:       !opts.HighAccuracy,
		WiFiAccessPoints: wifiAPs,
		CellTowers:       cellTowers,
	}, nil
}

// Close releases nothing; the maps client holds no persistent connection.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
