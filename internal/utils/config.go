package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/fieldsales-agent/pkg/file"
	"github.com/benmeehan/fieldsales-agent/pkg/location"
)

// Location provider kinds.
const (
	ProviderSensor         = "sensor"
	ProviderGeolocationAPI = "geolocation_api"
)

// Config represents the structure of the configuration file.
type Config struct {
	Backend struct {
		URL     string        `yaml:"url"`     // Spreadsheet backend endpoint
		Timeout time.Duration `yaml:"timeout"` // Per-request timeout
	} `yaml:"backend"`

	Session struct {
		File string `yaml:"file"` // Path to the persisted agent session
	} `yaml:"session"`

	Catalog struct {
		SKUs []string `yaml:"skus"` // Products agents can record, in display order
	} `yaml:"catalog"`

	Location struct {
		Provider          string `yaml:"provider"`        // sensor or geolocation_api
		MapsAPIKey        string `yaml:"maps_api_key"`    // Google maps API Key
		ModemIndex        int    `yaml:"modem_index"`     // ModemManager modem used for cell lookups
		GPSDevicePort     string `yaml:"gps_device_port"` // UNIX Port where the GPS sensor is mounted
		GPSDeviceBaudRate int    `yaml:"gps_baud_rate"`   // The Baud rate for GPS sensor

		Sampler struct {
			MaxReadings       int           `yaml:"max_readings"`
			PerReadingTimeout time.Duration `yaml:"per_reading_timeout"`
			InterReadingDelay time.Duration `yaml:"inter_reading_delay"`
			HighAccuracy      *bool         `yaml:"high_accuracy"`
		} `yaml:"sampler"`
	} `yaml:"location"`

	Storage struct {
		Enabled         bool          `yaml:"enabled"` // Upload photos instead of embedding them
		Endpoint        string        `yaml:"endpoint"`
		AccessKeyID     string        `yaml:"access_key_id"`
		SecretAccessKey string        `yaml:"secret_access_key"`
		UseSSL          bool          `yaml:"use_ssl"`
		Bucket          string        `yaml:"bucket"`
		Region          string        `yaml:"region"`
		URLExpiry       time.Duration `yaml:"url_expiry"` // Lifetime of presigned photo URLs
	} `yaml:"storage"`

	Outbox struct {
		Path      string        `yaml:"path"`       // SQLite database for undelivered records
		Interval  time.Duration `yaml:"interval"`   // Retry interval
		BatchSize int           `yaml:"batch_size"` // Records per retry
		Workers   int           `yaml:"workers"`    // Concurrent deliveries
		Enabled   bool          `yaml:"enabled"`    // Run the retry loop
	} `yaml:"outbox"`

	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID prefix
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate
		Username      string `yaml:"username"`
		Password      string `yaml:"password"`
	} `yaml:"mqtt"`

	Beacon struct {
		Enabled  bool          `yaml:"enabled"`  // Publish agent location periodically
		Topic    string        `yaml:"topic"`    // MQTT topic for location beacons
		Interval time.Duration `yaml:"interval"` // Interval between beacons
		QOS      int           `yaml:"qos"`      // MQTT QoS level for beacon messages
	} `yaml:"beacon"`
}

// LoadConfig loads the YAML configuration from the specified file, fills in defaults and validates it.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", filename, err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := location.DefaultSamplerConfig()
	sampler := &c.Location.Sampler
	if sampler.MaxReadings == 0 {
		sampler.MaxReadings = defaults.MaxReadings
	}
	if sampler.PerReadingTimeout == 0 {
		sampler.PerReadingTimeout = defaults.PerReadingTimeout
	}
	if sampler.InterReadingDelay == 0 {
		sampler.InterReadingDelay = defaults.InterReadingDelay
	}
	if sampler.HighAccuracy == nil {
		highAccuracy := defaults.HighAccuracy
		sampler.HighAccuracy = &highAccuracy
	}

	if c.Location.Provider == "" {
		c.Location.Provider = ProviderSensor
	}
	if c.Location.GPSDeviceBaudRate == 0 {
		c.Location.GPSDeviceBaudRate = 9600
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 30 * time.Second
	}
	if c.Session.File == "" {
		c.Session.File = "data/session.json"
	}
	if len(c.Catalog.SKUs) == 0 {
		c.Catalog.SKUs = []string{"Chicken", "Beef", "Supa Mojo"}
	}
	if c.Storage.URLExpiry == 0 {
		c.Storage.URLExpiry = 7 * 24 * time.Hour
	}
	if c.Outbox.Interval == 0 {
		c.Outbox.Interval = time.Minute
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 20
	}
	if c.Outbox.Workers == 0 {
		c.Outbox.Workers = 2
	}
	if c.Beacon.Interval == 0 {
		c.Beacon.Interval = 5 * time.Minute
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "fieldsales-agent"
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Backend.URL == "" {
		errs = append(errs, errors.New("backend.url is required"))
	}
	if err := c.SamplerConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("location.sampler: %w", err))
	}

	switch c.Location.Provider {
	case ProviderSensor:
		if c.Location.GPSDevicePort == "" {
			errs = append(errs, errors.New("location.gps_device_port is required for the sensor provider"))
		}
	case ProviderGeolocationAPI:
		if c.Location.MapsAPIKey == "" {
			errs = append(errs, errors.New("location.maps_api_key is required for the geolocation_api provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown location.provider %q", c.Location.Provider))
	}

	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		errs = append(errs, errors.New("storage.endpoint and storage.bucket are required when storage is enabled"))
	}
	if c.Outbox.Enabled && c.Outbox.Path == "" {
		errs = append(errs, errors.New("outbox.path is required when the outbox is enabled"))
	}
	if c.Beacon.Enabled {
		if c.MQTT.Broker == "" || c.Beacon.Topic == "" {
			errs = append(errs, errors.New("mqtt.broker and beacon.topic are required when the beacon is enabled"))
		}
		if c.Beacon.QOS < 0 || c.Beacon.QOS > 2 {
			errs = append(errs, fmt.Errorf("beacon.qos must be 0, 1 or 2, got %d", c.Beacon.QOS))
		}
	}

	return errors.Join(errs...)
}

// SamplerConfig returns the location sampler settings.
func (c *Config) SamplerConfig() location.SamplerConfig {
	s := c.Location.Sampler
	highAccuracy := true
	if s.HighAccuracy != nil {
		highAccuracy = *s.HighAccuracy
	}
	return location.SamplerConfig{
		MaxReadings:       s.MaxReadings,
		PerReadingTimeout: s.PerReadingTimeout,
		InterReadingDelay: s.InterReadingDelay,
		HighAccuracy:      highAccuracy,
	}
}
