package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/fieldsales-agent/internal/outbox"
	"github.com/benmeehan/fieldsales-agent/internal/registry"
	"github.com/benmeehan/fieldsales-agent/internal/services"
	"github.com/benmeehan/fieldsales-agent/internal/utils"
	"github.com/benmeehan/fieldsales-agent/pkg/backend"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/benmeehan/fieldsales-agent/pkg/location"
	"github.com/benmeehan/fieldsales-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Dependencies are the shared clients handed to background services.
type Dependencies struct {
	MQTTClient mqtt.MQTTClient // nil when no broker is configured
	Backend    backend.Caller
	Session    identity.SessionStoreInterface
	Locator    services.LocationAcquirer
	Outbox     outbox.Store // nil when the outbox is disabled
}

// ServiceRegistry manages the lifecycle of the agent's background services.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	deps        Dependencies
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(deps Dependencies, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]registry.Service),
		deps:     deps,
		Logger:   logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Services returns the names of the registered services in start order.
func (sr *ServiceRegistry) Services() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "outbox",
			enabled: config.Outbox.Enabled,
			constructor: func() (registry.Service, error) {
				if sr.deps.Outbox == nil {
					return nil, errors.New("outbox store is not open")
				}
				return services.NewOutboxService(
					sr.deps.Outbox,
					sr.deps.Backend,
					config.Outbox.Interval,
					config.Outbox.BatchSize,
					config.Outbox.Workers,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "beacon",
			enabled: config.Beacon.Enabled,
			constructor: func() (registry.Service, error) {
				if sr.deps.MQTTClient == nil {
					return nil, errors.New("mqtt client is not connected")
				}
				return services.NewLocationBeaconService(
					config.Beacon.Topic,
					config.Beacon.Interval,
					config.Beacon.QOS,
					sr.deps.Session,
					sr.deps.MQTTClient,
					sr.deps.Locator,
					sr.Logger,
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return fmt.Errorf("failed to create %s service: %w", svc.name, err)
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		} else {
			sr.Logger.Debug().Str("service", svc.name).Msg("Service is disabled, skipping")
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}

// NewLocationProvider builds the positioning provider selected in the configuration.
func NewLocationProvider(config *utils.Config, logger zerolog.Logger) (location.Provider, error) {
	switch config.Location.Provider {
	case utils.ProviderGeolocationAPI:
		provider, err := location.NewGoogleGeolocationProvider(config.Location.MapsAPIKey, config.Location.ModemIndex, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to create Google Geolocation provider")
			return nil, err
		}
		return provider, nil
	case utils.ProviderSensor:
		return location.NewDeviceSensorProvider(config.Location.GPSDevicePort, config.Location.GPSDeviceBaudRate), nil
	default:
		return nil, fmt.Errorf("unknown location provider %q", config.Location.Provider)
	}
}
