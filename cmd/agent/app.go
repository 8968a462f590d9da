package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/benmeehan/fieldsales-agent/internal/outbox"
	"github.com/benmeehan/fieldsales-agent/internal/service_registry"
	"github.com/benmeehan/fieldsales-agent/internal/services"
	"github.com/benmeehan/fieldsales-agent/internal/utils"
	"github.com/benmeehan/fieldsales-agent/pkg/backend"
	"github.com/benmeehan/fieldsales-agent/pkg/file"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/benmeehan/fieldsales-agent/pkg/location"
	"github.com/benmeehan/fieldsales-agent/pkg/mqtt"
	"github.com/benmeehan/fieldsales-agent/pkg/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// app holds the wired components shared by every subcommand.
type app struct {
	config   *utils.Config
	logger   zerolog.Logger
	provider location.Provider
	sampler  *location.Sampler
	session  *identity.SessionStore
	backend  *backend.Client
	outbox   outbox.Store
	mqtt     *mqtt.MqttService

	agents      *services.AgentService
	admin       *services.AdminService
	submissions *services.SubmissionService
}

func newApp(ctx context.Context, config *utils.Config, fileClient file.FileOperations, logger zerolog.Logger) (*app, error) {
	a := &app{config: config, logger: logger}

	a.session = identity.NewSessionStore(config.Session.File, fileClient)
	if err := a.session.Load(); err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	a.backend = backend.NewClient(config.Backend.URL, config.Backend.Timeout)

	provider, err := service_registry.NewLocationProvider(config, logger)
	if err != nil {
		return nil, err
	}
	a.provider = provider

	a.sampler, err = location.NewSampler(provider, config.SamplerConfig(), logger)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}

	if config.Outbox.Path != "" {
		store, err := outbox.OpenSQLiteStore(config.Outbox.Path)
		if err != nil {
			_ = provider.Close()
			return nil, fmt.Errorf("failed to open outbox: %w", err)
		}
		a.outbox = store
	}

	photos, err := newPhotoStore(ctx, config, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.agents = services.NewAgentService(a.backend, a.session, logger)
	a.admin = services.NewAdminService(a.backend, a.session, logger)
	a.submissions = services.NewSubmissionService(a.backend, a.sampler, photos, a.outbox, a.session, config.Catalog.SKUs, logger)
	return a, nil
}

// newPhotoStore connects to object storage, or embeds photos when storage is disabled.
func newPhotoStore(ctx context.Context, config *utils.Config, logger zerolog.Logger) (s3.PhotoStore, error) {
	if !config.Storage.Enabled {
		logger.Debug().Msg("Object storage disabled, photos are embedded inline")
		return s3.InlinePhotoStore{}, nil
	}

	store := s3.NewObjectStorage(config.Storage.Bucket, config.Storage.Region, config.Storage.URLExpiry)
	if err := store.Connect(config.Storage.Endpoint, config.Storage.AccessKeyID, config.Storage.SecretAccessKey, config.Storage.UseSSL); err != nil {
		return nil, fmt.Errorf("failed to connect to object storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare bucket %s: %w", config.Storage.Bucket, err)
	}
	return store, nil
}

// connectMQTT opens the broker connection used by the beacon.
func (a *app) connectMQTT(fileClient file.FileOperations) error {
	clientID := a.config.MQTT.ClientID + "-" + uuid.New().String()
	a.logger.Info().Str("client_id", clientID).Msg("Using MQTT Client ID")

	client := mqtt.NewMqttService(fileClient)
	err := client.Initialize(mqtt.BrokerConfig{
		Broker:        a.config.MQTT.Broker,
		ClientID:      clientID,
		CACertificate: a.config.MQTT.CACertificate,
		Username:      a.config.MQTT.Username,
		Password:      a.config.MQTT.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize MQTT connection: %w", err)
	}
	a.mqtt = client
	return nil
}

func (a *app) registry() *service_registry.ServiceRegistry {
	deps := service_registry.Dependencies{
		Backend: a.backend,
		Session: a.session,
		Locator: a.sampler,
		Outbox:  a.outbox,
	}
	if a.mqtt != nil {
		deps.MQTTClient = a.mqtt
	}
	return service_registry.NewServiceRegistry(deps, a.logger)
}

// Close releases the device, the broker connection and the outbox.
func (a *app) Close() error {
	var errs []error
	if a.mqtt != nil {
		a.mqtt.Disconnect(250)
	}
	if a.provider != nil {
		errs = append(errs, a.provider.Close())
	}
	if a.outbox != nil {
		errs = append(errs, a.outbox.Close())
	}
	return errors.Join(errs...)
}
