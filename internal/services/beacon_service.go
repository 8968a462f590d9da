package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/benmeehan/fieldsales-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// LocationBeaconService periodically publishes the signed-in agent's position to an MQTT topic.
type LocationBeaconService struct {
	// Configuration fields
	topic    string
	interval time.Duration
	qos      int

	// Dependencies
	session    identity.SessionStoreInterface
	mqttClient mqtt.MQTTClient
	locator    LocationAcquirer
	logger     zerolog.Logger

	// Internal state management
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocationBeaconService creates a new LocationBeaconService instance with the provided configuration.
func NewLocationBeaconService(topic string, interval time.Duration, qos int, session identity.SessionStoreInterface,
	mqttClient mqtt.MQTTClient, locator LocationAcquirer, logger zerolog.Logger) *LocationBeaconService {
	return &LocationBeaconService{
		topic:      topic,
		interval:   interval,
		qos:        qos,
		session:    session,
		mqttClient: mqttClient,
		locator:    locator,
		logger:     logger,
	}
}

// Start launches the beacon loop in a separate goroutine.
func (l *LocationBeaconService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctx != nil {
		l.logger.Warn().Msg("LocationBeaconService is already running")
		return errors.New("location beacon service is already running")
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())

	l.wg.Add(1)
	go func(ctx context.Context) {
		defer l.wg.Done()

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := l.PublishCurrentLocation(ctx); err != nil {
					l.logger.Error().Err(err).Msg("Failed to publish agent location")
				}
			case <-ctx.Done():
				l.logger.Info().Msg("LocationBeaconService is stopping")
				return
			}
		}
	}(l.ctx)

	l.logger.Info().
		Str("topic", l.topic).
		Dur("interval", l.interval).
		Int("qos", l.qos).
		Msg("LocationBeaconService started")
	return nil
}

// Stop cancels the loop, interrupting an acquisition in progress, and waits for it to exit.
func (l *LocationBeaconService) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctx == nil {
		l.logger.Warn().Msg("LocationBeaconService is not running")
		return errors.New("location beacon service is not running")
	}

	l.cancel()
	l.wg.Wait()

	l.ctx = nil
	l.cancel = nil

	l.logger.Info().Msg("LocationBeaconService stopped")
	return nil
}

// PublishCurrentLocation acquires the agent's location and publishes it.
// Nothing is published while no agent is signed in.
func (l *LocationBeaconService) PublishCurrentLocation(ctx context.Context) error {
	agent, err := l.session.Current()
	if err != nil {
		l.logger.Debug().Msg("No agent signed in, skipping location beacon")
		return nil
	}

	coords, err := l.locator.Acquire(ctx)
	if err != nil {
		return err
	}

	message := models.AgentLocation{
		AgentID:   agent.NationalID,
		Timestamp: time.Now().UTC(),
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	token := l.mqttClient.Publish(l.topic, byte(l.qos), false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		l.logger.Error().
			Err(err).
			Str("topic", l.topic).
			Msg("Failed to publish location message to MQTT")
		return err
	}

	l.logger.Debug().
		Str("agent", message.AgentID).
		Str("topic", l.topic).
		Msg("Location beacon published")
	return nil
}
