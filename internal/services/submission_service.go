package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/internal/outbox"
	"github.com/benmeehan/fieldsales-agent/pkg/backend"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/benmeehan/fieldsales-agent/pkg/location"
	"github.com/benmeehan/fieldsales-agent/pkg/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Backend actions used for submissions.
const (
	ActionSaveVisit  = "saveVisit"
	ActionSaveUplift = "saveUplift"
)

// LocationAcquirer resolves the agent's current position.
type LocationAcquirer interface {
	Acquire(ctx context.Context) (location.Coordinates, error)
}

// SubmissionService validates visit and uplift forms, stamps them with the agent's
// location and sends them to the backend.
type SubmissionService struct {
	backend backend.Caller
	locator LocationAcquirer
	photos  s3.PhotoStore
	outbox  outbox.Store // optional
	session identity.SessionStoreInterface
	catalog []string
	logger  zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewSubmissionService creates a SubmissionService. outboxStore may be nil, in which case
// records that cannot be delivered are not kept.
func NewSubmissionService(backendClient backend.Caller, locator LocationAcquirer, photos s3.PhotoStore,
	outboxStore outbox.Store, session identity.SessionStoreInterface, catalog []string, logger zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		backend: backendClient,
		locator: locator,
		photos:  photos,
		outbox:  outboxStore,
		session: session,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// SubmitVisit records a shop visit.
//
// The form is validated first and the location acquired second, so no GPS time is spent on
// a form that would be rejected anyway. When the location cannot be acquired nothing is sent.
func (s *SubmissionService) SubmitVisit(ctx context.Context, form models.VisitForm) (models.VisitRecord, error) {
	agent, err := s.currentAgent()
	if err != nil {
		return models.VisitRecord{}, err
	}

	skus, reason, err := validateVisit(form, s.catalog)
	if err != nil {
		return models.VisitRecord{}, err
	}

	coords, err := s.locate(ctx)
	if err != nil {
		return models.VisitRecord{}, err
	}

	id := s.newID()
	record := models.VisitRecord{
		ID:         id,
		NationalID: agent.NationalID,
		Name:       agent.Name,
		Region:     strings.TrimSpace(form.Region),
		ShopName:   strings.TrimSpace(form.Shop),
		Sold:       form.Sold,
		SKUs:       skus,
		Reason:     reason,
		Longitude:  coords.Longitude,
		Latitude:   coords.Latitude,
		Selfie:     s.storePhoto(ctx, "visits", agent.NationalID, id, form.Photo),
		CapturedAt: s.now().UTC(),
	}

	return record, s.deliver(ctx, ActionSaveVisit, id, record)
}

// SubmitUplift records a stock uplift.
func (s *SubmissionService) SubmitUplift(ctx context.Context, form models.UpliftForm) (models.UpliftRecord, error) {
	agent, err := s.currentAgent()
	if err != nil {
		return models.UpliftRecord{}, err
	}

	skus, err := validateUplift(form, s.catalog)
	if err != nil {
		return models.UpliftRecord{}, err
	}

	coords, err := s.locate(ctx)
	if err != nil {
		return models.UpliftRecord{}, err
	}

	id := s.newID()
	record := models.UpliftRecord{
		ID:         id,
		NationalID: agent.NationalID,
		Name:       agent.Name,
		Region:     strings.TrimSpace(form.Region),
		ShopName:   strings.TrimSpace(form.Shop),
		SKUs:       skus,
		Longitude:  coords.Longitude,
		Latitude:   coords.Latitude,
		Photo:      s.storePhoto(ctx, "uplifts", agent.NationalID, id, form.Photo),
		CapturedAt: s.now().UTC(),
	}

	return record, s.deliver(ctx, ActionSaveUplift, id, record)
}

func (s *SubmissionService) currentAgent() (identity.Session, error) {
	agent, err := s.session.Current()
	if err != nil {
		return identity.Session{}, &ActionableError{Message: "Sign in to continue.", Err: err}
	}
	return agent, nil
}

// locate turns location failures into messages the agent can act on.
func (s *SubmissionService) locate(ctx context.Context) (location.Coordinates, error) {
	coords, err := s.locator.Acquire(ctx)
	switch {
	case err == nil:
		return coords, nil
	case errors.Is(err, location.ErrLocationUnavailable):
		s.logger.Warn().Err(err).Msg("Submission blocked: location unavailable")
		return location.Coordinates{}, &ActionableError{Message: "Location is not available on this device. Enable location access to continue.", Err: err}
	case errors.Is(err, location.ErrLocationAcquisitionFailed):
		s.logger.Warn().Err(err).Msg("Submission blocked: no location fix")
		return location.Coordinates{}, &ActionableError{Message: "Enable GPS to continue.", Err: err}
	default:
		return location.Coordinates{}, err
	}
}

// storePhoto uploads the photo, falling back to an inline data URL when storage fails.
func (s *SubmissionService) storePhoto(ctx context.Context, kind, agentID, recordID string, photo []byte) string {
	objectName := path.Join(kind, agentID, recordID+".png")
	url, err := s.photos.UploadPhoto(ctx, objectName, photo)
	if err != nil {
		s.logger.Warn().Err(err).Str("object", objectName).Msg("Photo upload failed, embedding inline")
		return s3.DataURL(photo)
	}
	return url
}

// deliver sends the record, queueing it in the outbox when the backend is unreachable.
func (s *SubmissionService) deliver(ctx context.Context, action, id string, record any) error {
	err := s.backend.Call(ctx, action, map[string]any{"record": record}, nil)
	if err == nil {
		s.logger.Info().Str("action", action).Str("id", id).Msg("Record submitted")
		return nil
	}

	if errors.Is(err, backend.ErrUnreachable) && s.outbox != nil {
		payload, mErr := json.Marshal(record)
		if mErr != nil {
			return errors.Join(err, mErr)
		}
		if qErr := s.outbox.Enqueue(ctx, action, id, payload); qErr != nil {
			s.logger.Error().Err(qErr).Str("id", id).Msg("Failed to queue record")
			return errors.Join(err, qErr)
		}
		s.logger.Warn().Err(err).Str("action", action).Str("id", id).Msg("Backend unreachable, record queued")
		return ErrQueuedOffline
	}

	s.logger.Error().Err(err).Str("action", action).Str("id", id).Msg("Record submission failed")
	return &ActionableError{Message: "Submission failed. Please try again.", Err: fmt.Errorf("%s %s: %w", action, id, err)}
}
