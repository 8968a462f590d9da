package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/benmeehan/fieldsales-agent/internal/mocks"
	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/internal/services"
	"github.com/benmeehan/fieldsales-agent/pkg/backend"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/benmeehan/fieldsales-agent/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	catalog = []string{"Chicken", "Beef", "Supa Mojo"}
	agent   = identity.Session{NationalID: "12345678", Name: "Achieng Otieno"}
	photo   = []byte("\x89PNG\r\n\x1a\nselfie")
	nairobi = location.Coordinates{Latitude: -1.2921, Longitude: 36.8219}
)

type submissionDeps struct {
	backend *mocks.MockCaller
	locator *mocks.MockLocationAcquirer
	photos  *mocks.MockPhotoStore
	outbox  *mocks.MockOutboxStore
	session *mocks.MockSessionStore
}

func newSubmissionService(signedIn bool) (*services.SubmissionService, submissionDeps) {
	deps := submissionDeps{
		backend: new(mocks.MockCaller),
		locator: new(mocks.MockLocationAcquirer),
		photos:  new(mocks.MockPhotoStore),
		outbox:  new(mocks.MockOutboxStore),
		session: new(mocks.MockSessionStore),
	}
	if signedIn {
		deps.session.On("Current").Return(agent, nil)
	} else {
		deps.session.On("Current").Return(identity.Session{}, identity.ErrNoSession)
	}

	svc := services.NewSubmissionService(deps.backend, deps.locator, deps.photos, deps.outbox, deps.session, catalog, zerolog.Nop())
	return svc, deps
}

func soldVisit() models.VisitForm {
	return models.VisitForm{
		Region:        "Nairobi West",
		Shop:          " Mama Mboga Stores ",
		Sold:          models.SoldYes,
		SKUQuantities: map[string]int{"Beef": 2, "Chicken": 5, "Supa Mojo": 0},
		Photo:         photo,
	}
}

// TestSubmissionService_SubmitVisit_Success tests a complete visit submission.
func TestSubmissionService_SubmitVisit_Success(t *testing.T) {
	svc, deps := newSubmissionService(true)
	deps.locator.On("Acquire", mock.Anything).Return(nairobi, nil)
	deps.photos.On("UploadPhoto", mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "visits/12345678/") && strings.HasSuffix(name, ".png")
	}), photo).Return("https://photos.example.com/visit.png", nil)
	deps.backend.On("Call", mock.Anything, services.ActionSaveVisit, mock.MatchedBy(func(p map[string]any) bool {
		record, ok := p["record"].(models.VisitRecord)
		return ok && record.ShopName == "Mama Mboga Stores" && record.Latitude == nairobi.Latitude
	}), nil).Return(nil)

	record, err := svc.SubmitVisit(context.Background(), soldVisit())

	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "12345678", record.NationalID)
	assert.Equal(t, "Achieng Otieno", record.Name)
	assert.Equal(t, "Nairobi West", record.Region)
	assert.Equal(t, models.SoldYes, record.Sold)
	// Catalog order, zero quantities dropped
	assert.Equal(t, []models.SKULine{{Name: "Chicken", Qty: 5}, {Name: "Beef", Qty: 2}}, record.SKUs)
	assert.Empty(t, record.Reason)
	assert.Equal(t, nairobi.Latitude, record.Latitude)
	assert.Equal(t, nairobi.Longitude, record.Longitude)
	assert.Equal(t, "https://photos.example.com/visit.png", record.Selfie)
	assert.False(t, record.CapturedAt.IsZero())

	deps.backend.AssertExpectations(t)
	deps.outbox.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestSubmissionService_SubmitVisit_OtherReason tests that free text replaces the "Other" reason.
func TestSubmissionService_SubmitVisit_OtherReason(t *testing.T) {
	svc, deps := newSubmissionService(true)
	deps.locator.On("Acquire", mock.Anything).Return(nairobi, nil)
	deps.photos.On("UploadPhoto", mock.Anything, mock.Anything, photo).Return("https://photos.example.com/v.png", nil)
	deps.backend.On("Call", mock.Anything, services.ActionSaveVisit, mock.Anything, nil).Return(nil)

	record, err := svc.SubmitVisit(context.Background(), models.VisitForm{
		Region:      "Kisumu",
		Shop:        "Lakeside Kiosk",
		Sold:        models.SoldNo,
		Reason:      models.ReasonOther,
		OtherReason: "  Owner travelling  ",
		Photo:       photo,
	})

	require.NoError(t, err)
	assert.Equal(t, "Owner travelling", record.Reason)
	assert.NotNil(t, record.SKUs)
	assert.Empty(t, record.SKUs)
}

// TestSubmissionService_SubmitVisit_InvalidForm tests validation before any location request.
func TestSubmissionService_SubmitVisit_InvalidForm(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *models.VisitForm)
		message string
	}{
		{"no photo", func(f *models.VisitForm) { f.Photo = nil }, "Capture selfie"},
		{"no region", func(f *models.VisitForm) { f.Region = " " }, "Select region"},
		{"no shop", func(f *models.VisitForm) { f.Shop = "" }, "Enter shop name"},
		{"no quantities", func(f *models.VisitForm) { f.SKUQuantities = map[string]int{"Beef": 0} }, "Select SKU quantity"},
		{"unknown sku", func(f *models.VisitForm) { f.SKUQuantities = map[string]int{"Pork": 1} }, "Unknown SKU Pork"},
		{"negative quantity", func(f *models.VisitForm) { f.SKUQuantities = map[string]int{"Beef": -1} }, "Quantity for Beef cannot be negative"},
		{"no reason", func(f *models.VisitForm) { f.Sold = models.SoldNo }, "Select reason"},
		{"blank other", func(f *models.VisitForm) {
			f.Sold = models.SoldNo
			f.Reason = models.ReasonOther
			f.OtherReason = "   "
		}, "Specify reason"},
		{"no sold answer", func(f *models.VisitForm) { f.Sold = "" }, "Select whether the shop bought"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newSubmissionService(true)
			form := soldVisit()
			tt.mutate(&form)

			_, err := svc.SubmitVisit(context.Background(), form)

			var actionable *services.ActionableError
			require.ErrorAs(t, err, &actionable)
			assert.Equal(t, tt.message, actionable.Message)
			assert.ErrorIs(t, err, services.ErrInvalidForm)
			deps.locator.AssertNotCalled(t, "Acquire", mock.Anything)
			deps.backend.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// TestSubmissionService_SubmitVisit_LocationBlocked tests that location failures block submission.
func TestSubmissionService_SubmitVisit_LocationBlocked(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "unavailable",
			err:      location.ErrLocationUnavailable,
			sentinel: location.ErrLocationUnavailable,
			message:  "Location is not available on this device. Enable location access to continue.",
		},
		{
			name:     "acquisition failed",
			err:      errors.Join(location.ErrLocationAcquisitionFailed, errors.New("timeout")),
			sentinel: location.ErrLocationAcquisitionFailed,
			message:  "Enable GPS to continue.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newSubmissionService(true)
			deps.locator.On("Acquire", mock.Anything).Return(location.Coordinates{}, tt.err)

			_, err := svc.SubmitVisit(context.Background(), soldVisit())

			var actionable *services.ActionableError
			require.ErrorAs(t, err, &actionable)
			assert.Equal(t, tt.message, actionable.Message)
			assert.ErrorIs(t, err, tt.sentinel)
			deps.photos.AssertNotCalled(t, "UploadPhoto", mock.Anything, mock.Anything, mock.Anything)
			deps.backend.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			deps.outbox.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// TestSubmissionService_SubmitVisit_Cancelled tests that a cancelled acquisition is returned unchanged.
func TestSubmissionService_SubmitVisit_Cancelled(t *testing.T) {
	svc, deps := newSubmissionService(true)
	deps.locator.On("Acquire", mock.Anything).Return(location.Coordinates{}, context.Canceled)

	_, err := svc.SubmitVisit(context.Background(), soldVisit())

	assert.ErrorIs(t, err, context.Canceled)
	var actionable *services.ActionableError
	assert.False(t, errors.As(err, &actionable))
}

// TestSubmissionService_SubmitVisit_QueuedOffline tests that unreachable backends queue the record.
func TestSubmissionService_SubmitVisit_QueuedOffline(t *testing.T) {
	svc, deps := newSubmissionService(true)
	deps.locator.On("Acquire", mock.Anything).Return(nairobi, nil)
	deps.photos.On("UploadPhoto", mock.Anything, mock.Anything, photo).Return("https://photos.example.com/v.png", nil)
	deps.backend.On("Call", mock.Anything, services.ActionSaveVisit, mock.Anything, nil).
		Return(errors.Join(backend.ErrUnreachable, errors.New("dial tcp: no route to host")))
	deps.outbox.On("Enqueue", mock.Anything, services.ActionSaveVisit, mock.Anything, mock.MatchedBy(func(payload []byte) bool {
		return strings.Contains(string(payload), `"shopName":"Mama Mboga Stores"`)
	})).Return(nil)

	record, err := svc.SubmitVisit(context.Background(), soldVisit())

	assert.ErrorIs(t, err, services.ErrQueuedOffline)
	assert.NotEmpty(t, record.ID)
	deps.outbox.AssertCalled(t, "Enqueue", mock.Anything, services.ActionSaveVisit, record.ID, mock.Anything)
}

// TestSubmissionService_SubmitVisit_QueueFailure tests that both errors surface when queueing fails.
func TestSubmissionService_SubmitVisit_QueueFailure(t *testing.T) {
	svc, deps := newSubmissionService(true)
	deps.locator.On("Acquire", mock.Anything).Return(nairobi, nil)
	deps.photos.On("UploadPhoto", mock.Anything, mock.Anything, photo).Return("https://photos.example.com/v.png", nil)
	deps.backend.On("Call", mock.Anything, services.ActionSaveVisit, mock.Anything, nil).Return(backend.ErrUnreachable)
	deps.outbox.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.SubmitVisit(context.Background(), soldVisit())

	assert.ErrorIs(t, err, backend.ErrUnreachable)
	assert.ErrorContains(t, err, "disk full")
	assert.NotErrorIs(t, err, services.ErrQueuedOffline)
}

// TestSubmissionService_SubmitVisit_Rejected tests that rejected records are not queued.
func TestSubmissionService_SubmitVisit_Rejected(t *testing.T) {
	svc, deps := newSubmissionService(true)
	deps.locator.On("Acquire", mock.Anything).Return(nairobi, nil)
	deps.photos.On("UploadPhoto", mock.Anything, mock.Anything, photo).Return("https://photos.example.com/v.png", nil)
	deps.backend.On("Call", mock.Anything, services.ActionSaveVisit, mock.Anything, nil).Return(backend.ErrRejected)

	_, err := svc.SubmitVisit(context.Background(), soldVisit())

	var actionable *services.ActionableError
	require.ErrorAs(t, err, &actionable)
	assert.Equal(t, "Submission failed. Please try again.", actionable.Message)
	assert.ErrorIs(t, err, backend.ErrRejected)
	deps.outbox.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestSubmissionService_SubmitVisit_PhotoFallback tests inline photos when storage is down.
func TestSubmissionService_SubmitVisit_PhotoFallback(t *testing.T) {
	svc, deps := newSubmissionService(true)
	deps.locator.On("Acquire", mock.Anything).Return(nairobi, nil)
	deps.photos.On("UploadPhoto", mock.Anything, mock.Anything, photo).Return("", errors.New("connection refused"))
	deps.backend.On("Call", mock.Anything, services.ActionSaveVisit, mock.Anything, nil).Return(nil)

	record, err := svc.SubmitVisit(context.Background(), soldVisit())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(record.Selfie, "data:image/png;base64,"))
}

// TestSubmissionService_SubmitVisit_NotSignedIn tests that an agent must be signed in.
func TestSubmissionService_SubmitVisit_NotSignedIn(t *testing.T) {
	svc, deps := newSubmissionService(false)

	_, err := svc.SubmitVisit(context.Background(), soldVisit())

	assert.ErrorIs(t, err, identity.ErrNoSession)
	deps.locator.AssertNotCalled(t, "Acquire", mock.Anything)
}

// TestSubmissionService_SubmitUplift_Success tests a complete uplift submission.
func TestSubmissionService_SubmitUplift_Success(t *testing.T) {
	svc, deps := newSubmissionService(true)
	deps.locator.On("Acquire", mock.Anything).Return(nairobi, nil)
	deps.photos.On("UploadPhoto", mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "uplifts/12345678/")
	}), photo).Return("https://photos.example.com/uplift.png", nil)
	deps.backend.On("Call", mock.Anything, services.ActionSaveUplift, mock.Anything, nil).Return(nil)

	record, err := svc.SubmitUplift(context.Background(), models.UpliftForm{
		Region:        "Mombasa",
		Shop:          "Nyali Mart",
		SKUQuantities: map[string]int{"Supa Mojo": 12},
		Photo:         photo,
	})

	require.NoError(t, err)
	assert.Equal(t, []models.SKULine{{Name: "Supa Mojo", Qty: 12}}, record.SKUs)
	assert.Equal(t, "https://photos.example.com/uplift.png", record.Photo)
	assert.Equal(t, nairobi.Longitude, record.Longitude)
	deps.backend.AssertExpectations(t)
}

// TestSubmissionService_SubmitUplift_InvalidForm tests uplift validation.
func TestSubmissionService_SubmitUplift_InvalidForm(t *testing.T) {
	svc, deps := newSubmissionService(true)

	_, err := svc.SubmitUplift(context.Background(), models.UpliftForm{Shop: "Nyali Mart", Photo: photo})
	assert.ErrorIs(t, err, services.ErrInvalidForm)

	_, err = svc.SubmitUplift(context.Background(), models.UpliftForm{Shop: "Nyali Mart", SKUQuantities: map[string]int{"Beef": 1}})
	assert.ErrorIs(t, err, services.ErrInvalidForm)

	deps.locator.AssertNotCalled(t, "Acquire", mock.Anything)
}
