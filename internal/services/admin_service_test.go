package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/benmeehan/fieldsales-agent/internal/mocks"
	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/internal/services"
	"github.com/benmeehan/fieldsales-agent/pkg/backend"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var adminSession = identity.Session{NationalID: "11111111", Name: "Wanjiku Kamau", Role: "admin"}

func newAdminService(session identity.Session) (*services.AdminService, *mocks.MockCaller) {
	caller := new(mocks.MockCaller)
	store := new(mocks.MockSessionStore)
	store.On("Current").Return(session, nil)
	return services.NewAdminService(caller, store, zerolog.Nop()), caller
}

// TestAdminService_RequiresAdmin tests that agents without the admin role reach no admin action.
func TestAdminService_RequiresAdmin(t *testing.T) {
	svc, caller := newAdminService(identity.Session{NationalID: "22222222", Name: "Otieno", Role: "agent"})
	ctx := context.Background()

	_, err := svc.Visits(ctx)
	assert.ErrorIs(t, err, services.ErrNotAdmin)
	_, err = svc.PendingUplifts(ctx)
	assert.ErrorIs(t, err, services.ErrNotAdmin)
	assert.ErrorIs(t, svc.ApproveUplift(ctx, 4), services.ErrNotAdmin)
	assert.ErrorIs(t, svc.RejectUplift(ctx, 4, "Blurry photo"), services.ErrNotAdmin)
	assert.ErrorIs(t, svc.SetTargets(ctx, models.Target{NationalID: "1"}), services.ErrNotAdmin)

	var actionable *services.ActionableError
	require.ErrorAs(t, err, &actionable)
	assert.Equal(t, "Unauthorized. This page is for admins only.", actionable.Message)
	caller.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestAdminService_SignedOut tests that a missing session is reported.
func TestAdminService_SignedOut(t *testing.T) {
	caller := new(mocks.MockCaller)
	store := new(mocks.MockSessionStore)
	store.On("Current").Return(identity.Session{}, identity.ErrNoSession)
	svc := services.NewAdminService(caller, store, zerolog.Nop())

	_, err := svc.Targets(context.Background())

	assert.ErrorIs(t, err, identity.ErrNoSession)
	caller.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestAdminService_PendingUplifts tests listing uplifts awaiting review.
func TestAdminService_PendingUplifts(t *testing.T) {
	svc, caller := newAdminService(adminSession)
	caller.On("Call", mock.Anything, services.ActionGetPendingUplifts, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(3).(*[]models.PendingUplift)
			*out = []models.PendingUplift{{RowIndex: 7, VisitRow: models.VisitRow{Name: "Otieno", TotalCartons: 12}}}
		}).Return(nil)

	pending, err := svc.PendingUplifts(context.Background())

	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 7, pending[0].RowIndex)
	assert.Equal(t, 12, pending[0].TotalCartons)
}

// TestAdminService_ApproveUplift tests that the signed-in admin is sent as approver.
func TestAdminService_ApproveUplift(t *testing.T) {
	svc, caller := newAdminService(adminSession)
	caller.On("Call", mock.Anything, services.ActionApproveUplift,
		map[string]any{"rowIndex": 7, "approver": "Wanjiku Kamau"}, nil).Return(nil).Once()

	require.NoError(t, svc.ApproveUplift(context.Background(), 7))
	assert.ErrorIs(t, svc.ApproveUplift(context.Background(), 0), services.ErrInvalidForm)
	caller.AssertExpectations(t)
}

// TestAdminService_RejectUplift tests the mandatory rejection reason.
func TestAdminService_RejectUplift(t *testing.T) {
	svc, caller := newAdminService(adminSession)
	caller.On("Call", mock.Anything, services.ActionRejectUplift,
		map[string]any{"rowIndex": 9, "reason": "Photo does not show stock", "approver": "Wanjiku Kamau"}, nil).
		Return(nil).Once()

	err := svc.RejectUplift(context.Background(), 9, "   ")
	var actionable *services.ActionableError
	require.ErrorAs(t, err, &actionable)
	assert.Equal(t, "Please provide a rejection reason.", actionable.Message)
	assert.ErrorIs(t, err, services.ErrInvalidForm)

	require.NoError(t, svc.RejectUplift(context.Background(), 9, "  Photo does not show stock "))
	caller.AssertExpectations(t)
}

// TestAdminService_RejectUplift_BackendError tests that backend failures become a retry message.
func TestAdminService_RejectUplift_BackendError(t *testing.T) {
	svc, caller := newAdminService(adminSession)
	caller.On("Call", mock.Anything, services.ActionRejectUplift, mock.Anything, nil).Return(backend.ErrUnreachable)

	err := svc.RejectUplift(context.Background(), 9, "Duplicate")

	var actionable *services.ActionableError
	require.ErrorAs(t, err, &actionable)
	assert.Equal(t, "Failed to reject uplift. Please try again.", actionable.Message)
	assert.ErrorIs(t, err, backend.ErrUnreachable)
}

// TestAdminService_SetTargets tests target validation and the request parameters.
func TestAdminService_SetTargets(t *testing.T) {
	svc, caller := newAdminService(adminSession)
	caller.On("Call", mock.Anything, services.ActionSetUserTargets, map[string]any{
		"nationalID":    "22222222",
		"name":          "Otieno",
		"dailyTarget":   5,
		"weeklyTarget":  30,
		"monthlyTarget": 120,
	}, nil).Return(nil).Once()

	target := models.Target{NationalID: "22222222", Name: "Otieno", DailyTarget: 5, WeeklyTarget: 30, MonthlyTarget: 120}
	require.NoError(t, svc.SetTargets(context.Background(), target))

	target.WeeklyTarget = -1
	assert.ErrorIs(t, svc.SetTargets(context.Background(), target), services.ErrInvalidForm)
	assert.ErrorIs(t, svc.SetTargets(context.Background(), models.Target{}), services.ErrInvalidForm)
	caller.AssertExpectations(t)
}

// TestAdminService_Summary tests parameter defaults and validation.
func TestAdminService_Summary(t *testing.T) {
	svc, caller := newAdminService(adminSession)
	wantYear := time.Now().Year()
	caller.On("Call", mock.Anything, services.ActionAdminSummary, mock.MatchedBy(func(p map[string]any) bool {
		params, ok := p["params"].(models.SummaryParams)
		return ok && params.Type == models.PeriodMonthly && params.Year == wantYear && params.Month == nil
	}), mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(3).(*models.AdminSummary)
		out.Users = []models.UserSummary{
			{Name: "Otieno", SummaryTotals: models.SummaryTotals{Visits: 10, Sold: 6, Cartons: 40}},
			{Name: "Achieng", SummaryTotals: models.SummaryTotals{Visits: 4, Sold: 1, Cartons: 3}},
		}
	}).Return(nil).Once()

	summary, err := svc.Summary(context.Background(), models.SummaryParams{})
	require.NoError(t, err)
	assert.Equal(t, models.SummaryTotals{Visits: 14, Sold: 7, Cartons: 43}, summary.Totals())

	_, err = svc.Summary(context.Background(), models.SummaryParams{Type: "hourly"})
	assert.ErrorIs(t, err, services.ErrInvalidForm)

	month := 13
	_, err = svc.Summary(context.Background(), models.SummaryParams{Type: models.PeriodDaily, Month: &month})
	assert.ErrorIs(t, err, services.ErrInvalidForm)
	caller.AssertExpectations(t)
}
