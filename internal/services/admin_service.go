package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/pkg/backend"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/rs/zerolog"
)

// Backend actions available to admins.
const (
	ActionGetAllVisits      = "getAllVisits"
	ActionGetAllUplifts     = "getAllUpliftVisits"
	ActionGetPendingUplifts = "getPendingUplifts"
	ActionApproveUplift     = "approveUplift"
	ActionRejectUplift      = "rejectUplift"
	ActionGetAllTargets     = "getAllTargets"
	ActionSetUserTargets    = "setUserTargets"
	ActionAdminSummary      = "adminSummary"
)

// ErrNotAdmin is returned when a non-admin agent calls an admin operation.
var ErrNotAdmin = errors.New("admin role required")

// AdminService reviews uplifts, manages targets and reads team-wide reports.
// Every operation requires a signed-in admin.
type AdminService struct {
	backend backend.Caller
	session identity.SessionStoreInterface
	logger  zerolog.Logger

	now func() time.Time
}

// NewAdminService creates an AdminService.
func NewAdminService(backendClient backend.Caller, session identity.SessionStoreInterface, logger zerolog.Logger) *AdminService {
	return &AdminService{
		backend: backendClient,
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

func (a *AdminService) currentAdmin() (identity.Session, error) {
	admin, err := a.session.Current()
	if err != nil {
		return identity.Session{}, &ActionableError{Message: "Not logged in.", Err: err}
	}
	if !admin.IsAdmin() {
		a.logger.Warn().Str("agent", admin.NationalID).Msg("Admin operation refused")
		return identity.Session{}, &ActionableError{Message: "Unauthorized. This page is for admins only.", Err: ErrNotAdmin}
	}
	return admin, nil
}

// list runs a read-only admin action.
func (a *AdminService) list(ctx context.Context, action string, params map[string]any, out any) error {
	if _, err := a.currentAdmin(); err != nil {
		return err
	}
	if err := a.backend.Call(ctx, action, params, out); err != nil {
		a.logger.Error().Err(err).Str("action", action).Msg("Admin query failed")
		return err
	}
	return nil
}

// Visits lists every recorded visit.
func (a *AdminService) Visits(ctx context.Context) ([]models.VisitRow, error) {
	var rows []models.VisitRow
	if err := a.list(ctx, ActionGetAllVisits, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Uplifts lists every recorded uplift.
func (a *AdminService) Uplifts(ctx context.Context) ([]models.VisitRow, error) {
	var rows []models.VisitRow
	if err := a.list(ctx, ActionGetAllUplifts, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// PendingUplifts lists the uplifts awaiting a decision.
func (a *AdminService) PendingUplifts(ctx context.Context) ([]models.PendingUplift, error) {
	var rows []models.PendingUplift
	if err := a.list(ctx, ActionGetPendingUplifts, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ApproveUplift approves a pending uplift on behalf of the signed-in admin.
func (a *AdminService) ApproveUplift(ctx context.Context, rowIndex int) error {
	admin, err := a.currentAdmin()
	if err != nil {
		return err
	}
	if rowIndex < 1 {
		return invalidForm("Select an uplift")
	}

	params := map[string]any{"rowIndex": rowIndex, "approver": admin.Name}
	if err := a.backend.Call(ctx, ActionApproveUplift, params, nil); err != nil {
		a.logger.Error().Err(err).Int("row", rowIndex).Msg("Uplift approval failed")
		return &ActionableError{Message: "Failed to approve uplift. Please try again.", Err: err}
	}

	a.logger.Info().Int("row", rowIndex).Str("approver", admin.Name).Msg("Uplift approved")
	return nil
}

// RejectUplift rejects a pending uplift. A reason is mandatory.
func (a *AdminService) RejectUplift(ctx context.Context, rowIndex int, reason string) error {
	admin, err := a.currentAdmin()
	if err != nil {
		return err
	}
	if rowIndex < 1 {
		return invalidForm("Select an uplift")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalidForm("Please provide a rejection reason.")
	}

	params := map[string]any{"rowIndex": rowIndex, "reason": reason, "approver": admin.Name}
	if err := a.backend.Call(ctx, ActionRejectUplift, params, nil); err != nil {
		a.logger.Error().Err(err).Int("row", rowIndex).Msg("Uplift rejection failed")
		return &ActionableError{Message: "Failed to reject uplift. Please try again.", Err: err}
	}

	a.logger.Info().Int("row", rowIndex).Str("approver", admin.Name).Msg("Uplift rejected")
	return nil
}

// Targets lists the sales targets of every agent.
func (a *AdminService) Targets(ctx context.Context) ([]models.Target, error) {
	var targets []models.Target
	if err := a.list(ctx, ActionGetAllTargets, nil, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// SetTargets stores an agent's daily, weekly and monthly targets.
func (a *AdminService) SetTargets(ctx context.Context, target models.Target) error {
	if _, err := a.currentAdmin(); err != nil {
		return err
	}
	if strings.TrimSpace(target.NationalID) == "" {
		return invalidForm("Select an agent")
	}
	if target.DailyTarget < 0 || target.WeeklyTarget < 0 || target.MonthlyTarget < 0 {
		return invalidForm("Targets cannot be negative")
	}

	params := map[string]any{
		"nationalID":    target.NationalID,
		"name":          target.Name,
		"dailyTarget":   target.DailyTarget,
		"weeklyTarget":  target.WeeklyTarget,
		"monthlyTarget": target.MonthlyTarget,
	}
	if err := a.backend.Call(ctx, ActionSetUserTargets, params, nil); err != nil {
		a.logger.Error().Err(err).Str("agent", target.NationalID).Msg("Saving targets failed")
		return &ActionableError{Message: "Failed to save targets", Err: err}
	}

	a.logger.Info().Str("agent", target.NationalID).Msg("Targets saved")
	return nil
}

// Summary returns team totals per agent, region and period.
// An empty type defaults to monthly and a zero year to the current one.
func (a *AdminService) Summary(ctx context.Context, params models.SummaryParams) (models.AdminSummary, error) {
	switch params.Type {
	case "":
		params.Type = models.PeriodMonthly
	case models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly:
	default:
		return models.AdminSummary{}, invalidForm(fmt.Sprintf("Unknown summary period %q", params.Type))
	}
	if params.Month != nil && (*params.Month < 1 || *params.Month > 12) {
		return models.AdminSummary{}, invalidForm("Month must be between 1 and 12")
	}
	if params.Year == 0 {
		params.Year = a.now().Year()
	}

	var summary models.AdminSummary
	if err := a.list(ctx, ActionAdminSummary, map[string]any{"params": params}, &summary); err != nil {
		return models.AdminSummary{}, err
	}
	return summary, nil
}
