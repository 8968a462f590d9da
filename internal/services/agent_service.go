package services

import (
	"context"
	"errors"

	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/pkg/backend"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/rs/zerolog"
)

// AgentService signs agents in and out and reads their dashboard.
type AgentService struct {
	backend backend.Caller
	session identity.SessionStoreInterface
	logger  zerolog.Logger
}

// NewAgentService creates an AgentService.
func NewAgentService(backendClient backend.Caller, session identity.SessionStoreInterface, logger zerolog.Logger) *AgentService {
	return &AgentService{
		backend: backendClient,
		session: session,
		logger:  logger,
	}
}

// Login checks the credentials with the backend and persists the returned session.
func (a *AgentService) Login(ctx context.Context, nationalID, password string) (identity.Session, error) {
	if nationalID == "" || password == "" {
		return identity.Session{}, invalidForm("Enter National ID & Password")
	}

	var session identity.Session
	err := a.backend.Call(ctx, "login", map[string]any{
		"nationalID": nationalID,
		"password":   password,
	}, &session)
	if err != nil {
		if errors.Is(err, backend.ErrRejected) {
			return identity.Session{}, &ActionableError{Message: "Invalid credentials", Err: err}
		}
		return identity.Session{}, &ActionableError{Message: "Login failed. Please try again.", Err: err}
	}

	if session.NationalID == "" {
		session.NationalID = nationalID
	}
	if err := a.session.Save(session); err != nil {
		return identity.Session{}, err
	}

	a.logger.Info().Str("agent", session.NationalID).Bool("admin", session.IsAdmin()).Msg("Agent signed in")
	return session, nil
}

// Logout forgets the current session.
func (a *AgentService) Logout() error {
	if err := a.session.Clear(); err != nil {
		return err
	}
	a.logger.Info().Msg("Agent signed out")
	return nil
}

// Dashboard returns the month-to-date counters of the signed-in agent.
func (a *AgentService) Dashboard(ctx context.Context) (models.Dashboard, error) {
	agent, err := a.session.Current()
	if err != nil {
		return models.Dashboard{}, &ActionableError{Message: "Sign in to continue.", Err: err}
	}

	var dashboard models.Dashboard
	if err := a.backend.Call(ctx, "dashboard", map[string]any{"nationalID": agent.NationalID}, &dashboard); err != nil {
		a.logger.Error().Err(err).Msg("Dashboard load failed")
		return models.Dashboard{}, err
	}
	return dashboard, nil
}
