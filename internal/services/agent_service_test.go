package services_test

import (
	"context"
	"errors"
	"testing"

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

// TestAgentService_Login_Success tests that the backend session is persisted.
func TestAgentService_Login_Success(t *testing.T) {
	caller := new(mocks.MockCaller)
	session := new(mocks.MockSessionStore)
	caller.On("Call", mock.Anything, "login", map[string]any{"nationalID": "12345678", "password": "secret"}, mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(3).(*identity.Session)
			*out = identity.Session{Name: "Achieng Otieno", Role: "Admin"}
		}).Return(nil)
	session.On("Save", identity.Session{NationalID: "12345678", Name: "Achieng Otieno", Role: "Admin"}).Return(nil)

	svc := services.NewAgentService(caller, session, zerolog.Nop())
	got, err := svc.Login(context.Background(), "12345678", "secret")

	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
	session.AssertExpectations(t)
}

// TestAgentService_Login_Invalid tests credential failures.
func TestAgentService_Login_Invalid(t *testing.T) {
	caller := new(mocks.MockCaller)
	session := new(mocks.MockSessionStore)
	caller.On("Call", mock.Anything, "login", mock.Anything, mock.Anything).Return(backend.ErrRejected)

	svc := services.NewAgentService(caller, session, zerolog.Nop())

	_, err := svc.Login(context.Background(), "", "secret")
	assert.ErrorIs(t, err, services.ErrInvalidForm)

	_, err = svc.Login(context.Background(), "12345678", "wrong")
	var actionable *services.ActionableError
	require.ErrorAs(t, err, &actionable)
	assert.Equal(t, "Invalid credentials", actionable.Message)
	session.AssertNotCalled(t, "Save", mock.Anything)
}

// TestAgentService_Logout tests that the session is cleared.
func TestAgentService_Logout(t *testing.T) {
	session := new(mocks.MockSessionStore)
	session.On("Clear").Return(nil).Once()
	session.On("Clear").Return(errors.New("read-only filesystem")).Once()

	svc := services.NewAgentService(new(mocks.MockCaller), session, zerolog.Nop())

	assert.NoError(t, svc.Logout())
	assert.EqualError(t, svc.Logout(), "read-only filesystem")
}

// TestAgentService_Dashboard tests loading the agent's counters.
func TestAgentService_Dashboard(t *testing.T) {
	caller := new(mocks.MockCaller)
	session := new(mocks.MockSessionStore)
	session.On("Current").Return(agent, nil)
	caller.On("Call", mock.Anything, "dashboard", map[string]any{"nationalID": "12345678"}, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(3).(*models.Dashboard) = models.Dashboard{VisitsMTD: 40, SoldMTD: 31, CartonsMTD: 120, Efficiency: 77.5}
		}).Return(nil)

	svc := services.NewAgentService(caller, session, zerolog.Nop())
	dashboard, err := svc.Dashboard(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 31, dashboard.SoldMTD)
	assert.Equal(t, 77.5, dashboard.Efficiency)
}
