package me

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Me(ctx context.Context, id models.Identity) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) Resolve(ctx context.Context, id models.Identity) (models.Entitlement, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Entitlement), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMeHandler_ServeHTTP(t *testing.T) {
	alice := models.Identity{UserUID: "u-alice", Role: models.RoleUser}
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("returns user and entitlement", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Me", mock.Anything, alice).
			Return(&models.User{UUID: "u-alice", Username: "alice", Email: "a@example.com", Role: models.RoleUser}, nil).Once()
		svc.On("Resolve", mock.Anything, alice).
			Return(models.Entitlement{Tier: "PREMIUM", Status: models.EntitlementActive, ExpiresAt: &end}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req = req.WithContext(middlewarectx.WithIdentity(req.Context(), alice))
		rr := httptest.NewRecorder()
		New(newNoopLogger(), svc, svc).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Data["username"])
		assert.Equal(t, "PREMIUM", resp.Data["subscription"])
		assert.Equal(t, "2025-06-01 00:00", resp.Data["endSubDate"])
		assert.NotContains(t, rr.Body.String(), "password")
	})

	t.Run("missing identity", func(t *testing.T) {
		rr := httptest.NewRecorder()
		New(newNoopLogger(), new(MockService), new(MockService)).
			ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("resolver failure", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Me", mock.Anything, alice).Return(&models.User{UUID: "u-alice"}, nil).Once()
		svc.On("Resolve", mock.Anything, alice).Return(models.Entitlement{}, errors.New("db down")).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req = req.WithContext(middlewarectx.WithIdentity(req.Context(), alice))
		rr := httptest.NewRecorder()
		New(newNoopLogger(), svc, svc).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
