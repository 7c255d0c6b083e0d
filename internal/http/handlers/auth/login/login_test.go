package login

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/session"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, username, password string) (*models.Session, error) {
	args := m.Called(ctx, username, password)
	resp, _ := args.Get(0).(*models.Session)
	return resp, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func post(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if s, ok := body.(string); ok {
		raw = []byte(s)
	} else {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	cookie := session.Cookie{Name: session.DefaultCookieName, TTL: time.Hour}
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)

	t.Run("user login sets cookie and returns summary", func(t *testing.T) {
		svc := new(AuthServiceMock)
		svc.On("Login", mock.Anything, "alice", "password123").Return(&models.Session{
			Token: "tok-alice",
			User:  models.User{UUID: "u-alice", Username: "alice", Role: models.RoleUser},
			Entitlement: models.Entitlement{
				Tier: "FREE", Status: models.EntitlementActive, StartsAt: &start, ExpiresAt: &end,
			},
		}, nil).Once()

		rr := post(t, New(newNoopLogger(), svc, cookie), Request{Username: "alice", Password: "password123"})
		require.Equal(t, http.StatusOK, rr.Code)

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "accessToken", cookies[0].Name)
		assert.Equal(t, "tok-alice", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, 3600, cookies[0].MaxAge)

		var resp struct {
			Success bool           `json:"success"`
			Data    map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "u-alice", resp.Data["user_id"])
		assert.Equal(t, "USER", resp.Data["role"])
		assert.Equal(t, "FREE", resp.Data["subscription"])
		assert.Equal(t, "2025-05-01 12:00", resp.Data["startSubDate"])
		assert.Equal(t, "2025-05-31 12:00", resp.Data["endSubDate"])
		assert.NotContains(t, rr.Body.String(), "tok-alice")
	})

	t.Run("privileged login is unlimited", func(t *testing.T) {
		svc := new(AuthServiceMock)
		svc.On("Login", mock.Anything, "root", "rootpassword").Return(&models.Session{
			Token:       "tok-root",
			User:        models.User{UUID: "u-root", Username: "root", Role: models.RoleAdmin},
			Entitlement: models.Entitlement{Tier: "LIFETIME", Status: models.EntitlementActive, Unlimited: true},
		}, nil).Once()

		rr := post(t, New(newNoopLogger(), svc, cookie), Request{Username: "root", Password: "rootpassword"})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"subscription":"LIFETIME"`)
		assert.Contains(t, rr.Body.String(), `"startSubDate":null`)
		assert.Contains(t, rr.Body.String(), `"endSubDate":"UNLIMITED"`)
	})

	tests := []struct {
		name       string
		body       any
		mockErr    error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "invalid json body",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
			wantKind:   "VALIDATION",
		},
		{
			name:       "validation error - missing password",
			body:       Request{Username: "alice"},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "VALIDATION",
		},
		{
			name:       "invalid credentials",
			body:       Request{Username: "alice", Password: "wrong"},
			mockErr:    apperr.New(apperr.KindInvalidCredentials, "invalid username or password"),
			wantStatus: http.StatusUnauthorized,
			wantKind:   "INVALID_CREDENTIALS",
		},
		{
			name:       "expired subscription",
			body:       Request{Username: "alice", Password: "password123"},
			mockErr:    apperr.New(apperr.KindEntitlementExpired, "subscription expired"),
			wantStatus: http.StatusForbidden,
			wantKind:   "ENTITLEMENT_EXPIRED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(AuthServiceMock)
			if tt.mockErr != nil {
				r := tt.body.(Request)
				svc.On("Login", mock.Anything, r.Username, r.Password).Return(nil, tt.mockErr).Once()
			}

			rr := post(t, New(newNoopLogger(), svc, cookie), tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Empty(t, rr.Result().Cookies())
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp["kind"])
			assert.Equal(t, false, resp["success"])
			svc.AssertExpectations(t)
		})
	}
}
