package middlewarectx_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/session"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

type AuthenticatorMock struct {
	mock.Mock
}

func (m *AuthenticatorMock) Validate(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(ctx, token)
	id, _ := args.Get(0).(*models.Identity)
	return id, args.Error(1)
}

type EvaluatorMock struct {
	mock.Mock
}

func (m *EvaluatorMock) AuthorizeAccess(ctx context.Context, id models.Identity, resourceTier string) (models.Decision, error) {
	args := m.Called(ctx, id, resourceTier)
	return args.Get(0).(models.Decision), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var (
	alice = &models.Identity{UserUID: "u-alice", Role: models.RoleUser}
	root  = &models.Identity{UserUID: "u-root", Role: models.RoleSuperAdmin}
)

func TestGuard(t *testing.T) {
	cookie := session.Cookie{Name: session.DefaultCookieName}
	admins := []models.Role{models.RoleAdmin, models.RoleSuperAdmin}

	tests := []struct {
		name       string
		policy     middlewarectx.RoutePolicy
		token      string
		setup      func(a *AuthenticatorMock, e *EvaluatorMock)
		wantStatus int
		wantKind   string
		wantCalled bool
	}{
		{
			name:       "missing cookie",
			policy:     middlewarectx.Authenticated,
			setup:      func(_ *AuthenticatorMock, _ *EvaluatorMock) {},
			wantStatus: http.StatusUnauthorized,
			wantKind:   "UNAUTHENTICATED",
		},
		{
			name:   "invalid token",
			policy: middlewarectx.Authenticated,
			token:  "bad",
			setup: func(a *AuthenticatorMock, _ *EvaluatorMock) {
				a.On("Validate", mock.Anything, "bad").
					Return(nil, apperr.New(apperr.KindUnauthenticated, "invalid token")).Once()
			},
			wantStatus: http.StatusUnauthorized,
			wantKind:   "UNAUTHENTICATED",
		},
		{
			name:   "authenticated only",
			policy: middlewarectx.Authenticated,
			token:  "tok-alice",
			setup: func(a *AuthenticatorMock, _ *EvaluatorMock) {
				a.On("Validate", mock.Anything, "tok-alice").Return(alice, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:   "role not allowed",
			policy: middlewarectx.RoutePolicy{Roles: admins},
			token:  "tok-alice",
			setup: func(a *AuthenticatorMock, _ *EvaluatorMock) {
				a.On("Validate", mock.Anything, "tok-alice").Return(alice, nil).Once()
			},
			wantStatus: http.StatusForbidden,
			wantKind:   "FORBIDDEN",
		},
		{
			name:   "role allowed",
			policy: middlewarectx.RoutePolicy{Roles: admins},
			token:  "tok-root",
			setup: func(a *AuthenticatorMock, _ *EvaluatorMock) {
				a.On("Validate", mock.Anything, "tok-root").Return(root, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:   "insufficient tier",
			policy: middlewarectx.RoutePolicy{Tier: "PREMIUM"},
			token:  "tok-alice",
			setup: func(a *AuthenticatorMock, e *EvaluatorMock) {
				a.On("Validate", mock.Anything, "tok-alice").Return(alice, nil).Once()
				e.On("AuthorizeAccess", mock.Anything, *alice, "PREMIUM").
					Return(models.Decision{Reason: models.ReasonInsufficientTier}, nil).Once()
			},
			wantStatus: http.StatusForbidden,
			wantKind:   "INSUFFICIENT_TIER",
		},
		{
			name:   "expired entitlement",
			policy: middlewarectx.RoutePolicy{Tier: "FREE"},
			token:  "tok-alice",
			setup: func(a *AuthenticatorMock, e *EvaluatorMock) {
				a.On("Validate", mock.Anything, "tok-alice").Return(alice, nil).Once()
				e.On("AuthorizeAccess", mock.Anything, *alice, "FREE").
					Return(models.Decision{Reason: models.ReasonEntitlementExpired}, nil).Once()
			},
			wantStatus: http.StatusForbidden,
			wantKind:   "ENTITLEMENT_EXPIRED",
		},
		{
			name:   "tier satisfied",
			policy: middlewarectx.RoutePolicy{Tier: "PREMIUM"},
			token:  "tok-alice",
			setup: func(a *AuthenticatorMock, e *EvaluatorMock) {
				a.On("Validate", mock.Anything, "tok-alice").Return(alice, nil).Once()
				e.On("AuthorizeAccess", mock.Anything, *alice, "PREMIUM").
					Return(models.Decision{Allowed: true, Entitlement: models.Entitlement{Tier: "PREMIUM", Status: models.EntitlementActive}}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:   "evaluator failure",
			policy: middlewarectx.RoutePolicy{Tier: "PREMIUM"},
			token:  "tok-alice",
			setup: func(a *AuthenticatorMock, e *EvaluatorMock) {
				a.On("Validate", mock.Anything, "tok-alice").Return(alice, nil).Once()
				e.On("AuthorizeAccess", mock.Anything, *alice, "PREMIUM").
					Return(models.Decision{}, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantKind:   "INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthenticatorMock)
			evalMock := new(EvaluatorMock)
			tt.setup(authMock, evalMock)

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := middlewarectx.IdentityFrom(r.Context())
				assert.True(t, ok)
				assert.NotEmpty(t, id.UserUID)
				if tt.policy.Tier != "" {
					_, ok := middlewarectx.EntitlementFrom(r.Context())
					assert.True(t, ok)
				}
				w.WriteHeader(http.StatusOK)
			})

			h := middlewarectx.Guard(newNoopLogger(), authMock, evalMock, cookie, tt.policy)(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: tt.token})
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantKind != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, tt.wantKind, body["kind"])
				assert.Equal(t, false, body["success"])
			}
			authMock.AssertExpectations(t)
			evalMock.AssertExpectations(t)
		})
	}
}

func TestIdentityFrom_Empty(t *testing.T) {
	_, ok := middlewarectx.IdentityFrom(context.Background())
	assert.False(t, ok)

	_, ok = middlewarectx.EntitlementFrom(context.Background())
	assert.False(t, ok)
}
