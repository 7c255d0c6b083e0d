package create

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, in models.PlanInput) (*models.Plan, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(0).(*models.Plan)
	return p, args.Error(1)
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	in := models.PlanInput{Name: "standard", Price: 499, DurationDays: 30, Features: []string{"hd"}}

	tests := []struct {
		name       string
		body       string
		setup      func(m *MockService)
		wantStatus int
		wantKind   string
	}{
		{
			name: "created",
			body: `{"name":"standard","price":499,"duration_days":30,"features":["hd"]}`,
			setup: func(m *MockService) {
				m.On("Create", mock.Anything, in).
					Return(&models.Plan{ID: "p-std", Name: "STANDARD", Price: 499, DurationDays: 30, IsActive: true}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing duration",
			body:       `{"name":"standard","price":499}`,
			setup:      func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "VALIDATION",
		},
		{
			name:       "negative price",
			body:       `{"name":"standard","price":-1,"duration_days":30}`,
			setup:      func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "VALIDATION",
		},
		{
			name: "duplicate",
			body: `{"name":"standard","price":499,"duration_days":30,"features":["hd"]}`,
			setup: func(m *MockService) {
				m.On("Create", mock.Anything, in).
					Return(nil, apperr.New(apperr.KindConflict, "active plan STANDARD already exists")).Once()
			},
			wantStatus: http.StatusConflict,
			wantKind:   "CONFLICT",
		},
		{
			name:       "broken json",
			body:       `{"name":`,
			setup:      func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantKind:   "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/plans", bytes.NewBufferString(tt.body))
			New(log, svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, resp["kind"])
			} else {
				assert.Equal(t, "STANDARD", resp["data"].(map[string]any)["name"])
			}
			svc.AssertExpectations(t)
		})
	}
}
