// Package update реализует HTTP-обработчик частичного обновления тарифного плана.
//
// Отсутствующие в запросе поля не меняются. Активность плана через этот
// обработчик не меняется.
package update

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Request изменяемые поля плана.
type Request struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=64"`
	Price        *int64   `json:"price" validate:"omitempty,min=0"`
	DurationDays *int     `json:"duration_days" validate:"omitempty,min=1"`
	Features     []string `json:"features" validate:"omitempty,max=50,dive,max=256"`
}

// Service описывает интерфейс обновления плана.
type Service interface {
	Update(ctx context.Context, planID string, patch models.PlanPatch) (*models.Plan, error)
}

// Handler обрабатывает PATCH /subscription/plans/{id}.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновление плана
// @Tags Plans
// @Accept  json
// @Produce  json
// @Param id path string true "ID плана"
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} response.Response{data=models.Plan} "План обновлён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 409 {object} response.ErrorResponse "Имя занято другим активным планом"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/plans/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	planID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(planID); err != nil {
		response.Fail(w, r, log, apperr.New(apperr.KindValidation, "plan id must be a uuid"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	p, err := h.service.Update(r.Context(), planID, models.PlanPatch{
		Name:         req.Name,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Features:     req.Features,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("plan updated", slog.String("plan_id", p.ID))
	render.JSON(w, r, response.OK("plan updated", p))
}
