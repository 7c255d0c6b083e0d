// Package create реализует HTTP-обработчик создания тарифного плана.
//
// Handler декодирует и валидирует JSON, передаёт данные сервису планов и
// возвращает созданный план. Доступ ограничен ролями ADMIN и SUPERADMIN на
// уровне маршрута.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Request данные нового плана.
type Request struct {
	Name         string   `json:"name" validate:"required,max=64"`
	Price        int64    `json:"price" validate:"min=0"`
	DurationDays int      `json:"duration_days" validate:"required,min=1"`
	Features     []string `json:"features" validate:"max=50,dive,max=256"`
}

// Service описывает интерфейс создания плана.
type Service interface {
	Create(ctx context.Context, in models.PlanInput) (*models.Plan, error)
}

// Handler обрабатывает POST /subscription/plans.
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
// @Summary Создание плана
// @Description Создаёт активный тарифный план. Имя приводится к верхнему регистру.
// @Tags Plans
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные плана"
// @Success 201 {object} response.Response{data=models.Plan} "План создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 409 {object} response.ErrorResponse "Активный план с таким именем уже есть"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/plans [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	p, err := h.service.Create(r.Context(), models.PlanInput{
		Name:         req.Name,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Features:     req.Features,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("plan created", slog.String("plan_id", p.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK("plan created", p))
}
