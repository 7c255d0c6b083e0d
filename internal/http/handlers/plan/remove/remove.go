// Package remove реализует HTTP-обработчик удаления тарифного плана.
// Удаление мягкое: план деактивируется, существующие подписки на него сохраняются.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
)

// Service описывает интерфейс удаления плана.
type Service interface {
	Delete(ctx context.Context, planID string) error
}

// Handler обрабатывает DELETE /subscription/plans/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удаление плана
// @Description Деактивирует план. Базовый план удалить нельзя.
// @Tags Plans
// @Produce  json
// @Param id path string true "ID плана"
// @Success 200 {object} response.Response "План деактивирован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 409 {object} response.ErrorResponse "План нельзя удалить"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/plans/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	planID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(planID); err != nil {
		response.Fail(w, r, log, apperr.New(apperr.KindValidation, "plan id must be a uuid"))
		return
	}

	if err := h.service.Delete(r.Context(), planID); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("plan deactivated", slog.String("plan_id", planID))
	render.JSON(w, r, response.OK("plan deleted", map[string]string{"id": planID}))
}
