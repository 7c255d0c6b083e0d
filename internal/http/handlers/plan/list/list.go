// Package list реализует HTTP-обработчик списка активных тарифных планов.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Service описывает интерфейс чтения списка планов.
type Service interface {
	List(ctx context.Context, id models.Identity) ([]*models.Plan, error)
}

// Handler обрабатывает GET /subscription/plans.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список планов
// @Description Возвращает активные планы. Пользователь с ролью USER не видит LIFETIME.
// @Tags Plans
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.Plan} "Планы"
// @Failure 401 {object} response.ErrorResponse "Требуется вход"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return
	}

	plans, err := h.service.List(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if plans == nil {
		plans = []*models.Plan{}
	}

	log.Debug("plans listed", slog.Int("count", len(plans)))
	render.JSON(w, r, response.OK("plans", plans))
}
