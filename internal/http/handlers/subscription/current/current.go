// Package current реализует HTTP-обработчик, возвращающий текущую подписку пользователя.
package current

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

// Data данные ответа: сводка и полное право доступа.
type Data struct {
	response.SubscriptionView
	Entitlement models.Entitlement `json:"entitlement"`
}

// Service вычисляет право доступа.
type Service interface {
	Resolve(ctx context.Context, id models.Identity) (models.Entitlement, error)
}

// Handler обрабатывает GET /subscription/current.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Текущая подписка
// @Description Возвращает действующий тариф пользователя. Истёкшие подписки при этом переводятся в expired.
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response{data=Data} "Текущая подписка"
// @Failure 401 {object} response.ErrorResponse "Требуется вход"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/current [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.current"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return
	}

	ent, err := h.service.Resolve(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OK("current subscription", Data{
		SubscriptionView: response.NewSubscriptionView(ent),
		Entitlement:      ent,
	}))
}
