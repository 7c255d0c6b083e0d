// Package pending реализует отчёт о подписках, которые давно ждут оплаты.
package pending

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Item строка отчёта.
type Item struct {
	SubscriptionID string `json:"subscription_id"`
	UserUID        string `json:"user_uid"`
	PlanID         string `json:"plan_id"`
	PlanName       string `json:"plan_name"`
	CreatedAt      string `json:"created_at"`
}

// Service строит отчёт.
type Service interface {
	PendingReport(ctx context.Context) ([]*models.Subscription, error)
}

// Handler обрабатывает GET /subscription/pending.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Неоплаченные подписки
// @Description Подписки в статусе pending_payment старше настроенного срока. Только для ADMIN и SUPERADMIN.
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response{data=[]Item} "Отчёт"
// @Failure 401 {object} response.ErrorResponse "Требуется вход"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/pending [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.pending"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subs, err := h.service.PendingReport(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	items := make([]Item, 0, len(subs))
	for _, s := range subs {
		items = append(items, Item{
			SubscriptionID: s.ID,
			UserUID:        s.UserUID,
			PlanID:         s.PlanID,
			PlanName:       s.PlanName,
			CreatedAt:      s.CreatedAt.Format(response.DateTimeFormat),
		})
	}
	log.Info("pending report built", slog.Int("count", len(items)))
	render.JSON(w, r, response.OK("stale pending subscriptions", items))
}
