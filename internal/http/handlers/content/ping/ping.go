// Package ping — пример ресурса, закрытого тарифом на уровне маршрута.
// Обработчик не проверяет доступ сам: это делает Guard.
package ping

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
)

// Handler обрабатывает GET /content/premium/ping.
type Handler struct {
	log *slog.Logger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Премиум-ресурс
// @Tags Content
// @Produce  json
// @Success 200 {object} response.Response "pong"
// @Failure 401 {object} response.ErrorResponse "Требуется вход"
// @Failure 403 {object} response.ErrorResponse "Тариф недостаточен или подписка истекла"
// @Router /content/premium/ping [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"pong": true}
	if ent, ok := middlewarectx.EntitlementFrom(r.Context()); ok {
		data["tier"] = ent.Tier
	}
	render.JSON(w, r, response.OK("pong", data))
}
