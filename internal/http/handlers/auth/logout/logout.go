// Package logout реализует HTTP-обработчик выхода. Сессия на сервере не хранится,
// поэтому выход сводится к удалению cookie.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/session"
)

// Service описывает интерфейс бизнес-логики выхода.
type Service interface {
	Logout(ctx context.Context) error
}

// Handler обрабатывает выход пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
	cookie  session.Cookie
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, cookie session.Cookie) *Handler {
	return &Handler{
		log:     log,
		service: service,
		cookie:  cookie,
	}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Удаляет cookie с токеном сессии. Всегда завершается успешно.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response "Выход выполнен"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.service.Logout(r.Context()); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	h.cookie.Clear(w)
	log.Debug("session cookie cleared")
	render.JSON(w, r, response.OK("logged out", nil))
}
