// Package me реализует HTTP-обработчик, возвращающий текущего пользователя и его подписку.
package me

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

// Data данные ответа.
type Data struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	response.SubscriptionView
}

// Accounts возвращает учётную запись пользователя.
type Accounts interface {
	Me(ctx context.Context, id models.Identity) (*models.User, error)
}

// Entitlements вычисляет право доступа.
type Entitlements interface {
	Resolve(ctx context.Context, id models.Identity) (models.Entitlement, error)
}

// Handler обрабатывает GET /auth/me.
type Handler struct {
	log          *slog.Logger
	accounts     Accounts
	entitlements Entitlements
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, accounts Accounts, entitlements Entitlements) *Handler {
	return &Handler{
		log:          log,
		accounts:     accounts,
		entitlements: entitlements,
	}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Description Возвращает учётную запись и текущее право доступа.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response{data=Data} "Пользователь"
// @Failure 401 {object} response.ErrorResponse "Требуется вход"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return
	}

	user, err := h.accounts.Me(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	ent, err := h.entitlements.Resolve(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OK("current user", Data{
		UserID:           user.UUID,
		Username:         user.Username,
		Email:            user.Email,
		Role:             string(user.Role),
		SubscriptionView: response.NewSubscriptionView(ent),
	}))
}
