// Package check реализует HTTP-обработчик проверки доступа к ресурсу заданного тарифа.
//
// Это точка входа для внешних сервисов: они передают требуемый тариф, а в ответ
// получают решение и текущее право доступа пользователя.
package check

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/tier"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Service принимает решение о доступе.
type Service interface {
	AuthorizeAccess(ctx context.Context, id models.Identity, resourceTier string) (models.Decision, error)
}

// Handler обрабатывает GET /access/{tier}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Проверка доступа
// @Description Решает, доступен ли пользователю ресурс тарифа tier. При отказе возвращает 403 с причиной и решением.
// @Tags Access
// @Produce  json
// @Param tier path string true "Тариф ресурса" Enums(FREE, PREMIUM, LIFETIME)
// @Success 200 {object} response.Response{data=models.Decision} "Доступ разрешён"
// @Failure 401 {object} response.ErrorResponse "Требуется вход"
// @Failure 403 {object} response.Response{data=models.Decision} "Доступ запрещён"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /access/{tier} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.check"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return
	}

	resourceTier := tier.Normalize(chi.URLParam(r, "tier"))
	d, err := h.service.AuthorizeAccess(r.Context(), id, resourceTier)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	if !d.Allowed {
		denial := middlewarectx.Deny(d, resourceTier)
		kind := apperr.KindOf(denial)
		resp := response.Error(kind, apperr.PublicMessage(denial))
		resp.Data = d
		render.Status(r, apperr.HTTPStatus(kind))
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OK("access granted", d))
}
