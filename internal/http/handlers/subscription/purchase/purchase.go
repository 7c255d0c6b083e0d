// Package purchase реализует HTTP-обработчик покупки тарифного плана.
package purchase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Request запрос на покупку плана. PaymentDetails проверяется процессором
// оплаты по схеме выбранного способа.
type Request struct {
	PlanID         string          `json:"plan_id" validate:"required,uuid"`
	PaymentMethod  string          `json:"payment_method" validate:"required,oneof=CARD BANK_TRANSFER"`
	PaymentDetails json.RawMessage `json:"payment_details" validate:"required"`
	AutoRenew      bool            `json:"auto_renew"`
}

// Service описывает интерфейс бизнес-логики покупки.
type Service interface {
	Purchase(ctx context.Context, id models.Identity, req models.PurchaseRequest) (*models.Receipt, error)
}

// Handler обрабатывает POST /subscription/purchase.
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
// @Summary Покупка плана
// @Description Создаёт подписку, проводит оплату и активирует подписку в одной транзакции.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Param request body Request true "План и реквизиты оплаты"
// @Success 201 {object} response.Response{data=models.Receipt} "Подписка оплачена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Требуется вход"
// @Failure 402 {object} response.ErrorResponse "Платёж не прошёл"
// @Failure 403 {object} response.ErrorResponse "План недоступен для роли"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/purchase [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.purchase"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
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

	receipt, err := h.service.Purchase(r.Context(), id, models.PurchaseRequest{
		PlanID:    req.PlanID,
		Method:    models.PaymentMethod(req.PaymentMethod),
		Details:   req.PaymentDetails,
		AutoRenew: req.AutoRenew,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("subscription purchased", sl.UserUID(id.UserUID), slog.String("subscription_id", receipt.SubscriptionID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK("subscription purchased", receipt))
}
