// Package middlewarectx содержит HTTP middleware движка доступа.
//
// Guard проверяет запрос по цепочке: cookie с токеном, проверка токена, роль,
// тариф. Первый неуспешный шаг завершает запрос. Маршруты описывают требования
// через RoutePolicy, а обработчики получают готовую личность из контекста и сами
// проверок не делают.
package middlewarectx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/response"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/session"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Authenticator проверяет токен сессии.
type Authenticator interface {
	Validate(ctx context.Context, token string) (*models.Identity, error)
}

// Evaluator принимает решение о доступе к ресурсу тарифа.
type Evaluator interface {
	AuthorizeAccess(ctx context.Context, id models.Identity, resourceTier string) (models.Decision, error)
}

// RoutePolicy — требования маршрута. Пустые поля не проверяются.
type RoutePolicy struct {
	Roles []models.Role
	Tier  string
}

// Authenticated — политика маршрута, которому нужна только действующая сессия.
var Authenticated = RoutePolicy{}

// Guard возвращает middleware, которое применяет policy к запросу.
func Guard(log *slog.Logger, auth Authenticator, eval Evaluator, cookie session.Cookie, policy RoutePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Guard"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := cookie.TokenFromRequest(r)
			if token == "" {
				response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
				return
			}

			id, err := auth.Validate(r.Context(), token)
			if err != nil {
				response.Fail(w, r, log, err)
				return
			}
			ctx := WithIdentity(r.Context(), *id)

			if len(policy.Roles) > 0 && !slices.Contains(policy.Roles, id.Role) {
				response.Fail(w, r, log, apperr.New(apperr.KindForbidden, "insufficient role"))
				return
			}

			if policy.Tier != "" {
				d, err := eval.AuthorizeAccess(ctx, *id, policy.Tier)
				if err != nil {
					response.Fail(w, r, log, err)
					return
				}
				if !d.Allowed {
					response.Fail(w, r, log, Deny(d, policy.Tier))
					return
				}
				ctx = WithEntitlement(ctx, d.Entitlement)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Deny переводит отказ в доступе в доменную ошибку.
func Deny(d models.Decision, resourceTier string) error {
	if d.Reason == models.ReasonEntitlementExpired {
		return apperr.New(apperr.KindEntitlementExpired, "subscription expired")
	}
	return apperr.New(apperr.KindInsufficientTier, fmt.Sprintf("%s tier required", resourceTier))
}
