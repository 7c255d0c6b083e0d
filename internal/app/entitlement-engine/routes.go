// Package entitlementengine собирает HTTP-приложение движка аутентификации и доступа.
package entitlementengine

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/access/check"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/content/ping"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/health"
	plancreate "github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/plan/create"
	planlist "github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/plan/list"
	planread "github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/plan/read"
	planremove "github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/plan/remove"
	planupdate "github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/plan/update"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/subscription/current"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/subscription/pending"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/handlers/subscription/purchase"
	"github.com/magabrotheeeer/entitlement-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/session"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/tier"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	authservice "github.com/magabrotheeeer/entitlement-engine/internal/services/auth"
	entitlementservice "github.com/magabrotheeeer/entitlement-engine/internal/services/entitlement"
	planservice "github.com/magabrotheeeer/entitlement-engine/internal/services/plan"
	purchaseservice "github.com/magabrotheeeer/entitlement-engine/internal/services/purchase"
)

// Services сервисы, которые обслуживают маршруты.
type Services struct {
	Auth         *authservice.Service
	Entitlements *entitlementservice.Service
	Purchases    *purchaseservice.Service
	Plans        *planservice.Service
	Ready        health.Checker
}

// RouteOptions параметры HTTP-слоя.
type RouteOptions struct {
	Cookie         session.Cookie
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	LoginRate      float64
	LoginBurst     int
}

var admins = middlewarectx.RoutePolicy{Roles: []models.Role{models.RoleAdmin, models.RoleSuperAdmin}}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, opts RouteOptions) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	guard := func(policy middlewarectx.RoutePolicy) func(http.Handler) http.Handler {
		return middlewarectx.Guard(logger, svc.Auth, svc.Entitlements, opts.Cookie, policy)
	}
	limiter := middlewarectx.NewRateLimiter(opts.LoginRate, opts.LoginBurst)

	r.Get("/health", health.New(logger, svc.Ready).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Открытые конечные точки
			r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
			r.With(limiter.Middleware(logger)).Post("/login", login.New(logger, svc.Auth, opts.Cookie).ServeHTTP)
			r.Post("/logout", logout.New(logger, svc.Auth, opts.Cookie).ServeHTTP)

			r.With(guard(middlewarectx.Authenticated)).Get("/me", me.New(logger, svc.Auth, svc.Entitlements).ServeHTTP)
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(guard(middlewarectx.Authenticated))
				r.Post("/purchase", purchase.New(logger, svc.Purchases).ServeHTTP)
				r.Get("/current", current.New(logger, svc.Entitlements).ServeHTTP)
				r.Get("/plans", planlist.New(logger, svc.Plans).ServeHTTP)
				r.Get("/plans/{id}", planread.New(logger, svc.Plans).ServeHTTP)
			})

			// Администрирование планов
			r.Group(func(r chi.Router) {
				r.Use(guard(admins))
				r.Post("/plans", plancreate.New(logger, svc.Plans).ServeHTTP)
				r.Patch("/plans/{id}", planupdate.New(logger, svc.Plans).ServeHTTP)
				r.Delete("/plans/{id}", planremove.New(logger, svc.Plans).ServeHTTP)
				r.Get("/pending", pending.New(logger, svc.Purchases).ServeHTTP)
			})
		})

		r.With(guard(middlewarectx.Authenticated)).Get("/access/{tier}", check.New(logger, svc.Entitlements).ServeHTTP)
		r.With(guard(middlewarectx.RoutePolicy{Tier: tier.Premium})).Get("/content/premium/ping", ping.New(logger).ServeHTTP)
	})

	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
