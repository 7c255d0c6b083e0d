package entitlementengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/entitlement-engine/internal/cache"
	"github.com/magabrotheeeer/entitlement-engine/internal/config"
	"github.com/magabrotheeeer/entitlement-engine/internal/events"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/session"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/tier"
	"github.com/magabrotheeeer/entitlement-engine/internal/migrations"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	"github.com/magabrotheeeer/entitlement-engine/internal/paymentprocessor"
	authservice "github.com/magabrotheeeer/entitlement-engine/internal/services/auth"
	entitlementservice "github.com/magabrotheeeer/entitlement-engine/internal/services/entitlement"
	planservice "github.com/magabrotheeeer/entitlement-engine/internal/services/plan"
	purchaseservice "github.com/magabrotheeeer/entitlement-engine/internal/services/purchase"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage/repository"
)

// App — HTTP-сервер движка вместе с его подключениями.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	cache     *cache.Cache
	publisher *rabbitmq.Publisher
}

// New подключается к хранилищу, применяет миграции, собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app := &App{logger: logger, db: db}

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var pub events.Publisher = events.Noop{}
	if cfg.RabbitMQ.Enabled {
		app.publisher, err = rabbitmq.NewPublisher(ctx, cfg.RabbitMQ.URL, cfg.Exchange)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pub = app.publisher
	}

	if cfg.RedisConnection.Enabled {
		app.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Warn("redis is unavailable, plans are read from storage", sl.Err(err))
		}
	}

	processor, err := paymentprocessor.NewLocal()
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New()
	policy := tier.Default()
	entitlements := entitlementservice.New(db, policy, pub, m, logger)
	authService := authservice.New(
		authStore{db},
		entitlements,
		jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		authservice.Options{BcryptCost: cfg.BcryptCost, Policy: policy, Events: pub, Metrics: m},
		logger,
	)
	purchases := purchaseservice.New(purchaseStore{db}, processor, purchaseservice.Options{
		Policy:            policy,
		Events:            pub,
		Metrics:           m,
		PendingStaleAfter: cfg.PendingStaleAfter,
	}, logger)
	plans := planservice.New(db, planCache(app.cache), cfg.PlanTTL, policy, logger)

	if err = bootstrapAdmin(ctx, authService, cfg.Bootstrap, logger); err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:         authService,
		Entitlements: entitlements,
		Purchases:    purchases,
		Plans:        plans,
		Ready: func(ctx context.Context) error {
			return repository.CheckDatabaseReady(ctx, db)
		},
	}, RouteOptions{
		Cookie:         session.Cookie{Name: cfg.CookieName, Secure: cfg.IsProd(), TTL: authService.TokenTTL()},
		Metrics:        m,
		AllowedOrigins: cfg.AllowedOrigins,
		LoginRate:      cfg.LoginRateLimit,
		LoginBurst:     cfg.LoginBurst,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq publisher", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close storage", sl.Err(err))
	}
}

// bootstrapAdmin создаёт привилегированную учётную запись из конфига, если её ещё нет.
func bootstrapAdmin(ctx context.Context, auth *authservice.Service, cfg config.Bootstrap, logger *slog.Logger) error {
	if cfg.AdminUsername == "" {
		return nil
	}
	user, created, err := auth.BootstrapAdmin(ctx, authservice.RegisterInput{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     models.Role(strings.ToUpper(strings.TrimSpace(cfg.AdminRole))),
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("bootstrap admin created",
			slog.String("username", user.Username),
			slog.String("role", string(user.Role)),
		)
	}
	return nil
}
