// Package purchase содержит покупку тарифных планов.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/entitlement-engine/internal/events"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/tier"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	"github.com/magabrotheeeer/entitlement-engine/internal/paymentprocessor"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage"
)

// DefaultPendingStaleAfter возраст, после которого неоплаченная подписка попадает в отчёт.
const DefaultPendingStaleAfter = 24 * time.Hour

// Store описывает контракт хранилища для покупки.
type Store interface {
	// GetPlan возвращает план по id (в том числе неактивный) или storage.ErrNotFound.
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	// ListStalePending возвращает подписки pending_payment, созданные раньше before.
	ListStalePending(ctx context.Context, before time.Time) ([]*models.Subscription, error)
	// RunInTx выполняет fn в одной транзакции.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx операции записи покупки.
type Tx interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) error
	CreatePayment(ctx context.Context, p models.Payment) error
	ActivateSubscription(ctx context.Context, id string) error
}

// Service проводит покупку плана: подписка, платёж и активация в одной транзакции.
type Service struct {
	store      Store
	processor  paymentprocessor.Processor
	policy     tier.Policy
	events     events.Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger
	staleAfter time.Duration
	now        func() time.Time
}

// Options необязательные параметры Service.
type Options struct {
	Policy            tier.Policy
	Events            events.Publisher
	Metrics           *metrics.Metrics
	PendingStaleAfter time.Duration
}

// New создает новый экземпляр Service.
func New(store Store, processor paymentprocessor.Processor, opts Options, log *slog.Logger) *Service {
	if opts.Policy == nil {
		opts.Policy = tier.Default()
	}
	if opts.Events == nil {
		opts.Events = events.Noop{}
	}
	if opts.PendingStaleAfter <= 0 {
		opts.PendingStaleAfter = DefaultPendingStaleAfter
	}
	return &Service{
		store:      store,
		processor:  processor,
		policy:     opts.Policy,
		events:     opts.Events,
		metrics:    opts.Metrics,
		log:        log,
		staleAfter: opts.PendingStaleAfter,
		now:        time.Now,
	}
}

// Purchase покупает план для пользователя.
//
// Подписка создаётся в статусе pending_payment и становится active только после
// успешного платежа. Неуспешный платёж фиксируется вместе с неоплаченной подпиской,
// а вызывающему возвращается KindPurchaseFailed. Любая ошибка хранилища или
// процессора откатывает все изменения.
func (s *Service) Purchase(ctx context.Context, id models.Identity, req models.PurchaseRequest) (*models.Receipt, error) {
	const op = "purchase.Purchase"

	plan, err := s.store.GetPlan(ctx, req.PlanID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !plan.IsActive) {
		s.metrics.ObservePurchase(string(apperr.KindPlanNotFound))
		return nil, apperr.New(apperr.KindPlanNotFound, "plan not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !id.Role.Privileged() && s.policy.PrivilegedOnly(plan.Name) {
		s.metrics.ObservePurchase(string(apperr.KindForbidden))
		return nil, apperr.New(apperr.KindForbidden, fmt.Sprintf("plan %s is not available for purchase", plan.Name))
	}

	switch req.Method {
	case models.MethodCard, models.MethodBankTransfer:
	default:
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("unsupported payment method %q", req.Method))
	}

	now := s.now().UTC()
	sub := models.Subscription{
		ID:        uuid.NewString(),
		UserUID:   id.UserUID,
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
		Status:    models.StatusPendingPayment,
		AutoRenew: req.AutoRenew,
		CreatedAt: now,
	}
	payment := models.Payment{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		Amount:         plan.Price,
		Method:         req.Method,
		Details:        paymentprocessor.Redact(req.Method, req.Details),
		CreatedAt:      now,
	}

	err = s.store.RunInTx(ctx, func(tx Tx) error {
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return err
		}

		status, err := s.processor.Process(ctx, paymentprocessor.Request{
			Method:  req.Method,
			Amount:  plan.Price,
			Details: req.Details,
		})
		if err != nil {
			return err
		}

		payment.Status = status
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if status != models.PaymentCompleted {
			return nil
		}
		if err := tx.ActivateSubscription(ctx, sub.ID); err != nil {
			return err
		}
		sub.Status = models.StatusActive
		return nil
	})
	if err != nil {
		s.metrics.ObservePurchase(metrics.ResultFailure)
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		s.log.Error("purchase transaction failed", sl.Op(op), sl.UserUID(id.UserUID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if sub.Status != models.StatusActive {
		s.metrics.ObservePurchase(string(apperr.KindPurchaseFailed))
		s.log.Info("payment failed",
			sl.Op(op),
			sl.UserUID(id.UserUID),
			slog.String("subscription_id", sub.ID),
			slog.String("payment_status", string(payment.Status)),
		)
		return nil, apperr.New(apperr.KindPurchaseFailed, "payment failed")
	}

	s.metrics.ObservePurchase(metrics.ResultSuccess)
	s.log.Info("plan purchased",
		sl.Op(op),
		sl.UserUID(id.UserUID),
		slog.String("plan", plan.Name),
		slog.String("subscription_id", sub.ID),
	)
	events.Emit(ctx, s.log, s.events, events.SubscriptionActivated, events.SubscriptionActivatedEvent{
		UserUID:        sub.UserUID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		PlanName:       sub.PlanName,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		OccurredAt:     now,
	})

	return &models.Receipt{
		SubscriptionID: sub.ID,
		PlanID:         plan.ID,
		PlanName:       plan.Name,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		Status:         sub.Status,
		AutoRenew:      sub.AutoRenew,
		Payment: models.PaymentSummary{
			ID:     payment.ID,
			Amount: payment.Amount,
			Method: payment.Method,
			Status: payment.Status,
		},
	}, nil
}

// PendingReport возвращает подписки, которые дольше настроенного срока ждут оплаты.
// Отчёт только читает данные: такие подписки не удаляются и не меняют статус.
func (s *Service) PendingReport(ctx context.Context) ([]*models.Subscription, error) {
	const op = "purchase.PendingReport"
	subs, err := s.store.ListStalePending(ctx, s.now().UTC().Add(-s.staleAfter))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}
