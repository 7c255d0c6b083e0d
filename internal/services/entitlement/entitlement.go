// Package entitlement вычисляет текущее право доступа пользователя и принимает
// решения о доступе к ресурсам определённого тарифа.
//
// Истёкшие подписки переводятся в expired лениво: при входе и при проверке
// доступа. Фонового процесса нет.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/entitlement-engine/internal/events"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/tier"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// SubscriptionRepository определяет методы чтения и сверки подписок.
type SubscriptionRepository interface {
	// ListUserSubscriptions возвращает все подписки пользователя вместе с именем плана.
	ListUserSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error)
	// ExpireStale переводит истёкшие активные подписки в expired и возвращает их количество.
	ExpireStale(ctx context.Context, userUID string, now time.Time) (int64, error)
}

// Service вычисляет права доступа.
type Service struct {
	repo    SubscriptionRepository
	policy  tier.Policy
	events  events.Publisher
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// New создает новый экземпляр Service.
func New(repo SubscriptionRepository, policy tier.Policy, pub events.Publisher, m *metrics.Metrics, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{
		repo:    repo,
		policy:  policy,
		events:  pub,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// CurrentEntitlement возвращает действующий тариф пользователя.
//
// Если у выбранной активной подписки срок уже истёк, одним запросом переводит в
// expired все истёкшие активные подписки пользователя и выбирает заново.
func (s *Service) CurrentEntitlement(ctx context.Context, userUID string) (models.Entitlement, error) {
	const op = "entitlement.CurrentEntitlement"

	subs, err := s.repo.ListUserSubscriptions(ctx, userUID)
	if err != nil {
		return models.Entitlement{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	latest := latestActive(subs, time.Time{})
	if latest == nil {
		return absent(models.EntitlementAbsent), nil
	}
	if latest.EndDate.After(now) {
		return activeFrom(latest), nil
	}

	n, err := s.repo.ExpireStale(ctx, userUID, now)
	if err != nil {
		return models.Entitlement{}, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.ObserveReconciliation()
	if n > 0 {
		s.log.Info("expired stale subscriptions",
			sl.Op(op),
			sl.UserUID(userUID),
			slog.Int64("count", n),
		)
		events.Emit(ctx, s.log, s.events, events.SubscriptionExpired, events.SubscriptionExpiredEvent{
			UserUID:    userUID,
			Expired:    n,
			OccurredAt: now.UTC(),
		})
	}

	if next := latestActive(subs, now); next != nil {
		return activeFrom(next), nil
	}
	return absent(models.EntitlementExpired), nil
}

// Resolve возвращает право доступа для проверенной личности. Привилегированные
// роли получают безлимитный тариф без обращения к хранилищу.
func (s *Service) Resolve(ctx context.Context, id models.Identity) (models.Entitlement, error) {
	if id.Role.Privileged() {
		return models.Entitlement{
			Tier:      s.policy.Unlimited(),
			Status:    models.EntitlementActive,
			Unlimited: true,
		}, nil
	}
	return s.CurrentEntitlement(ctx, id.UserUID)
}

// AuthorizeAccess решает, может ли пользователь получить ресурс тарифа resourceTier.
// Ошибка возвращается только при сбое хранилища; отказ в доступе — это Decision.
func (s *Service) AuthorizeAccess(ctx context.Context, id models.Identity, resourceTier string) (models.Decision, error) {
	const op = "entitlement.AuthorizeAccess"

	ent, err := s.Resolve(ctx, id)
	if err != nil {
		return models.Decision{}, fmt.Errorf("%s: %w", op, err)
	}

	var d models.Decision
	switch {
	case ent.Unlimited:
		d = models.Decision{Allowed: true, Entitlement: ent}
	case !ent.Active():
		d = models.Decision{Reason: models.ReasonEntitlementExpired, Entitlement: ent}
	case !s.policy.Satisfies(ent.Tier, resourceTier):
		d = models.Decision{Reason: models.ReasonInsufficientTier, Entitlement: ent}
	default:
		d = models.Decision{Allowed: true, Entitlement: ent}
	}

	result := metrics.ResultAllowed
	if !d.Allowed {
		result = string(d.Reason)
	}
	s.metrics.ObserveDecision(result)
	s.log.Debug("access decision",
		sl.Op(op),
		sl.UserUID(id.UserUID),
		slog.String("role", string(id.Role)),
		slog.String("resource_tier", resourceTier),
		slog.String("user_tier", ent.Tier),
		slog.String("result", result),
	)
	return d, nil
}

// latestActive выбирает активную подписку с самой поздней датой окончания,
// которая строго позже after.
func latestActive(subs []*models.Subscription, after time.Time) *models.Subscription {
	var best *models.Subscription
	for _, sub := range subs {
		if sub.Status != models.StatusActive || !sub.EndDate.After(after) {
			continue
		}
		if best == nil || sub.EndDate.After(best.EndDate) {
			best = sub
		}
	}
	return best
}

func activeFrom(sub *models.Subscription) models.Entitlement {
	start, end := sub.StartDate, sub.EndDate
	return models.Entitlement{
		Tier:           tier.Normalize(sub.PlanName),
		Status:         models.EntitlementActive,
		SubscriptionID: sub.ID,
		StartsAt:       &start,
		ExpiresAt:      &end,
	}
}

func absent(status models.EntitlementStatus) models.Entitlement {
	return models.Entitlement{Tier: tier.None, Status: status}
}
