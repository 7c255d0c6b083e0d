// Package events описывает доменные события движка доступа и способы их публикации.
//
// События публикуются после фиксации изменений и не влияют на результат операции:
// ошибка публикации только логируется.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
)

// Ключи маршрутизации событий.
const (
	UserRegistered        = "user.registered"
	SubscriptionActivated = "subscription.activated"
	SubscriptionExpired   = "subscription.expired"
)

// UserRegisteredEvent публикуется после регистрации пользователя.
type UserRegisteredEvent struct {
	UserUID    string    `json:"user_uid"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SubscriptionActivatedEvent публикуется после успешной оплаты или выдачи базового тарифа.
type SubscriptionActivatedEvent struct {
	UserUID        string    `json:"user_uid"`
	SubscriptionID string    `json:"subscription_id"`
	PlanID         string    `json:"plan_id"`
	PlanName       string    `json:"plan_name"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// SubscriptionExpiredEvent публикуется, когда ленивая сверка перевела подписки пользователя в expired.
type SubscriptionExpiredEvent struct {
	UserUID    string    `json:"user_uid"`
	Expired    int64     `json:"expired"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher публикует событие с заданным ключом маршрутизации.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Noop — Publisher, который ничего не отправляет. Используется, когда брокер отключён.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// Emit публикует событие и логирует ошибку, не возвращая её.
func Emit(ctx context.Context, log *slog.Logger, p Publisher, routingKey string, event any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, event); err != nil {
		log.Warn("failed to publish event",
			slog.String("routing_key", routingKey),
			sl.Err(err),
		)
	}
}
