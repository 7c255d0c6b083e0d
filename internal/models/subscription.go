package models

import "time"

// SubscriptionStatus состояние подписки пользователя.
type SubscriptionStatus string

const (
	StatusPendingPayment SubscriptionStatus = "pending_payment"
	StatusActive         SubscriptionStatus = "active"
	StatusExpired        SubscriptionStatus = "expired"
)

// Subscription подписка пользователя на тарифный план.
//
// Переходы: pending_payment → active (только после успешной оплаты)
// → expired (лениво, при первой проверке после EndDate). Из expired выхода нет.
type Subscription struct {
	ID        string
	UserUID   string
	PlanID    string
	PlanName  string // заполняется при чтении вместе с планом
	StartDate time.Time
	EndDate   time.Time
	Status    SubscriptionStatus
	AutoRenew bool
	CreatedAt time.Time
}

// ActiveAt сообщает, что подписка активна и не истекла в момент now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.Status == StatusActive && s.EndDate.After(now)
}
