package models

import "time"

// EntitlementStatus — результат вычисления текущего права доступа.
type EntitlementStatus string

const (
	EntitlementActive  EntitlementStatus = "active"
	EntitlementAbsent  EntitlementStatus = "absent"
	EntitlementExpired EntitlementStatus = "expired"
)

// Entitlement — текущий тариф пользователя и окно его действия.
// Для привилегированных ролей Unlimited = true, а даты не заданы.
type Entitlement struct {
	Tier           string            `json:"tier"`
	Status         EntitlementStatus `json:"status"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	StartsAt       *time.Time        `json:"starts_at,omitempty"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	Unlimited      bool              `json:"unlimited"`
}

// Active сообщает, что право доступа действует.
func (e Entitlement) Active() bool {
	return e.Status == EntitlementActive
}

// DenyReason — причина отказа в доступе.
type DenyReason string

const (
	ReasonNone               DenyReason = ""
	ReasonEntitlementExpired DenyReason = "ENTITLEMENT_EXPIRED"
	ReasonInsufficientTier   DenyReason = "INSUFFICIENT_TIER"
)

// Decision — решение о доступе к ресурсу определённого тарифа.
type Decision struct {
	Allowed     bool        `json:"allowed"`
	Reason      DenyReason  `json:"reason,omitempty"`
	Entitlement Entitlement `json:"entitlement"`
}

// Registration — результат регистрации: пользователь и выданная базовая подписка.
type Registration struct {
	User         User
	Subscription Subscription
}

// Session — выданный токен сессии и сводка для клиента.
type Session struct {
	Token       string
	ExpiresAt   time.Time
	User        User
	Entitlement Entitlement
}
