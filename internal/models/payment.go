package models

import (
	"encoding/json"
	"time"
)

// PaymentMethod способ оплаты.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// PaymentStatus итог платежа. Значение "complected" сохранено как внешний контракт.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "complected"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment запись о попытке оплаты. Статус записывается один раз при создании.
type Payment struct {
	ID             string
	SubscriptionID string
	Amount         int64
	Method         PaymentMethod
	Details        json.RawMessage
	Status         PaymentStatus
	CreatedAt      time.Time
}

// PurchaseRequest запрос на покупку плана.
type PurchaseRequest struct {
	PlanID    string
	Method    PaymentMethod
	Details   json.RawMessage
	AutoRenew bool
}

// PaymentSummary краткие данные о платеже для квитанции.
type PaymentSummary struct {
	ID     string        `json:"id"`
	Amount int64         `json:"amount"`
	Method PaymentMethod `json:"payment_method"`
	Status PaymentStatus `json:"status"`
}

// Receipt результат успешной покупки.
type Receipt struct {
	SubscriptionID string             `json:"subscription_id"`
	PlanID         string             `json:"plan_id"`
	PlanName       string             `json:"plan_name"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	Status         SubscriptionStatus `json:"status"`
	AutoRenew      bool               `json:"auto_renew"`
	Payment        PaymentSummary     `json:"payment"`
}
