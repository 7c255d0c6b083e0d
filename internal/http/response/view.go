package response

import "github.com/magabrotheeeer/entitlement-engine/internal/models"

// DateTimeFormat формат дат подписки в ответах.
const DateTimeFormat = "2006-01-02 15:04"

// Unlimited дата окончания для привилегированных ролей.
const Unlimited = "UNLIMITED"

// SubscriptionView сводка о праве доступа в формате ответов API.
type SubscriptionView struct {
	Subscription string  `json:"subscription" example:"PREMIUM"`
	Status       string  `json:"status" example:"active"`
	StartSubDate *string `json:"startSubDate" example:"2025-01-01 10:00"`
	EndSubDate   *string `json:"endSubDate" example:"2025-01-31 10:00"`
}

// NewSubscriptionView строит сводку по праву доступа.
func NewSubscriptionView(ent models.Entitlement) SubscriptionView {
	v := SubscriptionView{
		Subscription: ent.Tier,
		Status:       string(ent.Status),
	}
	if ent.Unlimited {
		end := Unlimited
		v.EndSubDate = &end
		return v
	}
	if ent.StartsAt != nil {
		start := ent.StartsAt.Format(DateTimeFormat)
		v.StartSubDate = &start
	}
	if ent.ExpiresAt != nil {
		end := ent.ExpiresAt.Format(DateTimeFormat)
		v.EndSubDate = &end
	}
	return v
}
