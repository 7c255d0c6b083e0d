package models

import "time"

// Plan — тарифный план. Планы не удаляются физически, а деактивируются через IsActive.
type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Price        int64     `json:"price"` // в минимальных единицах валюты
	DurationDays int       `json:"duration_days"`
	Features     []string  `json:"features"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// PlanInput — данные для создания плана.
type PlanInput struct {
	Name         string
	Price        int64
	DurationDays int
	Features     []string
}

// PlanPatch — частичное обновление плана; nil означает «не менять».
type PlanPatch struct {
	Name         *string
	Price        *int64
	DurationDays *int
	Features     []string
}
