package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage"
)

// CreatePayment сохраняет платёж. Статус записывается один раз: метода
// обновления платежа нет. Повторный платёж по той же подписке даёт storage.ErrAlreadyExists.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) error {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	details := []byte(p.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}
	query := `INSERT INTO payments (id, subscription_id, amount, payment_method, details, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.q.ExecContext(ctx, query,
		p.ID, p.SubscriptionID, p.Amount, string(p.Method), details, string(p.Status), p.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, storage.MapError(err))
	}
	return nil
}
