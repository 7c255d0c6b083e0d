package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage"
)

const subscriptionSelect = `SELECT us.id, us.user_uid, us.plan_id, p.name, us.start_date, us.end_date,
			      us.status, us.auto_renew, us.created_at
			  FROM user_subscriptions us
			  JOIN subscription_plans p ON p.id = us.plan_id `

// CreateSubscription сохраняет подписку пользователя.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_subscriptions (id, user_uid, plan_id, start_date, end_date, status, auto_renew, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := s.q.ExecContext(ctx, query,
		sub.ID, sub.UserUID, sub.PlanID, sub.StartDate, sub.EndDate, string(sub.Status), sub.AutoRenew, sub.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, storage.MapError(err))
	}
	return nil
}

// ListUserSubscriptions возвращает все подписки пользователя вместе с именем плана,
// начиная с самой поздней даты окончания.
func (s *Storage) ListUserSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error) {
	const op = "storage.ListUserSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.q.QueryContext(ctx, subscriptionSelect+`WHERE us.user_uid = $1 ORDER BY us.end_date DESC`, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// ExpireStale переводит в expired все активные подписки пользователя, срок которых
// истёк к моменту now. Запрос идемпотентен: повторный вызов ничего не меняет.
// Возвращает количество изменённых строк.
func (s *Storage) ExpireStale(ctx context.Context, userUID string, now time.Time) (int64, error) {
	const op = "storage.ExpireStale"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_subscriptions
			  SET status = 'expired'
			  WHERE user_uid = $1 AND status = 'active' AND end_date <= $2`
	res, err := s.q.ExecContext(ctx, query, userUID, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ActivateSubscription переводит подписку из pending_payment в active.
// Если подписка не в состоянии pending_payment, возвращается storage.ErrNotFound.
func (s *Storage) ActivateSubscription(ctx context.Context, id string) error {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE user_subscriptions SET status = 'active' WHERE id = $1 AND status = 'pending_payment'`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

// ListStalePending возвращает подписки в pending_payment, созданные раньше before.
func (s *Storage) ListStalePending(ctx context.Context, before time.Time) ([]*models.Subscription, error) {
	const op = "storage.ListStalePending"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.q.QueryContext(ctx,
		subscriptionSelect+`WHERE us.status = 'pending_payment' AND us.created_at < $1 ORDER BY us.created_at`, before)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub    models.Subscription
		status string
	)
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.PlanID, &sub.PlanName, &sub.StartDate, &sub.EndDate,
		&status, &sub.AutoRenew, &sub.CreatedAt); err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatus(status)
	return &sub, nil
}
