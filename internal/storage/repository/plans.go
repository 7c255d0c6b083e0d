package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage"
)

const planColumns = `id, name, price, duration_days, features, is_active, created_at`

// CreatePlan сохраняет тарифный план. Активный план с таким же именем даёт storage.ErrAlreadyExists.
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan) error {
	const op = "storage.CreatePlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	features, err := json.Marshal(nonNil(plan.Features))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO subscription_plans (id, name, price, duration_days, features, is_active, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.q.ExecContext(ctx, query,
		plan.ID, plan.Name, plan.Price, plan.DurationDays, features, plan.IsActive, plan.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, storage.MapError(err))
	}
	return nil
}

// GetPlan возвращает план по ID независимо от его активности.
func (s *Storage) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	plan, err := scanPlan(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.MapError(err))
	}
	return plan, nil
}

// GetActivePlanByName возвращает активный план с указанным именем.
func (s *Storage) GetActivePlanByName(ctx context.Context, name string) (*models.Plan, error) {
	const op = "storage.GetActivePlanByName"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE name = $1 AND is_active`
	plan, err := scanPlan(s.q.QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.MapError(err))
	}
	return plan, nil
}

// ListPlans возвращает планы, упорядоченные по цене и имени.
func (s *Storage) ListPlans(ctx context.Context, includeInactive bool) ([]*models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM subscription_plans
			  WHERE is_active OR $1
			  ORDER BY price, name`
	rows, err := s.q.QueryContext(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []*models.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// UpdatePlan перезаписывает изменяемые поля активного плана.
func (s *Storage) UpdatePlan(ctx context.Context, plan models.Plan) error {
	const op = "storage.UpdatePlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	features, err := json.Marshal(nonNil(plan.Features))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE subscription_plans
			  SET name = $2, price = $3, duration_days = $4, features = $5
			  WHERE id = $1 AND is_active`
	res, err := s.q.ExecContext(ctx, query, plan.ID, plan.Name, plan.Price, plan.DurationDays, features)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.MapError(err))
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

// DeactivatePlan выполняет мягкое удаление плана.
func (s *Storage) DeactivatePlan(ctx context.Context, id string) error {
	const op = "storage.DeactivatePlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.q.ExecContext(ctx, `UPDATE subscription_plans SET is_active = FALSE WHERE id = $1 AND is_active`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var (
		p        models.Plan
		features []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &features, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, err
		}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	return &p, nil
}

func nonNil(features []string) []string {
	if features == nil {
		return []string{}
	}
	return features
}
