// Package plan содержит администрирование тарифных планов и их чтение с кэшем.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/tier"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage"
)

const (
	activePlansKey  = "plans:active"
	planKeyPrefix   = "plan:"
	DefaultCacheTTL = 10 * time.Minute
)

// Repository описывает контракт хранилища планов.
type Repository interface {
	CreatePlan(ctx context.Context, plan models.Plan) error
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	GetActivePlanByName(ctx context.Context, name string) (*models.Plan, error)
	ListPlans(ctx context.Context, includeInactive bool) ([]*models.Plan, error)
	UpdatePlan(ctx context.Context, plan models.Plan) error
	DeactivatePlan(ctx context.Context, id string) error
}

// Cache — кэш планов. Ошибки кэша не прерывают операцию.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service управляет тарифными планами.
type Service struct {
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
	policy   tier.Policy
	sanitize *bluemonday.Policy
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service. cache может быть nil: тогда планы читаются
// напрямую из хранилища.
func New(repo Repository, cache Cache, cacheTTL time.Duration, policy tier.Policy, log *slog.Logger) *Service {
	if policy == nil {
		policy = tier.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		policy:   policy,
		sanitize: bluemonday.StrictPolicy(),
		log:      log,
		now:      time.Now,
	}
}

// Create создаёт активный план. Имя приводится к верхнему регистру, активный план
// с тем же именем даёт KindConflict.
func (s *Service) Create(ctx context.Context, in models.PlanInput) (*models.Plan, error) {
	const op = "plan.Create"

	name, features, err := s.clean(in.Name, in.Features)
	if err != nil {
		return nil, err
	}
	if err := validateTerms(in.Price, in.DurationDays); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetActivePlanByName(ctx, name); err == nil {
		return nil, conflict(name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := models.Plan{
		ID:           uuid.NewString(),
		Name:         name,
		Price:        in.Price,
		DurationDays: in.DurationDays,
		Features:     features,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreatePlan(ctx, p); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, conflict(name)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, activePlansKey)
	s.log.Info("plan created", sl.Op(op), slog.String("plan_id", p.ID), slog.String("name", p.Name))
	return &p, nil
}

// List возвращает активные планы. Планы, доступные только привилегированным
// ролям, скрыты от обычных пользователей.
func (s *Service) List(ctx context.Context, id models.Identity) ([]*models.Plan, error) {
	const op = "plan.List"

	var plans []*models.Plan
	if !s.cached(ctx, activePlansKey, &plans) {
		var err error
		plans, err = s.repo.ListPlans(ctx, false)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.store(ctx, activePlansKey, plans)
	}

	if id.Role.Privileged() {
		return plans, nil
	}
	visible := make([]*models.Plan, 0, len(plans))
	for _, p := range plans {
		if !s.policy.PrivilegedOnly(p.Name) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// Get возвращает план по id. Для обычного пользователя неактивные и
// привилегированные планы неотличимы от отсутствующих.
func (s *Service) Get(ctx context.Context, id models.Identity, planID string) (*models.Plan, error) {
	const op = "plan.Get"

	key := planKeyPrefix + planID
	var p *models.Plan
	if !s.cached(ctx, key, &p) || p == nil {
		var err error
		p, err = s.repo.GetPlan(ctx, planID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.KindPlanNotFound, "plan not found")
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.store(ctx, key, p)
	}

	if !id.Role.Privileged() && (!p.IsActive || s.policy.PrivilegedOnly(p.Name)) {
		return nil, apperr.New(apperr.KindPlanNotFound, "plan not found")
	}
	return p, nil
}

// Update меняет поля активного плана. Активность плана здесь не меняется:
// для этого есть Delete. Планы, чьи имена входят в лестницу тарифов,
// переименовать нельзя: тариф подписки берётся из имени плана.
func (s *Service) Update(ctx context.Context, planID string, patch models.PlanPatch) (*models.Plan, error) {
	const op = "plan.Update"

	p, err := s.repo.GetPlan(ctx, planID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !p.IsActive) {
		return nil, apperr.New(apperr.KindPlanNotFound, "plan not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	name, features := p.Name, p.Features
	if patch.Name != nil || patch.Features != nil {
		rawName := p.Name
		if patch.Name != nil {
			rawName = *patch.Name
		}
		rawFeatures := p.Features
		if patch.Features != nil {
			rawFeatures = patch.Features
		}
		if name, features, err = s.clean(rawName, rawFeatures); err != nil {
			return nil, err
		}
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.DurationDays != nil {
		p.DurationDays = *patch.DurationDays
	}
	if err := validateTerms(p.Price, p.DurationDays); err != nil {
		return nil, err
	}

	if name != p.Name {
		if err := s.renameAllowed(p.Name); err != nil {
			return nil, err
		}
		other, err := s.repo.GetActivePlanByName(ctx, name)
		switch {
		case err == nil && other.ID != p.ID:
			return nil, conflict(name)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	p.Name, p.Features = name, features

	if err := s.repo.UpdatePlan(ctx, *p); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.New(apperr.KindPlanNotFound, "plan not found")
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, conflict(name)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, activePlansKey, planKeyPrefix+p.ID)
	s.log.Info("plan updated", sl.Op(op), slog.String("plan_id", p.ID))
	return p, nil
}

// Delete деактивирует план. Существующие подписки на него продолжают действовать.
// Базовый план удалить нельзя: без него регистрация невозможна.
func (s *Service) Delete(ctx context.Context, planID string) error {
	const op = "plan.Delete"

	p, err := s.repo.GetPlan(ctx, planID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !p.IsActive) {
		return apperr.New(apperr.KindPlanNotFound, "plan not found")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tier.Normalize(p.Name) == s.policy.Base() {
		return apperr.New(apperr.KindConflict, fmt.Sprintf("plan %s is required for registration", p.Name))
	}

	if err := s.repo.DeactivatePlan(ctx, planID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.New(apperr.KindPlanNotFound, "plan not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, activePlansKey, planKeyPrefix+planID)
	s.log.Info("plan deactivated", sl.Op(op), slog.String("plan_id", planID))
	return nil
}

func (s *Service) renameAllowed(current string) error {
	switch {
	case tier.Normalize(current) == s.policy.Base():
		return apperr.New(apperr.KindConflict, fmt.Sprintf("plan %s is required for registration", current))
	case s.policy.Rank(current) > 0:
		return apperr.New(apperr.KindConflict, fmt.Sprintf("plan %s is a tier and cannot be renamed", current))
	}
	return nil
}

// clean очищает имя и список возможностей от разметки.
func (s *Service) clean(name string, features []string) (string, []string, error) {
	name = tier.Normalize(s.sanitize.Sanitize(name))
	if name == "" {
		return "", nil, apperr.New(apperr.KindValidation, "plan name is required")
	}
	out := make([]string, 0, len(features))
	for _, f := range features {
		f = strings.TrimSpace(s.sanitize.Sanitize(f))
		if f != "" {
			out = append(out, f)
		}
	}
	return name, out, nil
}

func validateTerms(price int64, durationDays int) error {
	if price < 0 {
		return apperr.New(apperr.KindValidation, "price must not be negative")
	}
	if durationDays <= 0 {
		return apperr.New(apperr.KindValidation, "duration_days must be positive")
	}
	return nil
}

func conflict(name string) error {
	return apperr.New(apperr.KindConflict, fmt.Sprintf("active plan %s already exists", name))
}

func (s *Service) cached(ctx context.Context, key string, result any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, result)
	if err != nil {
		s.log.Warn("plan cache read failed", slog.String("key", key), sl.Err(err))
		return false
	}
	return found
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.Warn("plan cache write failed", slog.String("key", key), sl.Err(err))
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("plan cache invalidation failed", slog.Any("keys", keys), sl.Err(err))
	}
}
