// Package auth содержит регистрацию, вход и проверку токенов сессии.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/entitlement-engine/internal/events"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/password"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-engine/internal/lib/tier"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage"
)

// FreeTrialDays длительность базовой подписки, выдаваемой при регистрации.
const FreeTrialDays = 30

// Store описывает контракт хранилища учётных записей.
type Store interface {
	// UserExists сообщает, занят ли username или email.
	UserExists(ctx context.Context, username, email string) (bool, error)
	// GetUserByUsername возвращает пользователя по имени или storage.ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUser возвращает пользователя по UID или storage.ErrNotFound.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// GetActivePlanByName возвращает активный план по имени или storage.ErrNotFound.
	GetActivePlanByName(ctx context.Context, name string) (*models.Plan, error)
	// RunInTx выполняет fn в одной транзакции.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx операции записи, выполняемые при регистрации в одной транзакции.
type Tx interface {
	CreateUser(ctx context.Context, user models.User) error
	CreateSubscription(ctx context.Context, sub models.Subscription) error
}

// EntitlementResolver вычисляет текущее право доступа пользователя.
type EntitlementResolver interface {
	Resolve(ctx context.Context, id models.Identity) (models.Entitlement, error)
}

// Options параметры Service.
type Options struct {
	BcryptCost int
	Policy     tier.Policy
	Events     events.Publisher
	Metrics    *metrics.Metrics
}

// Service отвечает за регистрацию, вход и проверку токенов.
type Service struct {
	store    Store
	resolver EntitlementResolver
	jwtMaker jwt.Maker
	opts     Options
	log      *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// New создает новый экземпляр Service.
func New(store Store, resolver EntitlementResolver, jwtMaker jwt.Maker, opts Options, log *slog.Logger) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = password.DefaultCost
	}
	if opts.Policy == nil {
		opts.Policy = tier.Default()
	}
	if opts.Events == nil {
		opts.Events = events.Noop{}
	}
	return &Service{
		store:    store,
		resolver: resolver,
		jwtMaker: jwtMaker,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// RegisterInput данные для регистрации.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

// Register создаёт пользователя и выдаёт ему базовую подписку на FreeTrialDays дней.
// Пользователь и подписка сохраняются в одной транзакции. Если активного базового
// плана нет, ничего не сохраняется и возвращается ошибка конфигурации.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Registration, error) {
	const op = "auth.Register"

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown role %q", role))
	}

	exists, err := s.store.UserExists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil, apperr.New(apperr.KindConflict, "user with this username or email already exists")
	}

	base, err := s.store.GetActivePlanByName(ctx, s.opts.Policy.Base())
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Error("base plan is not configured", sl.Op(op), slog.String("plan", s.opts.Policy.Base()))
		return nil, apperr.Wrap(apperr.KindConfiguration, "base subscription plan is not configured", err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.GetHash(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	user := models.User{
		UUID:         uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
	}
	sub := models.Subscription{
		ID:        uuid.NewString(),
		UserUID:   user.UUID,
		PlanID:    base.ID,
		PlanName:  base.Name,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, FreeTrialDays),
		Status:    models.StatusActive,
		CreatedAt: now,
	}

	err = s.store.RunInTx(ctx, func(tx Tx) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.CreateSubscription(ctx, sub)
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, apperr.New(apperr.KindConflict, "user with this username or email already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered", sl.Op(op), sl.UserUID(user.UUID), slog.String("role", string(role)))
	events.Emit(ctx, s.log, s.opts.Events, events.UserRegistered, events.UserRegisteredEvent{
		UserUID:    user.UUID,
		Username:   user.Username,
		Email:      user.Email,
		Role:       string(user.Role),
		OccurredAt: now,
	})
	events.Emit(ctx, s.log, s.opts.Events, events.SubscriptionActivated, events.SubscriptionActivatedEvent{
		UserUID:        user.UUID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		PlanName:       sub.PlanName,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		OccurredAt:     now,
	})

	return &models.Registration{User: user, Subscription: sub}, nil
}

// BootstrapAdmin создаёт привилегированную учётную запись, если пользователя с
// таким именем ещё нет. Подписка не выдаётся: привилегированным ролям она не нужна.
// Повторный вызов ничего не меняет.
func (s *Service) BootstrapAdmin(ctx context.Context, in RegisterInput) (*models.User, bool, error) {
	const op = "auth.BootstrapAdmin"

	if !in.Role.Privileged() {
		return nil, false, apperr.New(apperr.KindValidation, fmt.Sprintf("role %q is not privileged", in.Role))
	}

	existing, err := s.store.GetUserByUsername(ctx, in.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.GetHash(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		UUID:         uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    s.now().UTC(),
	}
	err = s.store.RunInTx(ctx, func(tx Tx) error {
		return tx.CreateUser(ctx, user)
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, false, apperr.New(apperr.KindConflict, "user with this username or email already exists")
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("privileged user created", sl.Op(op), sl.UserUID(user.UUID), slog.String("role", string(user.Role)))
	return &user, true, nil
}

// Login проверяет пароль, сверяет подписку и выпускает токен сессии.
//
// Неизвестный пользователь и неверный пароль неразличимы для клиента. Пользователь
// с ролью USER без действующей подписки токен не получает.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (*models.Session, error) {
	const op = "auth.Login"

	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		_ = password.CompareHash(s.dummy(), rawPassword)
		s.opts.Metrics.ObserveLogin(metrics.ResultFailure)
		return nil, apperr.New(apperr.KindInvalidCredentials, "invalid username or password")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		s.opts.Metrics.ObserveLogin(metrics.ResultFailure)
		if errors.Is(err, password.ErrMismatch) {
			return nil, apperr.New(apperr.KindInvalidCredentials, "invalid username or password")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ent, err := s.resolver.Resolve(ctx, models.Identity{UserUID: user.UUID, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ent.Active() {
		s.opts.Metrics.ObserveLogin(string(apperr.KindEntitlementExpired))
		s.log.Info("login rejected: no active subscription", sl.Op(op), sl.UserUID(user.UUID))
		return nil, apperr.New(apperr.KindEntitlementExpired, "subscription expired")
	}

	token, expiresAt, err := s.jwtMaker.GenerateToken(user.UUID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.opts.Metrics.ObserveLogin(metrics.ResultSuccess)
	s.log.Info("user logged in", sl.Op(op), sl.UserUID(user.UUID))
	return &models.Session{
		Token:       token,
		ExpiresAt:   expiresAt,
		User:        *user,
		Entitlement: ent,
	}, nil
}

// Logout всегда завершается успешно: сессия не хранится на сервере, и для
// выхода достаточно удалить cookie на стороне клиента.
func (s *Service) Logout(_ context.Context) error {
	return nil
}

// Validate проверяет токен и возвращает личность пользователя. Любая ошибка
// проверки превращается в KindUnauthenticated.
func (s *Service) Validate(_ context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "authentication required")
	}
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, "invalid token", err)
	}
	role := models.Role(claims.Role)
	if !role.Valid() {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid token")
	}
	return &models.Identity{UserUID: claims.UserUID, Role: role}, nil
}

// Me возвращает учётную запись пользователя по его личности.
func (s *Service) Me(ctx context.Context, id models.Identity) (*models.User, error) {
	const op = "auth.Me"
	user, err := s.store.GetUser(ctx, id.UserUID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.New(apperr.KindUnauthenticated, "user no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// TokenTTL возвращает время жизни токена сессии.
func (s *Service) TokenTTL() time.Duration {
	return s.jwtMaker.TTL()
}

// dummy возвращает хэш для сравнения, когда пользователь не найден,
// чтобы время ответа не выдавало существование учётной записи.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := password.GetHash("dummy-password-for-timing", s.opts.BcryptCost)
		if err != nil {
			s.log.Error("failed to build dummy hash", sl.Err(err))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
