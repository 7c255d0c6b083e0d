package entitlementengine

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/entitlement-engine/internal/models"
	authservice "github.com/magabrotheeeer/entitlement-engine/internal/services/auth"
	purchaseservice "github.com/magabrotheeeer/entitlement-engine/internal/services/purchase"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage"
)

// Идентификаторы планов совпадают с начальной миграцией.
const (
	freePlanID     = "00000000-0000-0000-0000-000000000001"
	premiumPlanID  = "00000000-0000-0000-0000-000000000002"
	lifetimePlanID = "00000000-0000-0000-0000-000000000003"
)

// memLedger — хранилище в памяти с тем же контрактом, что и repository.Storage.
// Транзакция откатывается восстановлением снимка.
type memLedger struct {
	mu       sync.Mutex
	users    map[string]models.User
	plans    map[string]models.Plan
	subs     map[string]models.Subscription
	payments []models.Payment
}

func newMemLedger() *memLedger {
	now := time.Now().UTC()
	l := &memLedger{
		users: make(map[string]models.User),
		plans: make(map[string]models.Plan),
		subs:  make(map[string]models.Subscription),
	}
	for _, p := range []models.Plan{
		{ID: freePlanID, Name: "FREE", Price: 0, DurationDays: 30, Features: []string{"catalog"}},
		{ID: premiumPlanID, Name: "PREMIUM", Price: 999, DurationDays: 30, Features: []string{"catalog", "hd_quality"}},
		{ID: lifetimePlanID, Name: "LIFETIME", Price: 0, DurationDays: 36500, Features: []string{"catalog", "early_access"}},
	} {
		p.IsActive = true
		p.CreatedAt = now
		l.plans[p.ID] = p
	}
	return l
}

func (l *memLedger) UserExists(_ context.Context, username, email string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range l.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range l.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (l *memLedger) GetUser(_ context.Context, userUID string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userUID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (l *memLedger) CreateUser(_ context.Context, user models.User) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range l.users {
		if u.Username == user.Username || u.Email == user.Email {
			return storage.ErrAlreadyExists
		}
	}
	l.users[user.UUID] = user
	return nil
}

func (l *memLedger) CreatePlan(_ context.Context, plan models.Plan) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.plans {
		if p.IsActive && p.Name == plan.Name {
			return storage.ErrAlreadyExists
		}
	}
	l.plans[plan.ID] = plan
	return nil
}

func (l *memLedger) GetPlan(_ context.Context, id string) (*models.Plan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.plans[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (l *memLedger) GetActivePlanByName(_ context.Context, name string) (*models.Plan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.plans {
		if p.IsActive && p.Name == name {
			return &p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (l *memLedger) ListPlans(_ context.Context, includeInactive bool) ([]*models.Plan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var res []*models.Plan
	for _, p := range l.plans {
		p := p
		if !p.IsActive && !includeInactive {
			continue
		}
		res = append(res, &p)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Price != res[j].Price {
			return res[i].Price < res[j].Price
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (l *memLedger) UpdatePlan(_ context.Context, plan models.Plan) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.plans[plan.ID]; !ok {
		return storage.ErrNotFound
	}
	l.plans[plan.ID] = plan
	return nil
}

func (l *memLedger) DeactivatePlan(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.plans[id]
	if !ok || !p.IsActive {
		return storage.ErrNotFound
	}
	p.IsActive = false
	l.plans[id] = p
	return nil
}

func (l *memLedger) CreateSubscription(_ context.Context, sub models.Subscription) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs[sub.ID] = sub
	return nil
}

func (l *memLedger) ActivateSubscription(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	sub, ok := l.subs[id]
	if !ok || sub.Status != models.StatusPendingPayment {
		return storage.ErrNotFound
	}
	sub.Status = models.StatusActive
	l.subs[id] = sub
	return nil
}

func (l *memLedger) ListUserSubscriptions(_ context.Context, userUID string) ([]*models.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var res []*models.Subscription
	for _, sub := range l.subs {
		sub := sub
		if sub.UserUID != userUID {
			continue
		}
		sub.PlanName = l.plans[sub.PlanID].Name
		res = append(res, &sub)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].EndDate.After(res[j].EndDate) })
	return res, nil
}

func (l *memLedger) ExpireStale(_ context.Context, userUID string, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for id, sub := range l.subs {
		if sub.UserUID == userUID && sub.Status == models.StatusActive && !sub.EndDate.After(now) {
			sub.Status = models.StatusExpired
			l.subs[id] = sub
			n++
		}
	}
	return n, nil
}

func (l *memLedger) ListStalePending(_ context.Context, before time.Time) ([]*models.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var res []*models.Subscription
	for _, sub := range l.subs {
		sub := sub
		if sub.Status == models.StatusPendingPayment && sub.CreatedAt.Before(before) {
			sub.PlanName = l.plans[sub.PlanID].Name
			res = append(res, &sub)
		}
	}
	return res, nil
}

func (l *memLedger) CreatePayment(_ context.Context, p models.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payments = append(l.payments, p)
	return nil
}

// shiftUser сдвигает все подписки пользователя на d, имитируя ход времени.
func (l *memLedger) shiftUser(userUID string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, sub := range l.subs {
		if sub.UserUID == userUID {
			sub.StartDate = sub.StartDate.Add(d)
			sub.EndDate = sub.EndDate.Add(d)
			sub.CreatedAt = sub.CreatedAt.Add(d)
			l.subs[id] = sub
		}
	}
}

func (l *memLedger) countSubs(userUID string, status models.SubscriptionStatus) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, sub := range l.subs {
		if sub.UserUID == userUID && (status == "" || sub.Status == status) {
			n++
		}
	}
	return n
}

type memSnapshot struct {
	users    map[string]models.User
	plans    map[string]models.Plan
	subs     map[string]models.Subscription
	payments []models.Payment
}

func (l *memLedger) snapshot() memSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return memSnapshot{
		users:    maps.Clone(l.users),
		plans:    maps.Clone(l.plans),
		subs:     maps.Clone(l.subs),
		payments: append([]models.Payment(nil), l.payments...),
	}
}

func (l *memLedger) restore(s memSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users, l.plans, l.subs, l.payments = s.users, s.plans, s.subs, s.payments
}

func (l *memLedger) runInTx(fn func() error) error {
	snap := l.snapshot()
	if err := fn(); err != nil {
		l.restore(snap)
		return err
	}
	return nil
}

type memAuthStore struct{ *memLedger }

func (s memAuthStore) RunInTx(_ context.Context, fn func(tx authservice.Tx) error) error {
	return s.runInTx(func() error { return fn(s.memLedger) })
}

type memPurchaseStore struct{ *memLedger }

func (s memPurchaseStore) RunInTx(_ context.Context, fn func(tx purchaseservice.Tx) error) error {
	return s.runInTx(func() error { return fn(s.memLedger) })
}
