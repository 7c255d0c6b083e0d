package entitlementengine

import (
	"context"

	"github.com/magabrotheeeer/entitlement-engine/internal/cache"
	authservice "github.com/magabrotheeeer/entitlement-engine/internal/services/auth"
	planservice "github.com/magabrotheeeer/entitlement-engine/internal/services/plan"
	purchaseservice "github.com/magabrotheeeer/entitlement-engine/internal/services/purchase"
	"github.com/magabrotheeeer/entitlement-engine/internal/storage/repository"
)

// authStore отдаёт сервису аутентификации хранилище и его транзакции.
type authStore struct {
	*repository.Storage
}

func (s authStore) RunInTx(ctx context.Context, fn func(tx authservice.Tx) error) error {
	return s.WithTx(ctx, func(tx *repository.Storage) error {
		return fn(tx)
	})
}

// purchaseStore отдаёт сервису покупки хранилище и его транзакции.
type purchaseStore struct {
	*repository.Storage
}

func (s purchaseStore) RunInTx(ctx context.Context, fn func(tx purchaseservice.Tx) error) error {
	return s.WithTx(ctx, func(tx *repository.Storage) error {
		return fn(tx)
	})
}

// planCache возвращает nil-интерфейс, если Redis не подключён, чтобы сервис
// планов не вызывал методы у nil-указателя.
func planCache(c *cache.Cache) planservice.Cache {
	if c == nil {
		return nil
	}
	return c
}
