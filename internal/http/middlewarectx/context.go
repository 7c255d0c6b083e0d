package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID — ключ для UID пользователя в контексте
	UserUID Key = "user_uid"
	// Role — ключ для роли пользователя в контексте
	Role Key = "role"
	// Entitlement — ключ для вычисленного права доступа
	Entitlement Key = "entitlement"
)

// WithIdentity кладёт личность пользователя в контекст.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	ctx = context.WithValue(ctx, UserUID, id.UserUID)
	return context.WithValue(ctx, Role, id.Role)
}

// IdentityFrom достаёт личность пользователя, положенную Guard.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	uid, ok := ctx.Value(UserUID).(string)
	if !ok || uid == "" {
		return models.Identity{}, false
	}
	role, _ := ctx.Value(Role).(models.Role)
	return models.Identity{UserUID: uid, Role: role}, true
}

// WithEntitlement кладёт право доступа в контекст.
func WithEntitlement(ctx context.Context, ent models.Entitlement) context.Context {
	return context.WithValue(ctx, Entitlement, ent)
}

// EntitlementFrom достаёт право доступа, если маршрут требовал тариф.
func EntitlementFrom(ctx context.Context) (models.Entitlement, bool) {
	ent, ok := ctx.Value(Entitlement).(models.Entitlement)
	return ent, ok
}
