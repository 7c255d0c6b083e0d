// Package models содержит доменные структуры движка доступа: учётные записи,
// тарифные планы, подписки пользователей, платежи и результаты проверок доступа.
package models

import "time"

// Role — роль пользователя.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

// Valid сообщает, что роль входит в известный набор.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Privileged сообщает, что роль имеет доступ ко всему контенту независимо от подписки.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID         string    // Уникальный идентификатор пользователя
	Username     string    // Имя пользователя (уникальное)
	Email        string    // Электронная почта (уникальная)
	PasswordHash string    // bcrypt-хэш пароля
	Role         Role      // USER, ADMIN или SUPERADMIN
	CreatedAt    time.Time // Дата регистрации
}

// Identity — данные о пользователе, извлечённые из проверенного токена сессии.
type Identity struct {
	UserUID string
	Role    Role
}
