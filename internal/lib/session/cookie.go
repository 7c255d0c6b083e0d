// Package session переносит токен сессии в HTTP-cookie и обратно.
package session

import (
	"net/http"
	"time"
)

// DefaultCookieName — имя cookie с токеном сессии.
const DefaultCookieName = "accessToken"

// Cookie описывает атрибуты cookie сессии.
type Cookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Set записывает токен в cookie: HttpOnly, SameSite=Lax, Path=/, MaxAge равен TTL токена.
func (c Cookie) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.build(token, int(c.TTL.Seconds())))
}

// Clear удаляет cookie с теми же атрибутами, что и при установке.
func (c Cookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.build("", -1))
}

// TokenFromRequest возвращает токен из cookie или пустую строку.
func (c Cookie) TokenFromRequest(r *http.Request) string {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return ck.Value
}

func (c Cookie) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func (c Cookie) build(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
