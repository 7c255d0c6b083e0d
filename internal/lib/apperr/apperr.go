// Package apperr описывает доменные ошибки движка аутентификации и доступа.
//
// Каждая ошибка несёт стабильный машиночитаемый Kind и человекочитаемое сообщение.
// HTTP-слой переводит Kind в статус ответа, а всё, что не является *Error,
// считается внутренней ошибкой и наружу без деталей не попадает.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind — стабильный код ошибки, который видит клиент.
type Kind string

const (
	KindConflict           Kind = "CONFLICT"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindEntitlementExpired Kind = "ENTITLEMENT_EXPIRED"
	KindInsufficientTier   Kind = "INSUFFICIENT_TIER"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindPlanNotFound       Kind = "PLAN_NOT_FOUND"
	KindPurchaseFailed     Kind = "PURCHASE_FAILED"
	KindConfiguration      Kind = "CONFIGURATION"
	KindValidation         Kind = "VALIDATION"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindInternal           Kind = "INTERNAL"
)

// Error — доменная ошибка с кодом, сообщением и (опционально) причиной.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает ошибки по Kind, чтобы errors.Is(err, apperr.ErrConflict) работал
// независимо от сообщения.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Эталонные значения для errors.Is.
var (
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrEntitlementExpired = &Error{Kind: KindEntitlementExpired}
	ErrInsufficientTier   = &Error{Kind: KindInsufficientTier}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrPlanNotFound       = &Error{Kind: KindPlanNotFound}
	ErrPurchaseFailed     = &Error{Kind: KindPurchaseFailed}
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrValidation         = &Error{Kind: KindValidation}
)

// New создаёт доменную ошибку.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap создаёт доменную ошибку с сохранением причины.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf возвращает Kind ошибки или KindInternal, если ошибка не доменная.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage возвращает сообщение, безопасное для показа клиенту.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus сопоставляет Kind и HTTP-статус.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindConflict:
		return http.StatusConflict
	case KindInvalidCredentials, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindEntitlementExpired, KindInsufficientTier, KindForbidden:
		return http.StatusForbidden
	case KindPlanNotFound:
		return http.StatusNotFound
	case KindPurchaseFailed:
		return http.StatusPaymentRequired
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
