// Package paymentprocessor содержит обработчики оплаты подписок.
//
// Processor — единственная точка расширения процесса покупки. Local не обращается
// к внешнему шлюзу: он проверяет реквизиты по JSON-схеме способа оплаты и
// подтверждает платёж.
package paymentprocessor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/magabrotheeeer/entitlement-engine/internal/lib/apperr"
	"github.com/magabrotheeeer/entitlement-engine/internal/models"
)

// Request — данные платежа, переданные процессору.
type Request struct {
	Method  models.PaymentMethod
	Amount  int64
	Details json.RawMessage
}

// Processor проводит платёж и возвращает его итоговый статус.
// Ошибка означает, что платёж не удалось даже попытаться провести
// (например, реквизиты не прошли проверку).
type Processor interface {
	Process(ctx context.Context, req Request) (models.PaymentStatus, error)
}

const cardSchema = `{
	"type": "object",
	"required": ["card_number", "expiry", "card_holder"],
	"additionalProperties": false,
	"properties": {
		"card_number": {"type": "string", "pattern": "^[0-9]{12,19}$"},
		"expiry":      {"type": "string", "pattern": "^(0[1-9]|1[0-2])/[0-9]{2}$"},
		"card_holder": {"type": "string", "minLength": 2, "maxLength": 128}
	}
}`

const bankTransferSchema = `{
	"type": "object",
	"required": ["account_number", "bank_name"],
	"additionalProperties": false,
	"properties": {
		"account_number": {"type": "string", "minLength": 5, "maxLength": 34},
		"bank_name":      {"type": "string", "minLength": 2, "maxLength": 128}
	}
}`

// Local — процессор без внешнего шлюза.
type Local struct {
	schemas map[models.PaymentMethod]*gojsonschema.Schema
}

// NewLocal компилирует схемы реквизитов для всех способов оплаты.
func NewLocal() (*Local, error) {
	const op = "paymentprocessor.NewLocal"
	sources := map[models.PaymentMethod]string{
		models.MethodCard:         cardSchema,
		models.MethodBankTransfer: bankTransferSchema,
	}
	schemas := make(map[models.PaymentMethod]*gojsonschema.Schema, len(sources))
	for method, src := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, method, err)
		}
		schemas[method] = schema
	}
	return &Local{schemas: schemas}, nil
}

// Process проверяет реквизиты и подтверждает платёж.
func (l *Local) Process(ctx context.Context, req Request) (models.PaymentStatus, error) {
	const op = "paymentprocessor.Local.Process"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if err := l.Validate(req.Method, req.Details); err != nil {
		return "", err
	}
	return models.PaymentCompleted, nil
}

// Validate проверяет реквизиты по схеме способа оплаты.
func (l *Local) Validate(method models.PaymentMethod, details json.RawMessage) error {
	schema, ok := l.schemas[method]
	if !ok {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("unsupported payment method %q", method))
	}
	if len(details) == 0 {
		return apperr.New(apperr.KindValidation, "payment details are required")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(details))
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "payment details must be a JSON object", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return apperr.New(apperr.KindValidation, "invalid payment details: "+strings.Join(msgs, "; "))
	}
	return nil
}

// Номера карт и счетов сохраняются только последними цифрами.
var maskedFields = map[models.PaymentMethod]string{
	models.MethodCard:         "card_number",
	models.MethodBankTransfer: "account_number",
}

const visibleDigits = 4

// Redact возвращает реквизиты в виде, пригодном для хранения: номер карты или
// счёта заменяется маской с последними четырьмя символами. Реквизиты, которые
// не разбираются как JSON-объект, заменяются пустым объектом.
func Redact(method models.PaymentMethod, details json.RawMessage) json.RawMessage {
	var fields map[string]any
	if err := json.Unmarshal(details, &fields); err != nil || fields == nil {
		return json.RawMessage(`{}`)
	}
	if key, ok := maskedFields[method]; ok {
		if number, ok := fields[key].(string); ok {
			fields[key] = mask(number)
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return out
}

func mask(number string) string {
	if len(number) <= visibleDigits {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-visibleDigits) + number[len(number)-visibleDigits:]
}
