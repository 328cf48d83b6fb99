package payment

import (
	"context"
)

// Outcome - нормализованный исход платежа из webhook провайдера
type Outcome string

const (
	OutcomePaid         Outcome = "paid"
	OutcomeFailed       Outcome = "failed"
	OutcomePending      Outcome = "pending"
	OutcomeUnrecognized Outcome = "unrecognized"
)

// CreateRequest - запрос на создание платежа у провайдера.
// Amount в целых единицах валюты расчета (не в копейках);
// адаптер сам переводит в формат провайдера.
type CreateRequest struct {
	OrderID     uint
	Amount      float64
	Currency    string
	Description string
	Method      string
	Customer    string
}

// CreateResult - ответ провайдера на создание платежа
type CreateResult struct {
	ExternalID  string
	RedirectURL string
}

// Event - верифицированное webhook-событие
type Event struct {
	Provider    string
	ExternalID  string
	PayID       string // наша ссылка на заказ
	Outcome     Outcome
	RawAmount   float64 // как прислал провайдер, до нормализации
	RawCurrency string
}

// Provider - контракт платежного адаптера. Адаптеры stateless:
// вся специфика провайдера (подпись, формат сумм, тело подтверждения)
// живет здесь и не протекает в сервисный слой.
type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	// VerifyWebhook пересчитывает подпись по входным полям и секрету.
	// При несовпадении событие не применяется (fail closed).
	VerifyWebhook(fields map[string]string) (*Event, error)
	// AckBody - тело ответа, которое останавливает ретраи провайдера.
	// Точные литералы являются частью wire-контракта.
	AckBody() (contentType string, body string)
}
