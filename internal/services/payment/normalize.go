package payment

import (
	"context"
	"errors"
	"math"

	"log/slog"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"
)

var (
	ErrMissingFields = errors.New("webhook missing required fields")
	ErrBadSignature  = errors.New("webhook signature mismatch")
)

// Normalizer переводит сумму вебхука в валюту расчета и сверяет с заказом.
// Курсы приблизительные, задаются конфигом; расхождение в пределах допуска
// и даже выше него не блокирует зачисление - провайдерское округление ожидаемо.
type Normalizer struct {
	settlementCurrency string
	rates              map[string]float64
	tolerancePercent   float64
}

func NewNormalizer(cfg *config.Config) *Normalizer {
	return &Normalizer{
		settlementCurrency: cfg.Payments.SettlementCurrency,
		rates:              cfg.Payments.FXRates,
		tolerancePercent:   cfg.Payments.AmountTolerancePercent,
	}
}

// Normalize возвращает сумму в валюте расчета. Для неизвестной валюты
// курс принимается за 1 и пишется warning.
func (n *Normalizer) Normalize(ctx context.Context, amount float64, currency string) float64 {
	if currency == "" || currency == n.settlementCurrency {
		return amount
	}
	rate, ok := n.rates[currency]
	if !ok || rate <= 0 {
		logger.CtxWarn(ctx, "No FX rate configured, using 1:1",
			slog.String("currency", currency),
			slog.String("settlement_currency", n.settlementCurrency))
		return amount
	}
	return amount * rate
}

// CheckAmount сверяет нормализованную сумму вебхука с суммой заказа.
// Возвращает false при расхождении выше допуска; вызывающая сторона
// логирует warning, но зачисление не блокирует.
func (n *Normalizer) CheckAmount(orderAmount, webhookAmount float64) bool {
	if orderAmount == 0 {
		return webhookAmount == 0
	}
	divergence := math.Abs(webhookAmount-orderAmount) / orderAmount * 100
	return divergence <= n.tolerancePercent
}
