package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestNormalizer() *Normalizer {
	return &Normalizer{
		settlementCurrency: "RUB",
		rates:              map[string]float64{"USD": 90},
		tolerancePercent:   2.0,
	}
}

func TestNormalizeSettlementCurrency(t *testing.T) {
	n := newTestNormalizer()
	assert.Equal(t, 500.0, n.Normalize(context.Background(), 500, "RUB"))
	assert.Equal(t, 500.0, n.Normalize(context.Background(), 500, ""))
}

func TestNormalizeWithRate(t *testing.T) {
	n := newTestNormalizer()
	assert.Equal(t, 450.0, n.Normalize(context.Background(), 5, "USD"))
}

// Неизвестная валюта - курс 1:1, зачисление не блокируется
func TestNormalizeUnknownCurrency(t *testing.T) {
	n := newTestNormalizer()
	assert.Equal(t, 500.0, n.Normalize(context.Background(), 500, "EUR"))
}

func TestCheckAmountWithinTolerance(t *testing.T) {
	n := newTestNormalizer()

	assert.True(t, n.CheckAmount(500, 500))
	assert.True(t, n.CheckAmount(500, 509.9))
	assert.True(t, n.CheckAmount(500, 490.1))
	assert.True(t, n.CheckAmount(500, 510)) // ровно 2% - в допуске
	assert.False(t, n.CheckAmount(500, 511))
	assert.False(t, n.CheckAmount(500, 488))
}

func TestCheckAmountZeroOrder(t *testing.T) {
	n := newTestNormalizer()
	assert.True(t, n.CheckAmount(0, 0))
	assert.False(t, n.CheckAmount(0, 10))
}
