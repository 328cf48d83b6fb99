package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/models"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/internal/services/payment"
	"keyshop_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlerter struct {
	subjects chan string
}

func (a *recordingAlerter) PaymentAlert(subject, body string) {
	select {
	case a.subjects <- subject:
	default:
	}
}

type reconcileFixture struct {
	*orderFixture
	reconcile *ReconcileService
	anypay    *payment.AnypayProvider
	alerter   *recordingAlerter
	events    repositories.WebhookEventRepository
}

func newReconcileFixture(t *testing.T, slug string) *reconcileFixture {
	base := newOrderFixture(t, slug)

	cfg := &config.Config{}
	cfg.Payments.DefaultProvider = "anypay"
	cfg.Payments.SettlementCurrency = "RUB"
	cfg.Payments.AmountTolerancePercent = 2.0
	cfg.Anypay.ProjectID = "42"
	cfg.Anypay.APIID = "api-id"
	cfg.Anypay.APIKey = "super-secret"
	cfg.Anypay.Currency = "RUB"
	cfg.Anypay.Method = "card"
	cfg.Anypay.TimeoutSeconds = 20
	cfg.Nicepay.MerchantID = "m"
	cfg.Nicepay.SecretKey = "s"
	cfg.Nicepay.TimeoutSeconds = 30

	registry, err := payment.NewRegistry(cfg)
	require.NoError(t, err)
	anypayProvider, err := registry.Get("anypay")
	require.NoError(t, err)

	events := repositories.NewWebhookEventRepository(base.db)
	alerter := &recordingAlerter{subjects: make(chan string, 8)}
	reconcile := NewReconcileService(registry, base.orders, base.orderRpo, events,
		payment.NewNormalizer(cfg), alerter, cfg)

	return &reconcileFixture{
		orderFixture: base,
		reconcile:    reconcile,
		anypay:       anypayProvider.(*payment.AnypayProvider),
		alerter:      alerter,
		events:       events,
	}
}

func (f *reconcileFixture) paidWebhook(t *testing.T, orderID uint, amount string) map[string]string {
	t.Helper()
	payID := strconv.FormatUint(uint64(orderID), 10)
	return map[string]string{
		"pay_id":         payID,
		"amount":         amount,
		"status":         "paid",
		"transaction_id": "ext-9",
		"currency":       "RUB",
		"sign":           f.anypay.WebhookSign(amount, payID),
	}
}

func TestHandlePaidWebhook(t *testing.T) {
	f := newReconcileFixture(t, "reconcile-paid")
	seedKeys(t, f.db, f.product.ID, 30, 1)

	order, _, err := f.orders.Purchase(context.Background(), f.user.ID, f.product.ID, 30,
		&fakeProvider{name: "anypay"})
	require.NoError(t, err)

	err = f.reconcile.Handle(context.Background(), "anypay", f.paidWebhook(t, order.ID, "500.00"))
	require.NoError(t, err)

	settled, err := f.orderRpo.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, settled.Status)

	// Строка аудита записана
	rows, err := f.events.ListByOrder(order.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "anypay", rows[0].Provider)
	assert.Equal(t, "paid", rows[0].Result)
}

// Невалидная подпись: отказ без каких-либо изменений состояния
func TestHandleBadSignature(t *testing.T) {
	f := newReconcileFixture(t, "reconcile-bad-sign")
	seedKeys(t, f.db, f.product.ID, 30, 1)

	order, _, err := f.orders.Purchase(context.Background(), f.user.ID, f.product.ID, 30,
		&fakeProvider{name: "anypay"})
	require.NoError(t, err)

	fields := f.paidWebhook(t, order.ID, "500.00")
	fields["sign"] = "deadbeef"

	err = f.reconcile.Handle(context.Background(), "anypay", fields)
	assert.ErrorIs(t, err, apperrors.ErrInvalidWebhookSignature)

	untouched, err := f.orderRpo.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusWaiting, untouched.Status)

	key, err := f.keys.FindByID(*order.KeyID)
	require.NoError(t, err)
	assert.Equal(t, models.KeyStatusHeld, key.Status)

	rows, err := f.events.ListByOrder(order.ID)
	require.NoError(t, err)
	assert.Empty(t, rows, "rejected webhook must not be applied")
}

func TestHandleUnknownOrder(t *testing.T) {
	f := newReconcileFixture(t, "reconcile-no-order")

	err := f.reconcile.Handle(context.Background(), "anypay", f.paidWebhook(t, 999, "500.00"))
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestHandleUnknownProvider(t *testing.T) {
	f := newReconcileFixture(t, "reconcile-no-provider")

	err := f.reconcile.Handle(context.Background(), "robokassa", map[string]string{})
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}

// Расхождение суммы выше допуска: warning и алерт, но зачисление проходит
func TestHandleAmountMismatchStillSettles(t *testing.T) {
	f := newReconcileFixture(t, "reconcile-mismatch")
	seedKeys(t, f.db, f.product.ID, 30, 1)

	order, _, err := f.orders.Purchase(context.Background(), f.user.ID, f.product.ID, 30,
		&fakeProvider{name: "anypay"})
	require.NoError(t, err)

	err = f.reconcile.Handle(context.Background(), "anypay", f.paidWebhook(t, order.ID, "400.00"))
	require.NoError(t, err)

	settled, err := f.orderRpo.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, settled.Status, "mismatch must not block settlement")

	// Алерт уходит из горутины
	assert.Eventually(t, func() bool {
		select {
		case <-f.alerter.subjects:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
