package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/services"
	"keyshop_backend/internal/services/payment"
	"keyshop_backend/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Payments.DefaultProvider = "anypay"
	cfg.Payments.SettlementCurrency = "RUB"
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

	// До чтения состояния заказа доходят только верифицированные вебхуки,
	// поэтому для сценариев отказа база не нужна
	reconcile := services.NewReconcileService(registry, nil, nil, nil,
		payment.NewNormalizer(cfg), nil, cfg)

	base := NewBaseHandler(validator.New())
	handler := NewPaymentHandler(base, reconcile, registry)

	router := gin.New()
	handler.RegisterRoutes(router.Group(""))
	return router
}

// Подпись не сошлась: 400, состояние не тронуто, тела подтверждения нет
func TestWebhookBadSignatureRejected(t *testing.T) {
	router := newWebhookRouter(t)

	form := url.Values{}
	form.Set("pay_id", "7")
	form.Set("amount", "500.00")
	form.Set("status", "paid")
	form.Set("sign", "deadbeef")

	req := httptest.NewRequest(http.MethodPost, "/payments/anypay/webhook",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEqual(t, "OK", w.Body.String())
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")
}

func TestWebhookMissingFieldsRejected(t *testing.T) {
	router := newWebhookRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/payments/nicepay/webhook", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCollectFieldsMergesQueryAndForm(t *testing.T) {
	gin.SetMode(gin.TestMode)

	form := url.Values{}
	form.Set("amount", "500.00")

	req := httptest.NewRequest(http.MethodPost, "/hook?pay_id=7",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	fields := collectFields(c)
	assert.Equal(t, "7", fields["pay_id"])
	assert.Equal(t, "500.00", fields["amount"])
}
