package payment

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnypay() *AnypayProvider {
	return &AnypayProvider{
		projectID: "42",
		apiID:     "api-id",
		apiKey:    "super-secret",
		currency:  "RUB",
		method:    "card",
		baseURL:   anypayBaseURL,
		client:    http.DefaultClient,
	}
}

func TestAnypayCreatePaymentSign(t *testing.T) {
	p := newTestAnypay()

	sign := p.CreatePaymentSign("7", "500.00", "Order #7")

	// Подпись - sha256 от конкатенации без разделителей, секрет в конце
	expected := sha256.Sum256([]byte(
		"create-payment" + "api-id" + "42" + "7" + "500.00" + "RUB" + "Order #7" + "card" + "super-secret"))
	assert.Equal(t, hex.EncodeToString(expected[:]), sign)
}

func TestAnypayWebhookRoundTrip(t *testing.T) {
	p := newTestAnypay()

	fields := map[string]string{
		"pay_id":         "7",
		"amount":         "500.00",
		"status":         "paid",
		"transaction_id": "ext-123",
		"sign":           p.WebhookSign("500.00", "7"),
	}

	event, err := p.VerifyWebhook(fields)
	require.NoError(t, err)
	assert.Equal(t, "anypay", event.Provider)
	assert.Equal(t, "7", event.PayID)
	assert.Equal(t, "ext-123", event.ExternalID)
	assert.Equal(t, OutcomePaid, event.Outcome)
	assert.Equal(t, 500.0, event.RawAmount)
	assert.Equal(t, "RUB", event.RawCurrency)
}

// Изменение любого подписанного поля делает подпись невалидной
func TestAnypayWebhookMutationInvalidates(t *testing.T) {
	p := newTestAnypay()
	sign := p.WebhookSign("500.00", "7")

	mutations := []map[string]string{
		{"pay_id": "8", "amount": "500.00", "sign": sign},
		{"pay_id": "7", "amount": "500.01", "sign": sign},
		{"pay_id": "7", "amount": "500.00", "sign": sign + "0"},
	}
	for i, fields := range mutations {
		fields["status"] = "paid"
		_, err := p.VerifyWebhook(fields)
		assert.ErrorIs(t, err, ErrBadSignature, "mutation %d", i)
	}
}

func TestAnypayWebhookSignFormat(t *testing.T) {
	p := newTestAnypay()

	// md5 от project_id:amount:pay_id:api_key
	sum := md5.Sum([]byte("42:500.00:7:super-secret"))
	assert.Equal(t, hex.EncodeToString(sum[:]), p.WebhookSign("500.00", "7"))
}

func TestAnypayWebhookMissingFields(t *testing.T) {
	p := newTestAnypay()

	_, err := p.VerifyWebhook(map[string]string{"amount": "500.00"})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestAnypayWebhookOutcomes(t *testing.T) {
	p := newTestAnypay()

	cases := map[string]Outcome{
		"paid":     OutcomePaid,
		"fail":     OutcomeFailed,
		"cancel":   OutcomeFailed,
		"waiting":  OutcomePending,
		"whatever": OutcomeUnrecognized,
	}
	for status, want := range cases {
		fields := map[string]string{
			"pay_id": "7",
			"amount": "100.00",
			"status": status,
			"sign":   p.WebhookSign("100.00", "7"),
		}
		event, err := p.VerifyWebhook(fields)
		require.NoError(t, err, status)
		assert.Equal(t, want, event.Outcome, status)
	}
}

func TestAnypayCreatePayment(t *testing.T) {
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		fmt.Fprint(w, `{"result":{"transaction_id":991,"payment_url":"https://anypay.io/pay/991"}}`)
	}))
	defer srv.Close()

	p := newTestAnypay()
	p.baseURL = srv.URL

	result, err := p.CreatePayment(context.Background(), CreateRequest{
		OrderID:     7,
		Amount:      500,
		Currency:    "RUB",
		Description: "Order #7",
	})
	require.NoError(t, err)
	assert.Equal(t, "991", result.ExternalID)
	assert.Equal(t, "https://anypay.io/pay/991", result.RedirectURL)

	assert.Equal(t, "7", gotForm["pay_id"])
	assert.Equal(t, "500.00", gotForm["amount"])
	assert.Equal(t, p.CreatePaymentSign("7", "500.00", "Order #7"), gotForm["sign"])
}

func TestAnypayCreatePaymentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":31,"message":"Incorrect sign"}}`)
	}))
	defer srv.Close()

	p := newTestAnypay()
	p.baseURL = srv.URL

	_, err := p.CreatePayment(context.Background(), CreateRequest{OrderID: 7, Amount: 500})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect sign")
}

func TestAnypayAckBody(t *testing.T) {
	p := newTestAnypay()
	contentType, body := p.AckBody()
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, "OK", body)
}
