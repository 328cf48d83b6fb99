package payment

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"

	"log/slog"
)

const anypayBaseURL = "https://anypay.io/api"

// AnypayProvider - адаптер AnyPay. Суммы в целых единицах валюты,
// подпись создания платежа - sha256 от конкатенации полей без разделителей,
// подпись вебхука - md5 от полей через двоеточие.
type AnypayProvider struct {
	projectID  string
	apiID      string
	apiKey     string
	currency   string
	method     string
	successURL string
	failURL    string
	baseURL    string
	client     *http.Client
}

func NewAnypayProvider(cfg *config.Config) *AnypayProvider {
	timeout := time.Duration(cfg.Anypay.TimeoutSeconds) * time.Second
	return &AnypayProvider{
		projectID:  cfg.Anypay.ProjectID,
		apiID:      cfg.Anypay.APIID,
		apiKey:     cfg.Anypay.APIKey,
		currency:   strings.ToUpper(strings.TrimSpace(cfg.Anypay.Currency)),
		method:     strings.ToLower(strings.TrimSpace(cfg.Anypay.Method)),
		successURL: cfg.Anypay.SuccessURL,
		failURL:    cfg.Anypay.FailURL,
		baseURL:    anypayBaseURL,
		client:     &http.Client{Timeout: timeout},
	}
}

func (p *AnypayProvider) Name() string { return "anypay" }

// CreatePaymentSign - подпись запроса create-payment:
// sha256("create-payment" + api_id + project_id + pay_id + amount + currency + desc + method + api_key).
// Сумма форматируется с двумя знаками и точкой, описание обрезается до 150 символов.
func (p *AnypayProvider) CreatePaymentSign(payID, amountStr, desc string) string {
	payload := "create-payment" +
		p.apiID +
		p.projectID +
		payID +
		amountStr +
		p.currency +
		desc +
		p.method +
		p.apiKey
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (p *AnypayProvider) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	payID := strconv.FormatUint(uint64(req.OrderID), 10)
	amountStr := fmt.Sprintf("%.2f", req.Amount)
	desc := req.Description
	if len(desc) > 150 {
		desc = desc[:150]
	}

	sign := p.CreatePaymentSign(payID, amountStr, desc)

	form := url.Values{}
	form.Set("project_id", p.projectID)
	form.Set("pay_id", payID)
	form.Set("amount", amountStr)
	form.Set("currency", p.currency)
	form.Set("desc", desc)
	form.Set("method", p.method)
	form.Set("sign", sign)
	if req.Customer != "" {
		form.Set("email", req.Customer)
	}
	if p.successURL != "" {
		form.Set("success_url", p.successURL)
	}
	if p.failURL != "" {
		form.Set("fail_url", p.failURL)
	}

	endpoint := fmt.Sprintf("%s/create-payment/%s", p.baseURL, p.apiID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	// Лог без подписи и ключа
	logger.CtxInfo(ctx, "Creating anypay payment",
		slog.String("pay_id", payID),
		slog.String("amount", amountStr),
		slog.String("currency", p.currency),
		slog.String("method", p.method))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anypay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("anypay response read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anypay http %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Result *struct {
			TransactionID json.Number `json:"transaction_id"`
			PaymentURL    string      `json:"payment_url"`
		} `json:"result"`
		Error *struct {
			Code    json.Number `json:"code"`
			Message string      `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("anypay malformed response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("anypay api error %s: %s", parsed.Error.Code.String(), parsed.Error.Message)
	}
	if parsed.Result == nil {
		return nil, fmt.Errorf("anypay unexpected response format")
	}

	return &CreateResult{
		ExternalID:  parsed.Result.TransactionID.String(),
		RedirectURL: parsed.Result.PaymentURL,
	}, nil
}

// WebhookSign - подпись уведомления: md5(project_id:amount:pay_id:api_key)
func (p *AnypayProvider) WebhookSign(amount, payID string) string {
	payload := p.projectID + ":" + amount + ":" + payID + ":" + p.apiKey
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (p *AnypayProvider) VerifyWebhook(fields map[string]string) (*Event, error) {
	payID := fields["pay_id"]
	sign := fields["sign"]
	if payID == "" || sign == "" {
		return nil, ErrMissingFields
	}

	expected := p.WebhookSign(fields["amount"], payID)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sign)) != 1 {
		return nil, ErrBadSignature
	}

	var outcome Outcome
	switch fields["status"] {
	case "paid":
		outcome = OutcomePaid
	case "fail", "cancel":
		outcome = OutcomeFailed
	case "waiting":
		outcome = OutcomePending
	default:
		outcome = OutcomeUnrecognized
	}

	amount, _ := strconv.ParseFloat(fields["amount"], 64)
	currency := fields["currency"]
	if currency == "" {
		currency = p.currency
	}

	return &Event{
		Provider:    p.Name(),
		ExternalID:  fields["transaction_id"],
		PayID:       payID,
		Outcome:     outcome,
		RawAmount:   amount,
		RawCurrency: strings.ToUpper(currency),
	}, nil
}

// AnyPay прекращает ретраи по телу "OK"
func (p *AnypayProvider) AckBody() (string, string) {
	return "text/plain", "OK"
}
