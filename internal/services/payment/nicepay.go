package payment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"

	"log/slog"
)

const nicepayAPIURL = "https://nicepay.io/public/api/payment"

// NicepayProvider - адаптер NicePay. Суммы в минорных единицах (копейки),
// подпись вебхука - sha256 от значений полей, отсортированных по имени ключа
// и склеенных через "{np}", с секретом в конце.
type NicepayProvider struct {
	merchantID string
	secretKey  string
	apiURL     string
	client     *http.Client
}

func NewNicepayProvider(cfg *config.Config) *NicepayProvider {
	timeout := time.Duration(cfg.Nicepay.TimeoutSeconds) * time.Second
	return &NicepayProvider{
		merchantID: strings.TrimSpace(cfg.Nicepay.MerchantID),
		secretKey:  strings.TrimSpace(cfg.Nicepay.SecretKey),
		apiURL:     nicepayAPIURL,
		client:     &http.Client{Timeout: timeout},
	}
}

func (p *NicepayProvider) Name() string { return "nicepay" }

func (p *NicepayProvider) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	orderID := strconv.FormatUint(uint64(req.OrderID), 10)
	amountCents := int64(math.Round(req.Amount * 100))

	payload := map[string]interface{}{
		"merchant_id": p.merchantID,
		"secret":      p.secretKey,
		"order_id":    orderID,
		"customer":    req.Customer,
		"amount":      amountCents,
		"currency":    strings.ToUpper(req.Currency),
	}
	if req.Description != "" {
		desc := req.Description
		if len(desc) > 150 {
			desc = desc[:150]
		}
		payload["description"] = desc
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	logger.CtxInfo(ctx, "Creating nicepay payment",
		slog.String("order_id", orderID),
		slog.Int64("amount_cents", amountCents),
		slog.String("currency", strings.ToUpper(req.Currency)))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nicepay request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nicepay response read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nicepay http %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Status string `json:"status"`
		Data   struct {
			PaymentID string `json:"payment_id"`
			Link      string `json:"link"`
			Message   string `json:"message"`
			Code      int    `json:"code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("nicepay malformed response: %w", err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("nicepay api error: %s (code %d)", parsed.Data.Message, parsed.Data.Code)
	}

	return &CreateResult{
		ExternalID:  parsed.Data.PaymentID,
		RedirectURL: parsed.Data.Link,
	}, nil
}

// WebhookHash считает подпись по всем полям кроме "hash":
// значения сортируются по имени ключа, секрет добавляется последним,
// все склеивается через "{np}" и хешируется sha256.
func (p *NicepayProvider) WebhookHash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		values = append(values, fields[k])
	}
	values = append(values, p.secretKey)

	sum := sha256.Sum256([]byte(strings.Join(values, "{np}")))
	return hex.EncodeToString(sum[:])
}

func (p *NicepayProvider) VerifyWebhook(fields map[string]string) (*Event, error) {
	received := fields["hash"]
	if received == "" || fields["order_id"] == "" {
		return nil, ErrMissingFields
	}

	expected := p.WebhookHash(fields)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return nil, ErrBadSignature
	}

	var outcome Outcome
	switch fields["result"] {
	case "success":
		outcome = OutcomePaid
	case "error":
		outcome = OutcomeFailed
	default:
		outcome = OutcomeUnrecognized
	}

	// Сумма приходит в минорных единицах
	amountCents, _ := strconv.ParseFloat(fields["amount"], 64)

	return &Event{
		Provider:    p.Name(),
		ExternalID:  fields["payment_id"],
		PayID:       fields["order_id"],
		Outcome:     outcome,
		RawAmount:   amountCents / 100,
		RawCurrency: strings.ToUpper(fields["currency"]),
	}, nil
}

// NicePay прекращает ретраи по JSON-телу {"result":{"message":"Success"}}
func (p *NicepayProvider) AckBody() (string, string) {
	return "application/json", `{"result":{"message":"Success"}}`
}
