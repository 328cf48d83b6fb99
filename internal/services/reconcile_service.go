package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"log/slog"

	"gorm.io/datatypes"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"
	"keyshop_backend/internal/models"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/internal/services/payment"
	"keyshop_backend/pkg/apperrors"
)

// Alerter уведомляет оператора о проблемных платежах.
// Вызывается асинхронно, сбой алерта на обработку не влияет.
type Alerter interface {
	PaymentAlert(subject, body string)
}

// ReconcileService - оркестрация вебхуков: верификация, маппинг исхода,
// идемпотентное применение к заказу. Собственного состояния нет.
type ReconcileService struct {
	registry   *payment.Registry
	orders     *OrderService
	orderRepo  repositories.OrderRepository
	events     repositories.WebhookEventRepository
	normalizer *payment.Normalizer
	alerter    Alerter
	cfg        *config.Config
}

func NewReconcileService(
	registry *payment.Registry,
	orders *OrderService,
	orderRepo repositories.OrderRepository,
	events repositories.WebhookEventRepository,
	normalizer *payment.Normalizer,
	alerter Alerter,
	cfg *config.Config,
) *ReconcileService {
	return &ReconcileService{
		registry:   registry,
		orders:     orders,
		orderRepo:  orderRepo,
		events:     events,
		normalizer: normalizer,
		alerter:    alerter,
		cfg:        cfg,
	}
}

// Handle обрабатывает сырой вебхук провайдера.
// Порядок жесткий: сначала подпись, потом любое чтение состояния заказа.
// Невалидная подпись - отказ без каких-либо изменений.
func (s *ReconcileService) Handle(ctx context.Context, providerName string, fields map[string]string) error {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return apperrors.NewBadRequestError("unknown payment provider")
	}

	event, err := provider.VerifyWebhook(fields)
	if err != nil {
		payRef := fields["pay_id"]
		if payRef == "" {
			payRef = fields["order_id"]
		}
		// Логируем провайдера и ссылку на заказ, но не секрет и не подпись
		logger.CtxWarn(ctx, "Webhook rejected",
			slog.String("provider", providerName),
			slog.String("pay_id", payRef),
			slog.String("reason", err.Error()))
		s.alert("Webhook rejected",
			fmt.Sprintf("Provider %s rejected a webhook: %v", providerName, err))
		return apperrors.ErrInvalidWebhookSignature
	}

	orderID64, err := strconv.ParseUint(event.PayID, 10, 64)
	if err != nil {
		return apperrors.NewBadRequestError("malformed order reference")
	}
	orderID := uint(orderID64)

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return apperrors.ErrOrderNotFound
		}
		return apperrors.InternalError(err)
	}

	s.audit(ctx, event, orderID, fields)

	// Сверка суммы: расхождение выше допуска - warning и алерт, не отказ.
	// Провайдерское округление ожидаемо и не должно блокировать зачисление.
	normalized := s.normalizer.Normalize(ctx, event.RawAmount, event.RawCurrency)
	if event.Outcome == payment.OutcomePaid && !s.normalizer.CheckAmount(order.Amount, normalized) {
		logger.CtxWarn(ctx, "Webhook amount diverges from order",
			slog.Uint64("order_id", uint64(orderID)),
			slog.Float64("order_amount", order.Amount),
			slog.Float64("webhook_amount", normalized),
			slog.String("provider", providerName))
		s.alert("Payment amount mismatch",
			fmt.Sprintf("Order %d expects %.2f %s, webhook reports %.2f (%s, raw %.2f %s)",
				orderID, order.Amount, order.Currency, normalized,
				providerName, event.RawAmount, event.RawCurrency))
	}

	switch event.Outcome {
	case payment.OutcomePaid, payment.OutcomeFailed:
		_, err := s.orders.Settle(ctx, orderID, event.Outcome)
		return err
	case payment.OutcomePending:
		// Промежуточный статус: подтверждаем получение, состояние не трогаем
		return nil
	default:
		logger.CtxWarn(ctx, "Unrecognized webhook outcome ignored",
			slog.String("provider", providerName),
			slog.Uint64("order_id", uint64(orderID)))
		return nil
	}
}

// audit пишет строку аудита вебхука; сбой аудита обработку не прерывает
func (s *ReconcileService) audit(ctx context.Context, event *payment.Event, orderID uint, fields map[string]string) {
	payload, err := json.Marshal(fields)
	if err != nil {
		payload = []byte("{}")
	}
	row := &models.WebhookEvent{
		Provider:   event.Provider,
		ExternalID: event.ExternalID,
		OrderID:    orderID,
		Result:     string(event.Outcome),
		Amount:     event.RawAmount,
		Currency:   event.RawCurrency,
		Payload:    datatypes.JSON(payload),
	}
	if err := s.events.Create(row); err != nil {
		logger.CtxError(ctx, "Failed to persist webhook audit row",
			slog.Uint64("order_id", uint64(orderID)),
			slog.String("error", err.Error()))
	}
}

func (s *ReconcileService) alert(subject, body string) {
	if s.alerter == nil {
		return
	}
	go s.alerter.PaymentAlert(subject, body)
}
