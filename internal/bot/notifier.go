package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"
	"keyshop_backend/internal/repositories"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier доставляет купленный ключ покупателю в Telegram.
// Сбой доставки логируется и не влияет на зачисление платежа:
// проданный ключ остается проданным.
type Notifier struct {
	token    string
	apiBase  string
	orders   repositories.OrderRepository
	keys     repositories.KeyRepository
	products repositories.ProductRepository
	users    repositories.UserRepository
	client   *http.Client
}

func NewNotifier(
	cfg *config.Config,
	orders repositories.OrderRepository,
	keys repositories.KeyRepository,
	products repositories.ProductRepository,
	users repositories.UserRepository,
) *Notifier {
	return &Notifier{
		token:    cfg.Telegram.BotToken,
		apiBase:  telegramAPIBase,
		orders:   orders,
		keys:     keys,
		products: products,
		users:    users,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyPaid отправляет ключ и ссылку на актуальный билд.
// Запускается в отдельной горутине - settle ее не ждет.
func (n *Notifier) NotifyPaid(ctx context.Context, orderID uint) {
	if n.token == "" {
		return
	}
	go n.deliver(orderID)
}

func (n *Notifier) deliver(orderID uint) {
	order, err := n.orders.FindByID(orderID)
	if err != nil {
		logger.Error("Delivery: order lookup failed",
			slog.Uint64("order_id", uint64(orderID)),
			slog.String("error", err.Error()))
		return
	}
	if order.KeyID == nil {
		logger.Error("Delivery: paid order has no key",
			slog.Uint64("order_id", uint64(orderID)))
		return
	}

	key, err := n.keys.FindByID(*order.KeyID)
	if err != nil {
		logger.Error("Delivery: key lookup failed",
			slog.Uint64("order_id", uint64(orderID)),
			slog.String("error", err.Error()))
		return
	}

	user, err := n.users.FindByID(order.UserID)
	if err != nil {
		logger.Error("Delivery: user lookup failed",
			slog.Uint64("order_id", uint64(orderID)),
			slog.String("error", err.Error()))
		return
	}

	product, err := n.products.FindByID(order.ProductID)
	if err != nil {
		logger.Error("Delivery: product lookup failed",
			slog.Uint64("order_id", uint64(orderID)),
			slog.String("error", err.Error()))
		return
	}

	text := fmt.Sprintf(
		"Оплата получена!\n\nЗаказ: #%d\nПродукт: %s (%d дней)\n\nВаш ключ:\n%s",
		order.ID, product.Title, order.DurationDays, key.Value)

	if build, err := n.products.FindActiveBuild(order.ProductID); err == nil {
		text += fmt.Sprintf("\n\nЗагрузчик: %s", build.FilePath)
	}

	if err := n.sendMessage(user.TelegramID, text); err != nil {
		logger.Error("Delivery: telegram send failed",
			slog.Uint64("order_id", uint64(orderID)),
			slog.Int64("telegram_id", user.TelegramID),
			slog.String("error", err.Error()))
		return
	}

	logger.Info("Order delivered",
		slog.Uint64("order_id", uint64(orderID)),
		slog.Int64("telegram_id", user.TelegramID))
}

func (n *Notifier) sendMessage(chatID int64, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api http %d", resp.StatusCode)
	}
	return nil
}
