package workers

import (
	"context"
	"time"

	"log/slog"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/internal/services"
)

// OrderWorker отменяет брошенные неоплаченные заказы и возвращает
// их ключи в пул. Вебхуки в cancelled не переводят - это единственный
// автоматический вход в административную отмену.
type OrderWorker struct {
	orders    repositories.OrderRepository
	orderSvc  *services.OrderService
	ttl       time.Duration
	interval  time.Duration
}

func NewOrderWorker(orders repositories.OrderRepository, orderSvc *services.OrderService, cfg *config.Config) *OrderWorker {
	return &OrderWorker{
		orders:   orders,
		orderSvc: orderSvc,
		ttl:      time.Duration(cfg.Payments.StaleOrderTTLHours) * time.Hour,
		interval: 1 * time.Hour,
	}
}

func (w *OrderWorker) Start(ctx context.Context) {
	go w.cancelStaleOrders(ctx)
}

func (w *OrderWorker) cancelStaleOrders(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Order worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OrderWorker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.ttl)
	stale, err := w.orders.FindStaleWaiting(cutoff)
	if err != nil {
		logger.Error("Failed to query stale orders", slog.String("error", err.Error()))
		return
	}

	for _, order := range stale {
		if err := w.orderSvc.AdminCancel(ctx, order.ID); err != nil {
			logger.Error("Failed to cancel stale order",
				slog.Uint64("order_id", uint64(order.ID)),
				slog.String("error", err.Error()))
			continue
		}
		logger.Info("Stale order cancelled",
			slog.Uint64("order_id", uint64(order.ID)),
			slog.Time("created_at", order.CreatedAt))
	}
}
