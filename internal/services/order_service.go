package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"
	"keyshop_backend/internal/models"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/internal/services/payment"
	"keyshop_backend/pkg/apperrors"
)

// Delivery - коллаборатор выдачи. Вызывается после успешного settle;
// сбой доставки логируется и никогда не откатывает зачисление.
type Delivery interface {
	NotifyPaid(ctx context.Context, orderID uint)
}

type OrderService struct {
	db        *gorm.DB
	orders    repositories.OrderRepository
	inventory *InventoryService
	catalog   *CatalogService
	delivery  Delivery
	cfg       *config.Config
}

func NewOrderService(
	db *gorm.DB,
	orders repositories.OrderRepository,
	inventory *InventoryService,
	catalog *CatalogService,
	delivery Delivery,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		db:        db,
		orders:    orders,
		inventory: inventory,
		catalog:   catalog,
		delivery:  delivery,
		cfg:       cfg,
	}
}

// Create резервирует ключ и создает pending-заказ в одной транзакции.
// Откат транзакции возвращает ключ в пул без отдельного release.
func (s *OrderService) Create(ctx context.Context, userID, productID uint, durationDays int) (*models.Order, error) {
	price, err := s.catalog.GetPrice(ctx, productID, durationDays)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		inv := s.inventory.WithTx(tx)
		key, err := inv.Reserve(ctx, productID, durationDays)
		if err != nil {
			return err
		}

		order = &models.Order{
			UserID:       userID,
			ProductID:    productID,
			DurationDays: durationDays,
			Amount:       price.Price,
			Currency:     s.cfg.Payments.SettlementCurrency,
			Provider:     s.cfg.Payments.DefaultProvider,
			Status:       models.OrderStatusPending,
			KeyID:        &key.ID,
		}
		if err := s.orders.WithTx(tx).Create(order); err != nil {
			return apperrors.InternalError(err)
		}

		// Обратная привязка ключа к заказу
		return tx.Model(&models.Key{}).Where("id = ?", key.ID).
			Update("order_id", order.ID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "Order created",
		slog.Uint64("order_id", uint64(order.ID)),
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("product_id", uint64(productID)),
		slog.Int("duration_days", durationDays))
	return order, nil
}

// BeginPayment запрашивает у провайдера ссылку на оплату.
// Успех: заказ переходит в waiting с provider_pay_id.
// Отказ или таймаут провайдера: заказ удаляется, ключ освобождается -
// обязательство перед провайдером не возникло, held-ключ держать нельзя.
func (s *OrderService) BeginPayment(ctx context.Context, order *models.Order, provider payment.Provider) (string, error) {
	product, err := s.catalog.products.FindByID(order.ProductID)
	if err != nil {
		return "", apperrors.InternalError(err)
	}

	req := payment.CreateRequest{
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Description: fmt.Sprintf("%s / %d days", product.Title, order.DurationDays),
	}

	result, createErr := provider.CreatePayment(ctx, req)
	if createErr != nil {
		logger.CtxError(ctx, "Payment creation failed, aborting order",
			slog.Uint64("order_id", uint64(order.ID)),
			slog.String("provider", provider.Name()),
			slog.String("error", createErr.Error()))

		if abortErr := s.abortPending(ctx, order); abortErr != nil {
			logger.CtxError(ctx, "Failed to abort pending order",
				slog.Uint64("order_id", uint64(order.ID)),
				slog.String("error", abortErr.Error()))
		}
		return "", apperrors.ErrAdapterFailure(createErr, provider.Name())
	}

	order.Provider = provider.Name()
	order.ProviderPayID = result.ExternalID
	order.PaymentURL = result.RedirectURL
	order.Status = models.OrderStatusWaiting
	if err := s.orders.Save(order); err != nil {
		return "", apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Order waiting for payment",
		slog.Uint64("order_id", uint64(order.ID)),
		slog.String("provider", provider.Name()),
		slog.String("provider_pay_id", result.ExternalID))
	return result.RedirectURL, nil
}

// abortPending удаляет pending-заказ и возвращает ключ в пул
func (s *OrderService) abortPending(ctx context.Context, order *models.Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if order.KeyID != nil {
			if err := s.inventory.WithTx(tx).Release(ctx, *order.KeyID); err != nil {
				return err
			}
		}
		return s.orders.WithTx(tx).Delete(order.ID)
	})
}

// Purchase - полный цикл инициации покупки: создание заказа и платежа
func (s *OrderService) Purchase(ctx context.Context, userID, productID uint, durationDays int, provider payment.Provider) (*models.Order, string, error) {
	order, err := s.Create(ctx, userID, productID, durationDays)
	if err != nil {
		return nil, "", err
	}
	url, err := s.BeginPayment(ctx, order, provider)
	if err != nil {
		return nil, "", err
	}
	return order, url, nil
}

// Settle применяет финальный исход платежа к заказу и его ключу.
// Идемпотентна: повторный вебхук с тем же исходом - no-op (provider retries).
// Переход заказа и ключа атомарен - одна транзакция с блокировкой строки заказа.
// Возвращает true, если переход был применен этим вызовом.
func (s *OrderService) Settle(ctx context.Context, orderID uint, outcome payment.Outcome) (bool, error) {
	var applied bool
	var deliver bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		order, err := orders.FindByIDForUpdate(orderID)
		if err != nil {
			if errors.Is(err, repositories.ErrOrderNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.InternalError(err)
		}

		if order.Status.Terminal() {
			logger.CtxInfo(ctx, "Settle on terminal order ignored",
				slog.Uint64("order_id", uint64(orderID)),
				slog.String("status", string(order.Status)),
				slog.String("outcome", string(outcome)))
			return nil
		}

		now := time.Now()
		inv := s.inventory.WithTx(tx)

		switch outcome {
		case payment.OutcomePaid:
			order.Status = models.OrderStatusPaid
			order.PaidAt = &now
			if order.KeyID != nil {
				if err := inv.FinalizeSale(ctx, *order.KeyID, order.UserID); err != nil {
					return err
				}
			}
			deliver = true
		case payment.OutcomeFailed:
			order.Status = models.OrderStatusFailed
			order.FailedAt = &now
			if order.KeyID != nil {
				if err := inv.Release(ctx, *order.KeyID); err != nil {
					return err
				}
			}
		default:
			return apperrors.NewBadRequestError(
				fmt.Sprintf("outcome %s cannot settle an order", outcome))
		}

		if err := orders.Save(order); err != nil {
			return apperrors.InternalError(err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if applied {
		logger.CtxInfo(ctx, "Order settled",
			slog.Uint64("order_id", uint64(orderID)),
			slog.String("outcome", string(outcome)))
	}

	// Доставка после коммита; ее сбой зачисление не откатывает
	if deliver && s.delivery != nil {
		s.delivery.NotifyPaid(ctx, orderID)
	}
	return applied, nil
}

// AdminCancel отменяет нетерминальный заказ и возвращает ключ в пул.
// Доступна только административно, вебхуки сюда не попадают.
func (s *OrderService) AdminCancel(ctx context.Context, orderID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		order, err := orders.FindByIDForUpdate(orderID)
		if err != nil {
			if errors.Is(err, repositories.ErrOrderNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.InternalError(err)
		}

		if order.Status.Terminal() {
			return apperrors.ErrInvalidTransition("order",
				fmt.Sprintf("cannot cancel order in status %s", order.Status))
		}

		if order.KeyID != nil {
			if err := s.inventory.WithTx(tx).Release(ctx, *order.KeyID); err != nil {
				return err
			}
		}

		order.Status = models.OrderStatusCancelled
		return orders.Save(order)
	})
	if err != nil {
		return err
	}

	logger.CtxInfo(ctx, "Order cancelled", slog.Uint64("order_id", uint64(orderID)))
	return nil
}

// GetByID возвращает заказ
func (s *OrderService) GetByID(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.orders.FindByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return order, nil
}
