package models

type OrderStatus string
type KeyStatus string

const (
	// Заказ: pending -> waiting -> {paid | failed};
	// cancelled достижим только административно, никогда из вебхука.
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusWaiting   OrderStatus = "waiting"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"

	// Ключ: available -> held -> sold -> activated -> expired;
	// held откатывается в available при неуспешной оплате.
	KeyStatusAvailable KeyStatus = "available"
	KeyStatusHeld      KeyStatus = "held"
	KeyStatusSold      KeyStatus = "sold"
	KeyStatusActivated KeyStatus = "activated"
	KeyStatusExpired   KeyStatus = "expired"
)

// Terminal сообщает, достиг ли заказ конечного статуса.
// paid терминален "вперед": из него нет возврата.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed || s == OrderStatusCancelled
}
