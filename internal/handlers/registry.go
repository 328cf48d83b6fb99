package handlers

// AppHandlers - контейнер готовых обработчиков для регистрации маршрутов
type AppHandlers struct {
	PublicHandler  *PublicHandler
	OrderHandler   *OrderHandler
	PaymentHandler *PaymentHandler
	AdminHandler   *AdminHandler
}
