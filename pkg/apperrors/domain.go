package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для ошибок
бизнес-логики витрины: каталог, инвентарь ключей, заказы, оплата.
*/

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибка репозитория (gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// --- Каталог ---

var ErrProductNotFound = New(
	CodeNotFound,
	"catalog",
	"Product not found",
	http.StatusNotFound,
)

// ErrNoPrice - для (product, duration) нет ценового варианта
var ErrNoPrice = New(
	CodeNoPrice,
	"catalog",
	"No price variant for this product and duration",
	http.StatusNotFound,
)

// --- Инвентарь ключей ---

// ErrOutOfStock - нет доступных ключей; вызывающий показывает "sold out"
var ErrOutOfStock = New(
	CodeOutOfStock,
	"inventory",
	"No available keys for this product and duration",
	http.StatusConflict,
)

var ErrKeyNotFound = New(
	CodeNotFound,
	"inventory",
	"Key not found",
	http.StatusNotFound,
)

// ErrInvalidTransition - нарушение машины состояний. Это баг или гонка:
// логируется как error, операция прерывается без частичной записи.
func ErrInvalidTransition(domain, message string) *AppError {
	return New(CodeInvalidTransition, domain, message, http.StatusConflict)
}

// --- Активация ---

// ErrKeyNotSold - попытка активировать еще не проданный ключ
var ErrKeyNotSold = New(
	CodeKeyNotSold,
	"activation",
	"Key not sold",
	http.StatusBadRequest,
)

// ErrDeviceMismatch - ключ уже привязан к другому устройству
var ErrDeviceMismatch = New(
	CodeDeviceMismatch,
	"activation",
	"HWID mismatch",
	http.StatusForbidden,
)

// ErrKeyExpired - срок действия ключа истек
var ErrKeyExpired = New(
	CodeKeyExpired,
	"activation",
	"Key expired",
	http.StatusForbidden,
)

// --- Заказы ---

var ErrOrderNotFound = New(
	CodeNotFound,
	"orders",
	"Order not found",
	http.StatusNotFound,
)

// --- Платежи ---

// ErrInvalidWebhookSignature - подпись вебхука не сошлась.
// Событие не применяется; в лог уходят провайдер и ссылка на заказ,
// но никогда общий секрет.
var ErrInvalidWebhookSignature = New(
	CodeInvalidSignature,
	"payments",
	"Webhook signature verification failed",
	http.StatusBadRequest,
)

// ErrAdapterFailure - фабрика для сетевых/протокольных ошибок провайдера.
// Заказ полностью откатывается: строка удаляется, ключ освобождается.
func ErrAdapterFailure(err error, provider string) *AppError {
	return Wrap(err, CodeAdapterFailure, "payments",
		"Payment creation failed at provider "+provider, http.StatusBadGateway)
}
