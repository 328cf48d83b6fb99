package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	// Системные и неизвестные ошибки
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Общие ошибки бизнес-логики
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Аутентификация и авторизация
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"

	// Инвентарь ключей и заказы
	CodeOutOfStock        ErrorCode = "OUT_OF_STOCK"
	CodeNoPrice           ErrorCode = "NO_PRICE"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// Активация ключей
	CodeKeyNotSold     ErrorCode = "KEY_NOT_SOLD"
	CodeDeviceMismatch ErrorCode = "DEVICE_MISMATCH"
	CodeKeyExpired     ErrorCode = "KEY_EXPIRED"

	// Платежные провайдеры
	CodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	CodeAdapterFailure   ErrorCode = "ADAPTER_FAILURE"
)
