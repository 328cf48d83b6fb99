package apperrors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyshop_backend/internal/logger"
)

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// HandleError - обработка ошибок для Gin контекста
func HandleError(c *gin.Context, err *AppError) {
	if err.HTTPCode >= 500 {
		logger.CtxWithError(c.Request.Context(), "Server error", err, "path", c.Request.URL.Path)
	}
	c.JSON(err.HTTPCode, ErrorResponse{Error: err})
}

// HandleAnyError приводит произвольную ошибку к AppError и отдает клиенту.
// Неизвестные ошибки наружу не раскрываются.
func HandleAnyError(c *gin.Context, err error) {
	var appErr *AppError
	if As(err, &appErr) {
		HandleError(c, appErr)
		return
	}
	logger.CtxWithError(c.Request.Context(), "Unhandled internal error", err, "path", c.Request.URL.Path)
	HandleError(c, New(CodeInternalError, "system", "Internal server error", http.StatusInternalServerError))
}
