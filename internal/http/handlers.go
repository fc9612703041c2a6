package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
)

// envelope es la forma común de todas las respuestas.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	c.JSON(http.StatusOK, envelope{Success: true, Data: items, Count: &n})
}

func respondFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// statusFor traduce la familia del error a un código HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOTPExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrTooManyAttempts), errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrDeliveryFailed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError responde con el mensaje del error si es conocido; los demás se
// registran y se ocultan detrás de un 500 genérico.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(op+" failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondFail(c, status, "internal server error")
		return
	}
	respondFail(c, status, err.Error())
}

// bindJSON decodifica el cuerpo y responde 400 si no es válido.
func bindJSON(c *gin.Context, logger *zap.Logger, op string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Warn("invalid "+op+" request", zap.Error(err))
		respondFail(c, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// bindOptionalJSON acepta un cuerpo vacío.
func bindOptionalJSON(c *gin.Context, logger *zap.Logger, op string, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, logger, op, dst)
}

type notesRequest struct {
	Notes string `json:"notes"`
}
