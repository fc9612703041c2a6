package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
)

const actorKey = "auth_actor"

// Authenticator resuelve un token de sesión a la identidad que lo porta.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Actor, error)
}

// SessionAuthMiddleware valida el token Bearer y guarda el actor en el contexto.
// Solo los errores de autenticación dan 401; una falla del almacén de sesiones
// se registra y responde 500.
func SessionAuthMiddleware(logger *zap.Logger, auth Authenticator) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if auth == nil {
			respondFail(c, http.StatusInternalServerError, "authentication not configured")
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			respondFail(c, http.StatusUnauthorized, "missing token")
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				respondFail(c, http.StatusUnauthorized, "invalid token")
				return
			}
			logger.Error("session lookup failed", zap.String("path", c.FullPath()), zap.Error(err))
			respondFail(c, http.StatusInternalServerError, "internal server error")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAdmin corta la petición si el actor no es administrador.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok || !actor.IsAdmin() {
			respondFail(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

// GetActor obtiene el actor autenticado desde el contexto.
func GetActor(c *gin.Context) (domain.Actor, bool) {
	val, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}
