package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"accounts-api/internal/domain"
	"accounts-api/internal/service"
)

const authUserKey = "auth_user"

// TokenAuthMiddleware valida el header "Authorization: Token <key>" y guarda
// al usuario dueño del token en el contexto.
func TokenAuthMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authSvc == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			c.Abort()
			return
		}

		key, ok := tokenFromHeader(c.GetHeader("Authorization"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		user, err := authSvc.Resolve(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not authenticate"})
			}
			c.Abort()
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// GetAuthUser obtiene el usuario autenticado desde el contexto.
func GetAuthUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

// Acepta "Token <key>" y, por compatibilidad, "Bearer <key>".
func tokenFromHeader(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, key, found := strings.Cut(header, " ")
	if !found {
		return "", false
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
	default:
		return "", false
	}
	key = strings.TrimSpace(key)
	return key, key != ""
}

func normalizeParamEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
