package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounts-api/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas de cuentas.
func NewRouter(
	logger *zap.Logger,
	userH *UserHandler,
	authH *AuthHandler,
	authSvc *service.AuthService,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	requireToken := TokenAuthMiddleware(authSvc)

	r.GET("/", userH.APIRoot)
	r.GET("/all/", userH.ListUsers)
	r.POST("/register/", userH.Register)
	r.GET("/user/:email/", userH.GetUser)
	r.DELETE("/user/:email/", requireToken, userH.DeleteUser)
	r.PATCH("/user/update/:email/", requireToken, userH.UpdateUser)
	r.PUT("/user/update/:email/", requireToken, userH.UpdateUser)

	r.POST("/token/", authH.Login)
	r.POST("/verify-token/", authH.VerifyToken)
	r.GET("/verify-email/:token/", authH.VerifyEmail)
	r.POST("/send-verification-email/", authH.SendVerificationEmail)
	r.POST("/send-password-reset-link/", authH.SendPasswordResetLink)
	r.GET("/reset-password/:token/", authH.CheckResetToken)
	r.POST("/reset-password/:token/", authH.ResetPassword)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
