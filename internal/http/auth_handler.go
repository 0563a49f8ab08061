package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounts-api/internal/domain"
	"accounts-api/internal/service"
)

const (
	msgPasswordMismatch = "Passwords didn't match"
	msgUserNotFound     = "User with given email does not exist"
	msgInvalidToken     = "Invalid Token"
)

// AuthHandler agrupa login, validacion de token y los links de email.
type AuthHandler struct {
	logger           *zap.Logger
	authServ         *service.AuthService
	verificationServ *service.VerificationService
	maskUnknownEmail bool
}

// NewAuthHandler crea un AuthHandler. Con maskUnknownEmail los endpoints de
// envio de links responden igual exista o no la cuenta.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, verificationServ *service.VerificationService, maskUnknownEmail bool) *AuthHandler {
	return &AuthHandler{
		logger:           logger,
		authServ:         authServ,
		verificationServ: verificationServ,
		maskUnknownEmail: maskUnknownEmail,
	}
}

// Login maneja POST /token/.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email,min=3,max=255"`
		Password string `json:"password" binding:"required,min=8,max=68"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	payload, err := h.authServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed, invalid credentials"})
		case errors.Is(err, service.ErrAccountNotActive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "User is blocked, please contact admin."})
		case errors.Is(err, service.ErrEmailNotVerified):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is not verified, please verify your email."})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		}
		return
	}

	c.JSON(http.StatusOK, payload)
}

type verifiedTokenResponse struct {
	Status string `json:"status"`
	domain.TokenPayload
}

// VerifyToken maneja POST /verify-token/.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify token request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	payload, err := h.authServ.VerifyToken(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			c.JSON(http.StatusOK, gin.H{"status": msgInvalidToken})
			return
		}
		h.logger.Error("verify token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify token"})
		return
	}

	c.JSON(http.StatusOK, verifiedTokenResponse{Status: "Valid Token", TokenPayload: payload})
}

// VerifyEmail maneja GET /verify-email/:token/.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	snapshot, err := h.verificationServ.ConfirmVerification(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"status": msgInvalidToken})
			return
		}
		h.logger.Error("verify email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Email successfully verified", "user": snapshot})
}

// SendVerificationEmail maneja POST /send-verification-email/.
func (h *AuthHandler) SendVerificationEmail(c *gin.Context) {
	emailAddr, ok := h.bindEmail(c)
	if !ok {
		return
	}
	err := h.verificationServ.RequestVerification(c.Request.Context(), emailAddr)
	h.writeLinkResult(c, err, "Email verification sent successfully")
}

// SendPasswordResetLink maneja POST /send-password-reset-link/.
func (h *AuthHandler) SendPasswordResetLink(c *gin.Context) {
	emailAddr, ok := h.bindEmail(c)
	if !ok {
		return
	}
	err := h.verificationServ.RequestReset(c.Request.Context(), emailAddr)
	h.writeLinkResult(c, err, "Reset email sent successfully")
}

// CheckResetToken maneja GET /reset-password/:token/.
func (h *AuthHandler) CheckResetToken(c *gin.Context) {
	status, err := h.verificationServ.CheckResetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "Invalid token, please try again"})
			return
		}
		h.logger.Error("check reset token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check token"})
		return
	}

	if status == service.ResetTokenUserGone {
		c.JSON(http.StatusOK, gin.H{"status": "Invalid token, user no longer exists in our system, please contact customer support"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(status)})
}

// ResetPassword maneja POST /reset-password/:token/.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Password        string `json:"password" binding:"required,max=250"`
		ConfirmPassword string `json:"confirm_password" binding:"required,max=250"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.verificationServ.ConfirmReset(c.Request.Context(), c.Param("token"), req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgPasswordMismatch})
		case errors.Is(err, service.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidToken):
			c.JSON(http.StatusBadRequest, gin.H{"status": "Invalid token, please try again"})
		default:
			h.logger.Error("reset password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Password successfully reset"})
}

func (h *AuthHandler) bindEmail(c *gin.Context) (string, bool) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid link request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return "", false
	}
	return req.Email, true
}

func (h *AuthHandler) writeLinkResult(c *gin.Context, err error, okStatus string) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": okStatus})
	case errors.Is(err, service.ErrUserNotFound):
		if h.maskUnknownEmail {
			c.JSON(http.StatusOK, gin.H{"status": okStatus})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"status": msgUserNotFound})
	case errors.Is(err, service.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, service.ErrEmailSendFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
	default:
		h.logger.Error("send link failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send email"})
	}
}
