package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounts-api/internal/service"
)

// UserHandler mantiene dependencias para endpoints de cuentas.
type UserHandler struct {
	logger      *zap.Logger
	accountServ *service.AccountService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, accountServ *service.AccountService) *UserHandler {
	return &UserHandler{
		logger:      logger,
		accountServ: accountServ,
	}
}

// ListUsers maneja GET /all/.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.accountServ.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// Register maneja POST /register/.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required,email,max=254"`
		Password        string `json:"password" binding:"required,max=250"`
		ConfirmPassword string `json:"confirm_password" binding:"required,max=250"`
		FirstName       string `json:"first_name" binding:"required,max=250"`
		LastName        string `json:"last_name" binding:"required,max=50"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.accountServ.Register(c.Request.Context(), service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgPasswordMismatch})
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user with this email already exists"})
		case errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrInvalidPassword),
			errors.Is(err, service.ErrInvalidProfile):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register user"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":            "Verify your email",
		"user":              res.User,
		"verification_sent": res.VerificationSent,
	})
}

// GetUser maneja GET /user/:email/.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.accountServ.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.writeLookupError(c, err, "get user failed")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser maneja PATCH y PUT /user/update/:email/.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	var req struct {
		FirstName *string `json:"first_name" binding:"omitempty,max=250"`
		LastName  *string `json:"last_name" binding:"omitempty,max=50"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if c.Request.Method == http.MethodPut && (req.FirstName == nil || req.LastName == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "first_name and last_name are required"})
		return
	}

	user, err := h.accountServ.Update(c.Request.Context(), c.Param("email"), service.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidProfile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.writeLookupError(c, err, "update user failed")
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser maneja DELETE /user/:email/.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	if err := h.accountServ.Delete(c.Request.Context(), c.Param("email")); err != nil {
		h.writeLookupError(c, err, "delete user failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// APIRoot maneja GET /.
func (h *UserHandler) APIRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"all-users":                "/all/",
		"registration":             "/register/",
		"retrieve-user":            "/user/{email}/",
		"update-user":              "/user/update/{email}/",
		"token":                    "/token/",
		"verify-token":             "/verify-token/",
		"verify-email":             "/verify-email/{token}/",
		"send-verification-email":  "/send-verification-email/",
		"send-password-reset-link": "/send-password-reset-link/",
		"reset-password":           "/reset-password/{token}/",
	})
}

// authorize exige que el usuario autenticado sea el dueño de la cuenta o staff.
func (h *UserHandler) authorize(c *gin.Context) bool {
	actor, ok := GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return false
	}
	if actor.IsStaff || actor.Email == normalizeParamEmail(c.Param("email")) {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	return false
}

func (h *UserHandler) writeLookupError(c *gin.Context, err error, logMsg string) {
	if errors.Is(err, service.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	h.logger.Error(logMsg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
