package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
	"projector-tracker/internal/service"
)

// AuthHandler expone registro, login y verificación.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewAuthHandler(logger *zap.Logger, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth}
}

type sessionPayload struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func newSessionPayload(res service.AuthResult) sessionPayload {
	return sessionPayload{User: res.User, Token: res.Session.Token, ExpiresAt: res.Session.ExpiresAt}
}

// Register maneja POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		Designation string `json:"designation"`
		Department  string `json:"department"`
	}
	if !bindJSON(c, h.logger, "register", &req) {
		return
	}

	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Designation: req.Designation,
		Department:  req.Department,
	})
	if err != nil {
		respondError(c, h.logger, "register", err)
		return
	}
	respond(c, http.StatusCreated, "registration successful, check your email to verify the account", res)
}

// Login maneja POST /api/auth/login. El identificador puede ser email o username.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier"`
		Email      string `json:"email"`
		Username   string `json:"username"`
		Password   string `json:"password" binding:"required"`
	}
	if !bindJSON(c, h.logger, "login", &req) {
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		identifier = req.Username
	}
	res, err := h.auth.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}
	respond(c, http.StatusOK, "login successful", newSessionPayload(res))
}

// RequestOTP maneja POST /api/auth/request-otp.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Name  string `json:"name"`
	}
	if !bindJSON(c, h.logger, "otp", &req) {
		return
	}

	delivery, err := h.auth.RequestOTP(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		respondError(c, h.logger, "request otp", err)
		return
	}
	respond(c, http.StatusOK, "verification code sent", delivery)
}

// VerifyOTP maneja POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email   string `json:"email" binding:"required"`
		Code    string `json:"code" binding:"required"`
		Purpose string `json:"purpose"`
		Name    string `json:"name"`
	}
	if !bindJSON(c, h.logger, "otp verify", &req) {
		return
	}

	res, err := h.auth.VerifyOTP(c.Request.Context(), service.VerifyOTPInput{
		Email:   req.Email,
		Code:    req.Code,
		Purpose: domain.OTPPurpose(req.Purpose),
		Name:    req.Name,
	})
	if err != nil {
		respondError(c, h.logger, "verify otp", err)
		return
	}
	respond(c, http.StatusOK, "code verified", newSessionPayload(res))
}

// ResendVerification maneja POST /api/auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Mode  string `json:"mode"`
	}
	if !bindJSON(c, h.logger, "resend verification", &req) {
		return
	}

	delivery, err := h.auth.ResendVerification(c.Request.Context(), req.Email, service.ResendMode(req.Mode))
	if err != nil {
		respondError(c, h.logger, "resend verification", err)
		return
	}
	respond(c, http.StatusOK, "verification sent", delivery)
}

// VerifyEmail maneja GET /api/auth/verify-email?token=.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondFail(c, http.StatusBadRequest, "token is required")
		return
	}
	res, err := h.auth.VerifyEmailLink(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, "verify email", err)
		return
	}
	respond(c, http.StatusOK, "email verified", newSessionPayload(res))
}

// Me maneja GET /api/auth/me y GET /api/users/me.
func (h *AuthHandler) Me(c *gin.Context) {
	actor, _ := GetActor(c)
	user, err := h.auth.Me(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, "me", err)
		return
	}
	respond(c, http.StatusOK, "", user)
}

// Logout maneja POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := bearerToken(c)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		respondError(c, h.logger, "logout", err)
		return
	}
	respond(c, http.StatusOK, "logged out", nil)
}
