package http

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/panyu/myblog/core"
	"github.com/panyu/myblog/service"
)

// AuthHandlers contains HTTP handlers for the account and captcha endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

type validatable interface {
	Validate() error
}

// bind decodes and validates the JSON body, writing the reply on failure
func bind(c *gin.Context, req validatable) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondBadBody(c)
		return false
	}
	if err := req.Validate(); err != nil {
		respondInvalid(c, err)
		return false
	}
	return true
}

// ImageCaptcha issues a new image challenge
func (h *AuthHandlers) ImageCaptcha(c *gin.Context) {
	challenge, err := h.authService.IssueImageChallenge(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"captchaId": challenge.ID,
		"image":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(challenge.Image),
	})
}

// SendEmailCode emails a login or registration code
func (h *AuthHandlers) SendEmailCode(c *gin.Context) {
	var req SendCodeRequest
	if !bind(c, &req) {
		return
	}
	purpose := core.PurposeLogin
	if req.Purpose != "" {
		purpose = core.EmailPurpose(req.Purpose)
	}
	if err := h.authService.SendEmailCode(c.Request.Context(), req.Email, purpose); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.authService.Login(c.Request.Context(), req.Credentials(), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// AdminLogin handles the admin console login
func (h *AuthHandlers) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.authService.AdminLogin(c.Request.Context(), req.Credentials(), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// Register creates an account
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}
	profile, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Code:     req.EmailCaptcha,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, profile)
}

// CheckUsername reports whether a username is taken
func (h *AuthHandlers) CheckUsername(c *gin.Context) {
	username := c.Query("username")
	if err := validation.Validate(username, validation.Required); err != nil {
		respondInvalid(c, err)
		return
	}
	taken, err := h.authService.UsernameExists(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"exists": taken})
}

// CheckEmail reports whether an email address is taken
func (h *AuthHandlers) CheckEmail(c *gin.Context) {
	email := c.Query("email")
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		respondInvalid(c, err)
		return
	}
	taken, err := h.authService.EmailExists(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"exists": taken})
}

// ForgotPasswordSendCode emails a recovery code. The reply does not reveal
// whether the address belongs to an account.
func (h *AuthHandlers) ForgotPasswordSendCode(c *gin.Context) {
	var req RecoveryCodeRequest
	if !bind(c, &req) {
		return
	}
	if err := h.authService.SendEmailCode(c.Request.Context(), req.Email, core.PurposeRecovery); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// ForgotPasswordReset sets a new password using a recovery code
func (h *AuthHandlers) ForgotPasswordReset(c *gin.Context) {
	var req ResetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Logout revokes the presented token
func (h *AuthHandlers) Logout(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	if err := h.authService.Logout(c.Request.Context(), identity); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Info returns the caller's profile
func (h *AuthHandlers) Info(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	profile, err := h.authService.Profile(c.Request.Context(), identity.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, profile)
}

// ChangePassword replaces the caller's password
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	var req ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), identity.AccountID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Healthz is the liveness probe
func (h *AuthHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Message: "ok"})
}
