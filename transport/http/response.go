package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/panyu/myblog/core"
)

// Business codes carried in the response envelope
const (
	CodeOK                 = 200
	CodeInvalidRequest     = 400
	CodeUnauthorized       = 401
	CodeInternal           = 500
	CodeInvalidCredentials = 1001
	CodeChallenge          = 1002
	CodeLockedOut          = 1003
	CodeAccountDisabled    = 1004
	CodeAccessDenied       = 1005
	CodeConflict           = 1006
)

// Response is the envelope of every API reply
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Message: "success", Data: data})
}

func respondInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusOK, Response{Code: CodeInvalidRequest, Message: err.Error()})
}

func respondBadBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, Response{Code: CodeInvalidRequest, Message: "invalid request body"})
}

func respondUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Message: core.ErrUnauthorized.Error()})
}

// respondError maps a service error onto the envelope
func respondError(c *gin.Context, err error) {
	code, known := businessCode(err)
	if !known {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("http.internal_error")
		c.JSON(http.StatusInternalServerError, Response{Code: CodeInternal, Message: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, Response{Code: code, Message: err.Error()})
}

func businessCode(err error) (int, bool) {
	var wrong *core.WrongAnswerError
	switch {
	case errors.As(err, &wrong),
		errors.Is(err, core.ErrInvalidCaptcha),
		errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrAccountNotFound),
		errors.Is(err, core.ErrWrongPassword):
		return CodeInvalidCredentials, true
	case errors.Is(err, core.ErrChallengeExpired),
		errors.Is(err, core.ErrChallengeRequired):
		return CodeChallenge, true
	case errors.Is(err, core.ErrLockedOut):
		return CodeLockedOut, true
	case errors.Is(err, core.ErrAccountDisabled):
		return CodeAccountDisabled, true
	case errors.Is(err, core.ErrAccessDenied):
		return CodeAccessDenied, true
	case errors.Is(err, core.ErrUsernameTaken),
		errors.Is(err, core.ErrEmailTaken):
		return CodeConflict, true
	case errors.Is(err, core.ErrPasswordUnchanged):
		return CodeInvalidRequest, true
	case errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrTokenInvalidated),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrUnauthorized):
		return CodeUnauthorized, true
	}
	return 0, false
}
