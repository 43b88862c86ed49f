package core

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrMissingSecret    = errors.New("signing secret is missing or too short")

	ErrUnauthorized       = errors.New("unauthorized or token expired")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAccessDenied       = errors.New("access denied")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrPasswordUnchanged  = errors.New("new password must differ from the old one")
	ErrWrongPassword      = errors.New("old password is incorrect")

	ErrChallengeRequired = errors.New("verification key must not be empty")
	ErrChallengeExpired  = errors.New("verification code expired, please request a new one")
	ErrInvalidCaptcha    = errors.New("incorrect verification code")
	ErrLockedOut         = errors.New("too many incorrect attempts, please request a new code")

	ErrKeyNotFound = errors.New("key not found")
)

// WrongAnswerError is returned for a rejected answer that still has attempts left
type WrongAnswerError struct {
	Remaining int
}

func (e *WrongAnswerError) Error() string {
	return fmt.Sprintf("%s, %d attempts remaining", ErrInvalidCaptcha, e.Remaining)
}

func (e *WrongAnswerError) Unwrap() error {
	return ErrInvalidCaptcha
}
