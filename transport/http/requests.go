package http

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/panyu/myblog/core"
)

var passwordRules = []validation.Rule{validation.Required, validation.Length(6, 64)}

// LoginRequest is the body of both login routes. Exactly one channel is used,
// chosen by which optional fields are present.
type LoginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	CaptchaID   string `json:"captchaId"`
	CaptchaCode string `json:"captchaCode"`
	Email       string `json:"email"`
	EmailCode   string `json:"emailCode"`
}

// Credentials selects the login channel: email code, then image captcha, then password.
func (r LoginRequest) Credentials() core.Credentials {
	switch {
	case r.Email != "" || r.EmailCode != "":
		return core.EmailCodeCredentials{Email: r.Email, Code: r.EmailCode}
	case r.CaptchaID != "" || r.CaptchaCode != "":
		return core.ImageCaptchaCredentials{
			Username:  r.Username,
			Password:  r.Password,
			CaptchaID: r.CaptchaID,
			Code:      r.CaptchaCode,
		}
	default:
		return core.PasswordCredentials{Username: r.Username, Password: r.Password}
	}
}

// Validate checks the fields of the selected channel. Empty answers are left to
// the attempt governor, where they count as wrong.
func (r LoginRequest) Validate() error {
	switch r.Credentials().(type) {
	case core.EmailCodeCredentials:
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
		)
	case core.ImageCaptchaCredentials:
		return validation.ValidateStruct(&r,
			validation.Field(&r.Username, validation.Required),
			validation.Field(&r.Password, validation.Required),
			validation.Field(&r.CaptchaID, validation.Required),
		)
	default:
		return validation.ValidateStruct(&r,
			validation.Field(&r.Username, validation.Required),
			validation.Field(&r.Password, validation.Required),
		)
	}
}

// RegisterRequest is the body of /user/register
type RegisterRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Email        string `json:"email"`
	EmailCaptcha string `json:"emailCaptcha"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 32)),
		validation.Field(&r.Password, passwordRules...),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.EmailCaptcha, validation.Required),
	)
}

// SendCodeRequest asks for an emailed code
type SendCodeRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

func (r SendCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Purpose, validation.In(string(core.PurposeLogin), string(core.PurposeRegister))),
	)
}

// RecoveryCodeRequest asks for a password recovery code
type RecoveryCodeRequest struct {
	Email string `json:"email"`
}

func (r RecoveryCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetPasswordRequest is the body of /user/forgot-password/reset
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required),
		validation.Field(&r.NewPassword, passwordRules...),
	)
}

// ChangePasswordRequest is the body of /user/change-password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, passwordRules...),
	)
}
