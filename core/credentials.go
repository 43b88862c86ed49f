package core

// Channel identifies how a login attempt proves its legitimacy
type Channel string

const (
	ChannelPassword     Channel = "password"
	ChannelImageCaptcha Channel = "image_captcha"
	ChannelEmailCode    Channel = "email_code"
)

// Credentials is one of PasswordCredentials, ImageCaptchaCredentials or EmailCodeCredentials.
type Credentials interface {
	Channel() Channel
}

// PasswordCredentials is a plain username/password login
type PasswordCredentials struct {
	Username string
	Password string
}

func (PasswordCredentials) Channel() Channel { return ChannelPassword }

// ImageCaptchaCredentials is a username/password login gated by an image challenge
type ImageCaptchaCredentials struct {
	Username  string
	Password  string
	CaptchaID string
	Code      string
}

func (ImageCaptchaCredentials) Channel() Channel { return ChannelImageCaptcha }

// EmailCodeCredentials is a passwordless login with a code sent by email
type EmailCodeCredentials struct {
	Email string
	Code  string
}

func (EmailCodeCredentials) Channel() Channel { return ChannelEmailCode }
