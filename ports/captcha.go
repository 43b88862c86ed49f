package ports

// CaptchaRenderer draws an answer code into an encoded image
type CaptchaRenderer interface {
	Render(code string) ([]byte, error)
}
