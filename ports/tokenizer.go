package ports

import "time"

// Tokenizer mints and verifies signed identity tokens
type Tokenizer interface {
	Mint(subject string) (string, error)

	// Verify returns the subject of a well-formed, correctly signed, unexpired token
	Verify(token string) (string, error)

	// ExpiresAt decodes the expiry without checking the signature
	ExpiresAt(token string) (time.Time, error)
}
