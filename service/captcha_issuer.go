package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/panyu/myblog/core"
	"github.com/panyu/myblog/ports"
)

const (
	// imageAlphabet leaves out 0/O, 1/I/L so rendered codes stay unambiguous
	imageAlphabet   = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	imageCodeLength = 4
	emailAlphabet   = "0123456789"
	emailCodeLength = 6

	imageAnswerPrefix  = "captcha:image:"
	imageCounterPrefix = "captcha:image:errors:"
	emailAnswerPrefix  = "captcha:email:"
	emailCounterPrefix = "captcha:email:errors:"
)

// CaptchaSettings holds challenge and lockout lifetimes
type CaptchaSettings struct {
	ImageTTL        time.Duration
	ImageLockoutTTL time.Duration
	EmailLockoutTTL time.Duration
}

// DefaultCaptchaSettings returns the stock lifetimes
func DefaultCaptchaSettings() CaptchaSettings {
	return CaptchaSettings{
		ImageTTL:        30 * time.Second,
		ImageLockoutTTL: 30 * time.Second,
		EmailLockoutTTL: time.Minute,
	}
}

// CaptchaIssuer generates challenge codes and stores their expected answers
type CaptchaIssuer struct {
	store    ports.KeyValueStore
	renderer ports.CaptchaRenderer
	settings CaptchaSettings
}

// NewCaptchaIssuer creates a new issuer
func NewCaptchaIssuer(store ports.KeyValueStore, renderer ports.CaptchaRenderer, settings CaptchaSettings) *CaptchaIssuer {
	return &CaptchaIssuer{
		store:    store,
		renderer: renderer,
		settings: settings,
	}
}

// IssueImageChallenge creates, renders and stores a new image challenge
func (i *CaptchaIssuer) IssueImageChallenge(ctx context.Context) (core.ImageChallenge, error) {
	code, err := randomCode(imageAlphabet, imageCodeLength)
	if err != nil {
		return core.ImageChallenge{}, err
	}

	img, err := i.renderer.Render(code)
	if err != nil {
		return core.ImageChallenge{}, fmt.Errorf("failed to render captcha: %w", err)
	}

	id := uuid.New().String()
	if err := i.store.Set(ctx, imageAnswerPrefix+id, code, i.settings.ImageTTL); err != nil {
		return core.ImageChallenge{}, fmt.Errorf("failed to store captcha: %w", err)
	}

	return core.ImageChallenge{ID: id, Answer: code, Image: img}, nil
}

// IssueEmailChallenge creates a numeric code for address and stores it for ttl.
// Any earlier code for the same address is replaced.
func (i *CaptchaIssuer) IssueEmailChallenge(ctx context.Context, address string, ttl time.Duration) (string, error) {
	address = NormalizeEmail(address)
	if address == "" {
		return "", core.ErrChallengeRequired
	}

	code, err := randomCode(emailAlphabet, emailCodeLength)
	if err != nil {
		return "", err
	}

	if err := i.store.Set(ctx, emailAnswerPrefix+emailDigest(address), code, ttl); err != nil {
		return "", fmt.Errorf("failed to store email code: %w", err)
	}
	return code, nil
}

// ImageRef addresses the image challenge with the given id
func (i *CaptchaIssuer) ImageRef(id string) core.ChallengeRef {
	return core.ChallengeRef{
		Kind:       core.ChallengeImage,
		AnswerKey:  imageAnswerPrefix + id,
		CounterKey: imageCounterPrefix + id,
		LockoutTTL: i.settings.ImageLockoutTTL,
		FoldCase:   true,
	}
}

// EmailRef addresses the email challenge for address
func (i *CaptchaIssuer) EmailRef(address string) core.ChallengeRef {
	digest := emailDigest(NormalizeEmail(address))
	return core.ChallengeRef{
		Kind:       core.ChallengeEmail,
		AnswerKey:  emailAnswerPrefix + digest,
		CounterKey: emailCounterPrefix + digest,
		LockoutTTL: i.settings.EmailLockoutTTL,
	}
}

// ExpectedAnswer loads the stored answer, core.ErrChallengeExpired when absent
func (i *CaptchaIssuer) ExpectedAnswer(ctx context.Context, ref core.ChallengeRef) (string, error) {
	answer, err := i.store.Get(ctx, ref.AnswerKey)
	if errors.Is(err, core.ErrKeyNotFound) || (err == nil && answer == "") {
		return "", core.ErrChallengeExpired
	}
	if err != nil {
		return "", fmt.Errorf("failed to load challenge: %w", err)
	}
	return answer, nil
}

// NormalizeEmail lower-cases and trims an address so case variants share a challenge slot
func NormalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func emailDigest(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func randomCode(alphabet string, length int) (string, error) {
	bound := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(length)
	for n := 0; n < length; n++ {
		idx, err := rand.Int(rand.Reader, bound)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String(), nil
}
