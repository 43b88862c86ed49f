package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/panyu/myblog/core"
	"github.com/panyu/myblog/ports"
)

// CodeSettings holds the lifetime of emailed codes per purpose
type CodeSettings struct {
	LoginTTL    time.Duration
	RecoveryTTL time.Duration
}

// DefaultCodeSettings returns the stock lifetimes
func DefaultCodeSettings() CodeSettings {
	return CodeSettings{
		LoginTTL:    time.Minute,
		RecoveryTTL: 3 * time.Minute,
	}
}

// RegisterInput carries a self-service registration
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Code     string
}

// AuthService handles authentication business logic
type AuthService struct {
	accounts  ports.AccountRepository
	tokenizer ports.Tokenizer
	ledger    *RevocationLedger
	issuer    *CaptchaIssuer
	verifier  *VerificationService
	mail      ports.MailQueue
	eventPub  ports.EventPublisher
	hasher    PasswordHasher

	codes CodeSettings
	now   func() time.Time
}

// AuthDeps groups the collaborators of an AuthService
type AuthDeps struct {
	Accounts  ports.AccountRepository
	Tokenizer ports.Tokenizer
	Ledger    *RevocationLedger
	Issuer    *CaptchaIssuer
	Verifier  *VerificationService
	Mail      ports.MailQueue
	Events    ports.EventPublisher
	Hasher    PasswordHasher
	Codes     CodeSettings
}

// NewAuthService creates a new authentication service
func NewAuthService(deps AuthDeps) *AuthService {
	codes := deps.Codes
	if codes.LoginTTL <= 0 || codes.RecoveryTTL <= 0 {
		codes = DefaultCodeSettings()
	}
	return &AuthService{
		accounts:  deps.Accounts,
		tokenizer: deps.Tokenizer,
		ledger:    deps.Ledger,
		issuer:    deps.Issuer,
		verifier:  deps.Verifier,
		mail:      deps.Mail,
		eventPub:  deps.Events,
		hasher:    deps.Hasher,
		codes:     codes,
		now:       time.Now,
	}
}

// Login authenticates creds and mints an access token
func (s *AuthService) Login(ctx context.Context, creds core.Credentials, origin string) (*core.LoginResult, error) {
	result, _, err := s.login(ctx, creds, origin)
	return result, err
}

// AdminLogin is Login restricted to privileged accounts. Valid credentials of
// an ordinary account are rejected with core.ErrAccessDenied.
func (s *AuthService) AdminLogin(ctx context.Context, creds core.Credentials, origin string) (*core.LoginResult, error) {
	result, account, err := s.login(ctx, creds, origin)
	if err != nil {
		return nil, err
	}
	if !account.Privileged() {
		zerolog.Ctx(ctx).Warn().Int64("account_id", account.ID).Msg("login.admin_denied")
		return nil, core.ErrAccessDenied
	}
	return result, nil
}

func (s *AuthService) login(ctx context.Context, creds core.Credentials, origin string) (*core.LoginResult, *core.Account, error) {
	logger := zerolog.Ctx(ctx).With().Str("channel", string(channelOf(creds))).Logger()

	account, err := s.authenticate(ctx, creds)
	if err != nil {
		logger.Info().Err(err).Msg("login.rejected")
		return nil, nil, err
	}

	if account.Status != core.StatusEnabled {
		logger.Info().Int64("account_id", account.ID).Msg("login.disabled")
		return nil, nil, core.ErrAccountDisabled
	}

	// best effort, a failed bookkeeping write does not block the login
	if err := s.accounts.RecordLogin(ctx, account.ID, s.now(), origin); err != nil {
		logger.Warn().Err(err).Int64("account_id", account.ID).Msg("login.record_failed")
	}

	token, err := s.tokenizer.Mint(strconv.FormatInt(account.ID, 10))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create access token: %w", err)
	}

	logger.Info().Int64("account_id", account.ID).Msg("login.succeeded")
	return &core.LoginResult{Token: token, Profile: account.Profile()}, account, nil
}

// authenticate runs the captcha gate, if any, strictly before the account lookup
func (s *AuthService) authenticate(ctx context.Context, creds core.Credentials) (*core.Account, error) {
	switch c := creds.(type) {
	case core.EmailCodeCredentials:
		if err := s.verifier.VerifyEmail(ctx, c.Email, c.Code); err != nil {
			return nil, err
		}
		account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(c.Email))
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return account, err

	case core.ImageCaptchaCredentials:
		if err := s.verifier.VerifyImage(ctx, c.CaptchaID, c.Code); err != nil {
			return nil, err
		}
		return s.checkPassword(ctx, c.Username, c.Password)

	case core.PasswordCredentials:
		return s.checkPassword(ctx, c.Username, c.Password)

	default:
		return nil, fmt.Errorf("unsupported credentials %T: %w", creds, core.ErrInvalidCredentials)
	}
}

// checkPassword reports a missing account and a wrong password identically
func (s *AuthService) checkPassword(ctx context.Context, username, password string) (*core.Account, error) {
	account, err := s.accounts.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrAccountNotFound) {
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := s.hasher.Compare(password, account.PasswordHash); err != nil {
		if !errors.Is(err, core.ErrInvalidCredentials) {
			zerolog.Ctx(ctx).Error().Err(err).Int64("account_id", account.ID).Msg("login.bad_hash")
		}
		return nil, core.ErrInvalidCredentials
	}
	return account, nil
}

// Logout revokes the caller's token until it would have expired anyway
func (s *AuthService) Logout(ctx context.Context, identity core.Identity) error {
	if err := s.ledger.Revoke(ctx, identity.Token); err != nil {
		return err
	}

	// The ledger is authoritative; the event only informs other instances
	if s.eventPub != nil {
		accountID := strconv.FormatInt(identity.AccountID, 10)
		if err := s.eventPub.PublishLogout(ctx, accountID, tokenDigest(identity.Token)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("logout.publish_failed")
		}
	}
	return nil
}

// ValidateAccessToken resolves a bearer token into an identity. A failed
// revocation lookup is returned as an error, never as "not revoked".
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (core.Identity, error) {
	subject, err := s.tokenizer.Verify(token)
	if err != nil {
		return core.Identity{}, err
	}

	revoked, err := s.ledger.IsRevoked(ctx, token)
	if err != nil {
		return core.Identity{}, err
	}
	if revoked {
		return core.Identity{}, core.ErrTokenInvalidated
	}

	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		return core.Identity{}, core.ErrInvalidToken
	}
	return core.Identity{AccountID: id, Token: token}, nil
}

// SendEmailCode issues an email challenge and queues it for delivery.
// Recovery codes go out only for registered addresses, but the caller cannot
// tell the difference.
func (s *AuthService) SendEmailCode(ctx context.Context, address string, purpose core.EmailPurpose) error {
	address = NormalizeEmail(address)
	if address == "" {
		return core.ErrChallengeRequired
	}
	logger := zerolog.Ctx(ctx).With().Str("purpose", string(purpose)).Logger()

	ttl := s.codes.LoginTTL
	if purpose == core.PurposeRecovery {
		ttl = s.codes.RecoveryTTL

		_, err := s.accounts.FindByEmail(ctx, address)
		if errors.Is(err, core.ErrAccountNotFound) {
			logger.Info().Msg("code.skipped_unknown_address")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load account: %w", err)
		}
	}

	code, err := s.issuer.IssueEmailChallenge(ctx, address, ttl)
	if err != nil {
		return err
	}

	if err := s.mail.Enqueue(ctx, codeMessage(address, code, purpose, ttl)); err != nil {
		return fmt.Errorf("failed to queue verification email: %w", err)
	}

	logger.Info().Msg("code.queued")
	return nil
}

// Register creates an ordinary account after verifying the emailed code
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*core.Profile, error) {
	email := NormalizeEmail(in.Email)
	if err := s.verifier.VerifyEmail(ctx, email, in.Code); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	if exists, err := s.UsernameExists(ctx, username); err != nil {
		return nil, err
	} else if exists {
		return nil, core.ErrUsernameTaken
	}
	if exists, err := s.EmailExists(ctx, email); err != nil {
		return nil, err
	} else if exists {
		return nil, core.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &core.Account{
		Username:     username,
		Nickname:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         core.RoleUser,
		Status:       core.StatusEnabled,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	zerolog.Ctx(ctx).Info().Int64("account_id", account.ID).Msg("account.registered")
	profile := account.Profile()
	return &profile, nil
}

// ResetPassword sets a new password after verifying the emailed recovery code
func (s *AuthService) ResetPassword(ctx context.Context, address, code, newPassword string) error {
	address = NormalizeEmail(address)
	if err := s.verifier.VerifyEmail(ctx, address, code); err != nil {
		return err
	}

	account, err := s.accounts.FindByEmail(ctx, address)
	if errors.Is(err, core.ErrAccountNotFound) {
		return core.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	return s.setPassword(ctx, account.ID, newPassword)
}

// ChangePassword replaces the password of the calling account
func (s *AuthService) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(oldPassword, account.PasswordHash); err != nil {
		return core.ErrWrongPassword
	}
	if s.hasher.Compare(newPassword, account.PasswordHash) == nil {
		return core.ErrPasswordUnchanged
	}

	return s.setPassword(ctx, account.ID, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, accountID int64, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int64("account_id", accountID).Msg("account.password_changed")
	return nil
}

// Profile returns the public profile of accountID
func (s *AuthService) Profile(ctx context.Context, accountID int64) (*core.Profile, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	profile := account.Profile()
	return &profile, nil
}

// UsernameExists reports whether username is taken
func (s *AuthService) UsernameExists(ctx context.Context, username string) (bool, error) {
	return exists(s.accounts.FindByUsername(ctx, strings.TrimSpace(username)))
}

// EmailExists reports whether address is taken
func (s *AuthService) EmailExists(ctx context.Context, address string) (bool, error) {
	return exists(s.accounts.FindByEmail(ctx, NormalizeEmail(address)))
}

// IssueImageChallenge exposes the issuer to the transport layer
func (s *AuthService) IssueImageChallenge(ctx context.Context) (core.ImageChallenge, error) {
	return s.issuer.IssueImageChallenge(ctx)
}

func exists(account *core.Account, err error) (bool, error) {
	if errors.Is(err, core.ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load account: %w", err)
	}
	return account != nil, nil
}

func channelOf(creds core.Credentials) core.Channel {
	if creds == nil {
		return ""
	}
	return creds.Channel()
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

func codeMessage(address, code string, purpose core.EmailPurpose, ttl time.Duration) core.EmailMessage {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if purpose == core.PurposeRecovery {
		return core.EmailMessage{
			To:      address,
			Subject: "MyBlog - password recovery code",
			Body: fmt.Sprintf("Your password recovery code is: %s\n\nValid for %d minute(s).\n\nDo not share this code with anyone.",
				code, minutes),
			Type: core.EmailTypeForgotPassword,
		}
	}
	return core.EmailMessage{
		To:      address,
		Subject: "MyBlog - verification code",
		Body:    fmt.Sprintf("Your verification code is: %s\n\nValid for %d minute(s).", code, minutes),
		Type:    core.EmailTypeCaptcha,
	}
}
