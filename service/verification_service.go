package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/panyu/myblog/core"
)

// VerificationService answers "is this code correct, and how many tries are left"
type VerificationService struct {
	issuer   *CaptchaIssuer
	governor *AttemptGovernor
}

// NewVerificationService creates a new verification service
func NewVerificationService(issuer *CaptchaIssuer, governor *AttemptGovernor) *VerificationService {
	return &VerificationService{
		issuer:   issuer,
		governor: governor,
	}
}

// VerifyImage checks an answer to an image challenge
func (v *VerificationService) VerifyImage(ctx context.Context, captchaID, code string) error {
	if strings.TrimSpace(captchaID) == "" {
		return core.ErrChallengeRequired
	}
	return v.verify(ctx, v.issuer.ImageRef(captchaID), code)
}

// VerifyEmail checks an emailed code for address
func (v *VerificationService) VerifyEmail(ctx context.Context, address, code string) error {
	if NormalizeEmail(address) == "" {
		return core.ErrChallengeRequired
	}
	return v.verify(ctx, v.issuer.EmailRef(address), code)
}

func (v *VerificationService) verify(ctx context.Context, ref core.ChallengeRef, code string) error {
	expected, err := v.issuer.ExpectedAnswer(ctx, ref)
	if err != nil {
		return err
	}

	verdict, err := v.governor.CheckAndConsume(ctx, ref, code, expected)
	if err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx).With().
		Str("challenge", string(ref.Kind)).
		Str("outcome", verdict.Outcome.String()).
		Logger()

	switch verdict.Outcome {
	case core.OutcomeAccepted:
		logger.Debug().Msg("challenge.accepted")
		return nil
	case core.OutcomeLockedOut:
		logger.Warn().Msg("challenge.locked")
		return core.ErrLockedOut
	default:
		logger.Info().Int("remaining", verdict.Remaining).Msg("challenge.rejected")
		return &core.WrongAnswerError{Remaining: verdict.Remaining}
	}
}
