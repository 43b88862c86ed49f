package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/panyu/myblog/core"
	"github.com/panyu/myblog/ports"
)

// DefaultMaxAttempts is the number of answers a challenge accepts before locking
const DefaultMaxAttempts = 3

// AttemptGovernor bounds the number of answers compared against a challenge.
//
// Each submission first reserves an attempt with the store's atomic
// IncrBelow, so concurrent wrong guesses cannot both observe the same count.
// Once the limit is reached no further comparison happens until the counter's
// ttl lapses: the lockout is a rolling window, not a permanent ban.
type AttemptGovernor struct {
	store ports.KeyValueStore
	limit int64
}

// NewAttemptGovernor creates a governor allowing limit answers per window
func NewAttemptGovernor(store ports.KeyValueStore, limit int) *AttemptGovernor {
	if limit < 1 {
		limit = DefaultMaxAttempts
	}
	return &AttemptGovernor{store: store, limit: int64(limit)}
}

// Limit returns the configured attempt threshold
func (g *AttemptGovernor) Limit() int {
	return int(g.limit)
}

// CheckAndConsume evaluates one submitted answer against expected
func (g *AttemptGovernor) CheckAndConsume(ctx context.Context, ref core.ChallengeRef, submitted, expected string) (core.Verdict, error) {
	count, reserved, err := g.store.IncrBelow(ctx, ref.CounterKey, g.limit, ref.LockoutTTL)
	if err != nil {
		return core.Verdict{}, fmt.Errorf("failed to reserve attempt: %w", err)
	}

	if !reserved {
		// the challenge is spent; the counter stays until its own ttl runs out
		if err := g.store.Delete(ctx, ref.AnswerKey); err != nil {
			return core.Verdict{}, fmt.Errorf("failed to discard locked challenge: %w", err)
		}
		return core.Verdict{Outcome: core.OutcomeLockedOut}, nil
	}

	if answersMatch(submitted, expected, ref.FoldCase) {
		if err := g.store.Delete(ctx, ref.AnswerKey, ref.CounterKey); err != nil {
			return core.Verdict{}, fmt.Errorf("failed to consume challenge: %w", err)
		}
		return core.Verdict{Outcome: core.OutcomeAccepted}, nil
	}

	return core.Verdict{Outcome: core.OutcomeWrong, Remaining: int(g.limit - count)}, nil
}

func answersMatch(submitted, expected string, foldCase bool) bool {
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return false
	}
	if foldCase {
		return strings.EqualFold(submitted, expected)
	}
	return submitted == expected
}
