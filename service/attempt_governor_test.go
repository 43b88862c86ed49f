package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyu/myblog/core"
)

func TestGovernorThreeStrikes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	challenge, err := f.issuer.IssueImageChallenge(ctx)
	require.NoError(t, err)
	ref := f.issuer.ImageRef(challenge.ID)

	for _, want := range []int{2, 1, 0} {
		verdict, err := f.governor.CheckAndConsume(ctx, ref, "nope", challenge.Answer)
		require.NoError(t, err)
		assert.Equal(t, core.OutcomeWrong, verdict.Outcome)
		assert.Equal(t, want, verdict.Remaining)
	}

	// the fourth answer is never compared, even when it is right
	verdict, err := f.governor.CheckAndConsume(ctx, ref, challenge.Answer, challenge.Answer)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeLockedOut, verdict.Outcome)

	ok, err := f.store.Exists(ctx, ref.AnswerKey)
	require.NoError(t, err)
	assert.False(t, ok, "locked challenge is discarded")
	ok, err = f.store.Exists(ctx, ref.CounterKey)
	require.NoError(t, err)
	assert.True(t, ok, "counter outlives the lockout")
}

func TestGovernorAcceptConsumesChallengeAndCounter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	challenge, err := f.issuer.IssueImageChallenge(ctx)
	require.NoError(t, err)
	ref := f.issuer.ImageRef(challenge.ID)

	verdict, err := f.governor.CheckAndConsume(ctx, ref, "nope", challenge.Answer)
	require.NoError(t, err)
	require.Equal(t, core.OutcomeWrong, verdict.Outcome)

	verdict, err = f.governor.CheckAndConsume(ctx, ref, challenge.Answer, challenge.Answer)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeAccepted, verdict.Outcome)

	for _, key := range []string{ref.AnswerKey, ref.CounterKey} {
		ok, err := f.store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestGovernorCaseRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	image := core.ChallengeRef{AnswerKey: "a1", CounterKey: "c1", LockoutTTL: time.Minute, FoldCase: true}
	verdict, err := f.governor.CheckAndConsume(ctx, image, "abcd", "ABCD")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeAccepted, verdict.Outcome)

	email := core.ChallengeRef{AnswerKey: "a2", CounterKey: "c2", LockoutTTL: time.Minute}
	verdict, err = f.governor.CheckAndConsume(ctx, email, "abcd", "ABCD")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeWrong, verdict.Outcome)
}

func TestGovernorWindowRolls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := core.ChallengeRef{AnswerKey: "a", CounterKey: "c", LockoutTTL: 30 * time.Second}

	for i := 0; i < 3; i++ {
		_, err := f.governor.CheckAndConsume(ctx, ref, "x", "123456")
		require.NoError(t, err)
	}
	verdict, err := f.governor.CheckAndConsume(ctx, ref, "123456", "123456")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeLockedOut, verdict.Outcome)

	f.clock.Advance(30 * time.Second)
	verdict, err = f.governor.CheckAndConsume(ctx, ref, "x", "123456")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeWrong, verdict.Outcome)
	assert.Equal(t, 2, verdict.Remaining)
}

func TestGovernorConcurrentGuessesRespectCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := core.ChallengeRef{AnswerKey: "a", CounterKey: "c", LockoutTTL: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		outcome = map[core.Outcome]int{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			verdict, err := f.governor.CheckAndConsume(ctx, ref, "wrong", "right")
			assert.NoError(t, err)
			mu.Lock()
			outcome[verdict.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, outcome[core.OutcomeWrong])
	assert.Equal(t, 17, outcome[core.OutcomeLockedOut])
}

func TestGovernorLimit(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, DefaultMaxAttempts, f.governor.Limit())
	assert.Equal(t, 5, NewAttemptGovernor(f.store, 5).Limit())
	assert.Equal(t, DefaultMaxAttempts, NewAttemptGovernor(f.store, 0).Limit())
}
