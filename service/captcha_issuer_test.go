package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyu/myblog/core"
)

func TestIssueImageChallenge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	challenge, err := f.issuer.IssueImageChallenge(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, challenge.ID)
	assert.Len(t, challenge.Answer, imageCodeLength)
	for _, r := range challenge.Answer {
		assert.True(t, strings.ContainsRune(imageAlphabet, r), "unexpected %q", r)
	}
	assert.Equal(t, []byte("png:"+challenge.Answer), challenge.Image)

	ref := f.issuer.ImageRef(challenge.ID)
	assert.Equal(t, challenge.Answer, f.storedAnswer(t, ref))
	assert.Equal(t, 30*time.Second, f.store.TTL(ref.AnswerKey))

	other, err := f.issuer.IssueImageChallenge(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, challenge.ID, other.ID)
}

func TestImageChallengeExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	challenge, err := f.issuer.IssueImageChallenge(ctx)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	_, err = f.issuer.ExpectedAnswer(ctx, f.issuer.ImageRef(challenge.ID))
	assert.ErrorIs(t, err, core.ErrChallengeExpired)
}

func TestIssueEmailChallengeNormalizesAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	code, err := f.issuer.IssueEmailChallenge(ctx, "  Alice@Example.COM ", 3*time.Minute)
	require.NoError(t, err)
	assert.Len(t, code, emailCodeLength)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}

	ref := f.issuer.EmailRef("alice@example.com")
	assert.Equal(t, code, f.storedAnswer(t, ref))
	assert.Equal(t, 3*time.Minute, f.store.TTL(ref.AnswerKey))
	assert.Equal(t, ref, f.issuer.EmailRef("ALICE@example.com"))
	assert.NotContains(t, ref.AnswerKey, "alice")
}

func TestIssueEmailChallengeRequiresAddress(t *testing.T) {
	f := newFixture(t)
	_, err := f.issuer.IssueEmailChallenge(context.Background(), "   ", time.Minute)
	assert.ErrorIs(t, err, core.ErrChallengeRequired)
}
