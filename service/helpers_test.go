package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/panyu/myblog/adapters/store"
	"github.com/panyu/myblog/adapters/tokenizer"
	"github.com/panyu/myblog/core"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

type stubRenderer struct{}

func (stubRenderer) Render(code string) ([]byte, error) {
	return []byte("png:" + code), nil
}

// fakeAccounts is an in-memory AccountRepository that counts lookups
type fakeAccounts struct {
	mu      sync.Mutex
	byID    map[int64]*core.Account
	nextID  int64
	lookups int
	logins  []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[int64]*core.Account{}, nextID: 1}
}

func (f *fakeAccounts) add(a core.Account) *core.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.nextID
	f.nextID++
	f.byID[a.ID] = &a
	return &a
}

func (f *fakeAccounts) find(match func(*core.Account) bool) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	for _, a := range f.byID {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *fakeAccounts) Lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func (f *fakeAccounts) FindByID(ctx context.Context, id int64) (*core.Account, error) {
	return f.find(func(a *core.Account) bool { return a.ID == id })
}

func (f *fakeAccounts) FindByUsername(ctx context.Context, username string) (*core.Account, error) {
	return f.find(func(a *core.Account) bool { return a.Username == username })
}

func (f *fakeAccounts) FindByEmail(ctx context.Context, email string) (*core.Account, error) {
	return f.find(func(a *core.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (f *fakeAccounts) Create(ctx context.Context, account *core.Account) error {
	created := f.add(*account)
	account.ID = created.ID
	return nil
}

func (f *fakeAccounts) UpdatePassword(ctx context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeAccounts) RecordLogin(ctx context.Context, id int64, at time.Time, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byID[id]; ok {
		a.LastLoginAt = &at
		a.LastLoginIP = ip
	}
	f.logins = append(f.logins, ip)
	return nil
}

type MockMailQueue struct {
	mock.Mock
}

func (m *MockMailQueue) Enqueue(ctx context.Context, msg core.EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishLogout(ctx context.Context, accountID, tokenID string) error {
	args := m.Called(ctx, accountID, tokenID)
	return args.Error(0)
}

type fixture struct {
	clock    *fakeClock
	store    *store.MemoryStore
	tokens   *tokenizer.JWTTokenizer
	accounts *fakeAccounts
	mail     *MockMailQueue
	events   *MockEvents
	issuer   *CaptchaIssuer
	governor *AttemptGovernor
	verifier *VerificationService
	ledger   *RevocationLedger
	hasher   PasswordHasher
	svc      *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{clock: newClock()}
	f.store = store.NewMemoryStore(store.WithClock(f.clock.Now))

	var err error
	f.tokens, err = tokenizer.NewJWTTokenizer([]byte("0123456789abcdef0123456789abcdef"), time.Hour,
		tokenizer.WithClock(f.clock.Now))
	require.NoError(t, err)

	f.accounts = newFakeAccounts()
	f.mail = new(MockMailQueue)
	f.events = new(MockEvents)
	f.hasher = NewPasswordHasher(bcrypt.MinCost)
	f.issuer = NewCaptchaIssuer(f.store, stubRenderer{}, DefaultCaptchaSettings())
	f.governor = NewAttemptGovernor(f.store, DefaultMaxAttempts)
	f.verifier = NewVerificationService(f.issuer, f.governor)
	f.ledger = NewRevocationLedger(f.store, f.tokens).WithClock(f.clock.Now)

	f.svc = NewAuthService(AuthDeps{
		Accounts:  f.accounts,
		Tokenizer: f.tokens,
		Ledger:    f.ledger,
		Issuer:    f.issuer,
		Verifier:  f.verifier,
		Mail:      f.mail,
		Events:    f.events,
		Hasher:    f.hasher,
		Codes:     DefaultCodeSettings(),
	})
	f.svc.now = f.clock.Now
	return f
}

func (f *fixture) addAccount(t *testing.T, username, password string, role core.Role, status core.AccountStatus) *core.Account {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return f.accounts.add(core.Account{
		Username:     username,
		Nickname:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	})
}

// storedAnswer reads the expected answer straight from the store
func (f *fixture) storedAnswer(t *testing.T, ref core.ChallengeRef) string {
	t.Helper()
	answer, err := f.store.Get(context.Background(), ref.AnswerKey)
	require.NoError(t, err)
	return answer
}
