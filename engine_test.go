package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/authkit-dev/authkit/otp"
)

type memUserStore struct {
	mu      sync.Mutex
	byID    map[string]UserRecord
	byEmail map[string]string
	nextID  int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    make(map[string]UserRecord),
		byEmail: make(map[string]string),
	}
}

func (m *memUserStore) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(in.Email)
	if _, exists := m.byEmail[email]; exists {
		return UserRecord{}, ErrStoreDuplicateEmail
	}

	m.nextID++
	u := UserRecord{
		ID:           fmt.Sprintf("user-%04d", m.nextID),
		Name:         in.Name,
		Email:        email,
		PasswordHash: in.PasswordHash,
		VerifyOTP:    in.VerifyOTP,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID
	return u, nil
}

func (m *memUserStore) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return UserRecord{}, ErrStoreNotFound
	}
	return m.byID[id], nil
}

func (m *memUserStore) GetUserByID(_ context.Context, id string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return UserRecord{}, ErrStoreNotFound
	}
	return u, nil
}

func (m *memUserStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return m.mutate(id, func(u *UserRecord) { u.PasswordHash = hash })
}

func (m *memUserStore) MarkVerified(_ context.Context, id string) error {
	return m.mutate(id, func(u *UserRecord) { u.Verified = true })
}

func (m *memUserStore) SetOTP(_ context.Context, id string, purpose OTPPurpose, slot otp.Slot) error {
	return m.mutate(id, func(u *UserRecord) {
		if purpose == OTPPurposeReset {
			u.ResetOTP = slot
		} else {
			u.VerifyOTP = slot
		}
	})
}

func (m *memUserStore) ClearOTP(_ context.Context, id string, purpose OTPPurpose) error {
	return m.SetOTP(context.Background(), id, purpose, otp.Slot{})
}

func (m *memUserStore) UpdateName(_ context.Context, id, name string) (UserRecord, error) {
	if err := m.mutate(id, func(u *UserRecord) { u.Name = name }); err != nil {
		return UserRecord{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id], nil
}

func (m *memUserStore) mutate(id string, fn func(*UserRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrStoreNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	m.byID[id] = u
	return nil
}

type recordingMailer struct {
	codes chan string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{codes: make(chan string, 8)}
}

func (m *recordingMailer) SendVerificationCode(_ context.Context, _, code string) error {
	m.codes <- code
	return nil
}

func (m *recordingMailer) SendPasswordResetCode(_ context.Context, _, code string) error {
	m.codes <- code
	return nil
}

func (m *recordingMailer) waitCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-m.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for code dispatch")
		return ""
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessPrivateKey = []byte("test-access-secret-0123456789abc")
	cfg.JWT.RefreshPrivateKey = []byte("test-refresh-secret-0123456789ab")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	return cfg
}

type engineFixture struct {
	engine *Engine
	store  *memUserStore
	mailer *recordingMailer
	mr     *miniredis.Miniredis
}

func newTestEngine(t *testing.T, mutate func(*Config), sink AuditSink) engineFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	store := newMemUserStore()
	mailer := newRecordingMailer()

	b := New().WithConfig(cfg).WithRedis(client).WithUserStore(store).WithMailer(mailer)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engineFixture{engine: engine, store: store, mailer: mailer, mr: mr}
}

func (f engineFixture) registerVerified(t *testing.T, email, pass string) *LoginResult {
	t.Helper()
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, "Test User", email, pass); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	code := f.mailer.waitCode(t)

	res, err := f.engine.VerifyEmail(ctx, email, code)
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	return res
}

func TestRegisterCreatesUnverifiedUserWithCode(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	ctx := context.Background()

	email, err := f.engine.Register(ctx, "Test User", "New@Example.COM", "password1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", email)
	}

	code := f.mailer.waitCode(t)
	if len(code) != f.engine.config.OTP.Digits {
		t.Fatalf("expected %d-digit code, got %q", f.engine.config.OTP.Digits, code)
	}

	user, err := f.store.GetUserByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("store lookup failed: %v", err)
	}
	if user.Verified {
		t.Fatal("new account must start unverified")
	}
	if user.VerifyOTP.Empty() {
		t.Fatal("expected outstanding verification code")
	}
	if user.PasswordHash == "password1" || user.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterRejectsDuplicateAndBadInput(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, "Test User", "dup@example.com", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	f.mailer.waitCode(t)

	if _, err := f.engine.Register(ctx, "Test User", "dup@example.com", "password1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := f.engine.Register(ctx, "X", "ok@example.com", "password1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short name, got %v", err)
	}
	if _, err := f.engine.Register(ctx, "Test User", "bad-email", "password1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad email, got %v", err)
	}
	if _, err := f.engine.Register(ctx, "Test User", "ok@example.com", "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestVerifyEmailFailureModesAreUniform(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, "Test User", "v@example.com", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	code := f.mailer.waitCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := f.engine.VerifyEmail(ctx, "v@example.com", wrong); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("wrong code: expected ErrOTPInvalid, got %v", err)
	}
	if _, err := f.engine.VerifyEmail(ctx, "ghost@example.com", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("unknown email: expected ErrOTPInvalid, got %v", err)
	}
	if _, err := f.engine.VerifyEmail(ctx, "v@example.com", "not-digits"); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("bad shape: expected ErrOTPInvalid, got %v", err)
	}

	if _, err := f.engine.VerifyEmail(ctx, "v@example.com", code); err != nil {
		t.Fatalf("correct code rejected: %v", err)
	}

	// The code is single-use: a second confirm replays the consumed slot.
	if _, err := f.engine.VerifyEmail(ctx, "v@example.com", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("replayed code: expected ErrOTPInvalid, got %v", err)
	}
}

func TestLoginOutcomes(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, "Test User", "login@example.com", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	code := f.mailer.waitCode(t)

	if _, err := f.engine.Login(ctx, "login@example.com", "password1"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("unverified: expected ErrEmailNotVerified, got %v", err)
	}

	if _, err := f.engine.VerifyEmail(ctx, "login@example.com", code); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	if _, err := f.engine.Login(ctx, "login@example.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.engine.Login(ctx, "ghost@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	res, err := f.engine.Login(ctx, "Login@Example.com", "password1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("expected full token pair")
	}
	if res.User.Email != "login@example.com" {
		t.Fatalf("unexpected profile email %q", res.User.Email)
	}
}

func TestLoginThrottleLocksOut(t *testing.T) {
	f := newTestEngine(t, func(cfg *Config) {
		cfg.Security.EnableLoginThrottle = true
		cfg.Security.MaxLoginAttempts = 3
		cfg.Security.LoginCooldown = time.Minute
	}, nil)
	f.registerVerified(t, "slow@example.com", "password1")
	ctx := context.Background()

	// The budget allows MaxLoginAttempts failures before the window closes.
	for i := 0; i < 4; i++ {
		if _, err := f.engine.Login(ctx, "slow@example.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// Budget spent: even the correct password is throttled now.
	if _, err := f.engine.Login(ctx, "slow@example.com", "password1"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	// Cooldown expiry restores access.
	f.mr.FastForward(2 * time.Minute)
	if _, err := f.engine.Login(ctx, "slow@example.com", "password1"); err != nil {
		t.Fatalf("after cooldown: %v", err)
	}
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	res := f.registerVerified(t, "rot@example.com", "password1")
	ctx := context.Background()

	pair, err := f.engine.Refresh(ctx, res.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if pair.RefreshToken == res.Tokens.RefreshToken {
		t.Fatal("rotation must issue a new refresh token")
	}

	if _, err := f.engine.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse, got %v", err)
	}

	if _, err := f.engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	res := f.registerVerified(t, "race@example.com", "password1")
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = f.engine.Refresh(ctx, res.Tokens.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrRefreshReuse) {
			t.Fatalf("loser got %v, want ErrRefreshReuse", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one rotation winner, got %d", wins)
	}
}

func TestRefreshRejectsGarbageAndForeignTokens(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	ctx := context.Background()

	if _, err := f.engine.Refresh(ctx, "not-a-jwt"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("garbage: expected ErrRefreshInvalid, got %v", err)
	}

	res := f.registerVerified(t, "foreign@example.com", "password1")
	// An access token is not a refresh token even though both verify.
	if _, err := f.engine.Refresh(ctx, res.Tokens.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("access-as-refresh: expected ErrRefreshInvalid, got %v", err)
	}
}

func TestLogoutRevokesSingleSession(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	res := f.registerVerified(t, "out@example.com", "password1")
	ctx := context.Background()

	second, err := f.engine.Login(ctx, "out@example.com", "password1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := f.engine.Logout(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if err := f.engine.Logout(ctx, res.Tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("double logout: expected ErrRefreshInvalid, got %v", err)
	}

	// The untouched session still refreshes.
	if _, err := f.engine.Refresh(ctx, second.Tokens.RefreshToken); err != nil {
		t.Fatalf("other session refresh failed: %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	res := f.registerVerified(t, "all@example.com", "password1")
	ctx := context.Background()

	second, err := f.engine.Login(ctx, "all@example.com", "password1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	removed, err := f.engine.LogoutAll(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", removed)
	}

	for _, tok := range []string{res.Tokens.RefreshToken, second.Tokens.RefreshToken} {
		if _, err := f.engine.Refresh(ctx, tok); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("revoked token: expected ErrRefreshInvalid, got %v", err)
		}
	}
}

func TestResendVerificationOverwritesCode(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, "Test User", "again@example.com", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	oldCode := f.mailer.waitCode(t)

	if _, err := f.engine.ResendVerification(ctx, "again@example.com"); err != nil {
		t.Fatalf("ResendVerification failed: %v", err)
	}
	newCode := f.mailer.waitCode(t)

	if oldCode != newCode {
		if _, err := f.engine.VerifyEmail(ctx, "again@example.com", oldCode); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("stale code: expected ErrOTPInvalid, got %v", err)
		}
	}
	if _, err := f.engine.VerifyEmail(ctx, "again@example.com", newCode); err != nil {
		t.Fatalf("fresh code rejected: %v", err)
	}

	// Verified accounts look the same as unknown ones.
	if _, err := f.engine.ResendVerification(ctx, "again@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("verified resend: expected ErrUserNotFound, got %v", err)
	}
}

func TestPasswordResetRevokesAllSessions(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	res := f.registerVerified(t, "pw@example.com", "password1")
	ctx := context.Background()

	if _, err := f.engine.ForgotPassword(ctx, "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown forgot: expected ErrUserNotFound, got %v", err)
	}

	if _, err := f.engine.ForgotPassword(ctx, "pw@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	code := f.mailer.waitCode(t)

	if err := f.engine.ResetPassword(ctx, "pw@example.com", code, "newpassword2"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := f.engine.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("old session after reset: expected ErrRefreshInvalid, got %v", err)
	}
	if _, err := f.engine.Login(ctx, "pw@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.engine.Login(ctx, "pw@example.com", "newpassword2"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// The reset code is single-use.
	if err := f.engine.ResetPassword(ctx, "pw@example.com", code, "thirdpassword3"); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("replayed reset code: expected ErrOTPInvalid, got %v", err)
	}
}

func TestExpiredOTPBehavesAsAbsent(t *testing.T) {
	f := newTestEngine(t, func(cfg *Config) {
		cfg.OTP.TTL = time.Millisecond
	}, nil)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, "Test User", "late@example.com", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	code := f.mailer.waitCode(t)

	time.Sleep(5 * time.Millisecond)
	if _, err := f.engine.VerifyEmail(ctx, "late@example.com", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expired code: expected ErrOTPInvalid, got %v", err)
	}
}

func TestValidateAccess(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	res := f.registerVerified(t, "val@example.com", "password1")
	ctx := context.Background()

	auth, err := f.engine.ValidateAccess(ctx, res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if auth.UserID != res.User.ID {
		t.Fatalf("expected user %q, got %q", res.User.ID, auth.UserID)
	}

	if _, err := f.engine.ValidateAccess(ctx, "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	// Refresh tokens do not grant access.
	if _, err := f.engine.ValidateAccess(ctx, res.Tokens.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh-as-access: expected ErrTokenInvalid, got %v", err)
	}
}

func TestProfileOperations(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	res := f.registerVerified(t, "prof@example.com", "password1")
	ctx := context.Background()

	profile, err := f.engine.CurrentUser(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if profile.Email != "prof@example.com" || !profile.Verified {
		t.Fatalf("unexpected profile %+v", profile)
	}

	updated, err := f.engine.UpdateProfile(ctx, res.User.ID, "New Name")
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Name != "New Name" {
		t.Fatalf("expected renamed profile, got %q", updated.Name)
	}

	if _, err := f.engine.UpdateProfile(ctx, res.User.ID, "X"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short name: expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.engine.CurrentUser(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user: expected ErrUserNotFound, got %v", err)
	}
}

func TestMetricsCountFlows(t *testing.T) {
	f := newTestEngine(t, nil, nil)
	res := f.registerVerified(t, "met@example.com", "password1")
	ctx := context.Background()

	if _, err := f.engine.Login(ctx, "met@example.com", "wrongpass"); err == nil {
		t.Fatal("expected login failure")
	}
	if _, err := f.engine.Login(ctx, "met@example.com", "password1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := f.engine.Refresh(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := f.engine.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse, got %v", err)
	}

	snap := f.engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricRegisterSuccess:      1,
		MetricVerificationSuccess:  1,
		MetricLoginFailure:         1,
		MetricLoginSuccess:         1,
		MetricRefreshSuccess:       1,
		MetricRefreshReuseDetected: 1,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Errorf("counter %d: got %d, want %d", id, got, want)
		}
	}
}

func TestAuditEventsReachSink(t *testing.T) {
	sink := NewChannelSink(32)
	f := newTestEngine(t, nil, sink)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, "Test User", "aud@example.com", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	f.mailer.waitCode(t)
	if _, err := f.engine.Login(ctx, "aud@example.com", "wrongpass"); err == nil {
		t.Fatal("expected login failure")
	}

	want := map[string]bool{
		auditEventRegisterSuccess: false,
		auditEventLoginFailure:    false,
	}
	deadline := time.After(2 * time.Second)
	for {
		done := true
		for _, seen := range want {
			if !seen {
				done = false
			}
		}
		if done {
			break
		}

		select {
		case ev := <-sink.Events():
			if _, tracked := want[ev.EventType]; tracked {
				want[ev.EventType] = true
			}
			if ev.EventType == auditEventLoginFailure && ev.Success {
				t.Fatal("login failure event marked successful")
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit events, seen: %v", want)
		}
	}
}

func TestBuilderRejectsMissingKeysAndDeps(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig() // no signing keys on purpose
	if _, err := New().WithConfig(cfg).WithRedis(client).WithUserStore(newMemUserStore()).Build(); err == nil {
		t.Fatal("expected Build to fail without signing keys")
	}

	cfg = testConfig()
	cfg.JWT.RefreshPrivateKey = cfg.JWT.AccessPrivateKey
	if _, err := New().WithConfig(cfg).WithRedis(client).WithUserStore(newMemUserStore()).Build(); err == nil {
		t.Fatal("expected Build to fail when token classes share a key")
	}

	if _, err := New().WithConfig(testConfig()).WithUserStore(newMemUserStore()).Build(); err == nil {
		t.Fatal("expected Build to fail without redis")
	}
	if _, err := New().WithConfig(testConfig()).WithRedis(client).Build(); err == nil {
		t.Fatal("expected Build to fail without user store")
	}
}
