package jwt

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		SigningMethod:     MethodHS256,
		AccessPrivateKey:  []byte("test-access-signing-key-0123456789"),
		RefreshPrivateKey: []byte("test-refresh-signing-key-0123456789"),
		Issuer:            "authkit-test",
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestAccessRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.CreateAccess("user-1")
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.UID != "user-1" {
		t.Fatalf("uid = %q, want user-1", claims.UID)
	}
	if claims.Issuer != "authkit-test" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, created, err := m.CreateRefresh("user-2")
	if err != nil {
		t.Fatalf("CreateRefresh: %v", err)
	}
	if created.ID == "" {
		t.Fatal("refresh jti should be set")
	}

	claims, err := m.ParseRefresh(token)
	if err != nil {
		t.Fatalf("ParseRefresh: %v", err)
	}
	if claims.UID != "user-2" {
		t.Fatalf("uid = %q, want user-2", claims.UID)
	}
	if claims.ID != created.ID {
		t.Fatalf("jti mismatch: %q vs %q", claims.ID, created.ID)
	}
}

func TestRefreshJTIUniquePerIssuance(t *testing.T) {
	m := newTestManager(t)

	_, first, err := m.CreateRefresh("user-1")
	if err != nil {
		t.Fatalf("CreateRefresh: %v", err)
	}
	_, second, err := m.CreateRefresh("user-1")
	if err != nil {
		t.Fatalf("CreateRefresh: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("jti must be unique per issuance")
	}
}

func TestTokenClassesNotInterchangeable(t *testing.T) {
	m := newTestManager(t)

	access, err := m.CreateAccess("user-1")
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}
	refresh, _, err := m.CreateRefresh("user-1")
	if err != nil {
		t.Fatalf("CreateRefresh: %v", err)
	}

	if _, err := m.ParseRefresh(access); err == nil {
		t.Fatal("access token verified under the refresh key")
	}
	if _, err := m.ParseAccess(refresh); err == nil {
		t.Fatal("refresh token verified under the access key")
	}
}

func TestExpiredAccessRejected(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = time.Millisecond
	cfg.RefreshTTL = time.Hour

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.CreateAccess("user-1")
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expired access token verified")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	m := newTestManager(t)

	token, err := m.CreateAccess("user-1")
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("tampered token verified")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"zero access ttl":      func(c *Config) { c.AccessTTL = 0 },
		"zero refresh ttl":     func(c *Config) { c.RefreshTTL = 0 },
		"refresh below access": func(c *Config) { c.RefreshTTL = time.Minute },
		"missing access key":   func(c *Config) { c.AccessPrivateKey = nil },
		"missing refresh key":  func(c *Config) { c.RefreshPrivateKey = nil },
		"shared keys":          func(c *Config) { c.RefreshPrivateKey = c.AccessPrivateKey },
		"unknown method":       func(c *Config) { c.SigningMethod = "rs256" },
		"excessive leeway":     func(c *Config) { c.Leeway = time.Hour },
	}

	for name, mutate := range cases {
		cfg := testConfig()
		mutate(&cfg)
		if _, err := NewManager(cfg); err == nil {
			t.Errorf("%s: expected config error", name)
		}
	}
}
