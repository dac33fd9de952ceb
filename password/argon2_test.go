package password

import (
	"errors"
	"strings"
	"testing"
)

func testParams() Params {
	// Floor costs keep the test suite fast.
	return Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := NewHasher(testParams())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected format: %q", encoded)
	}

	ok, err := h.Verify("correct horse battery", encoded)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = h.Verify("wrong password", encoded)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestHashSaltVaries(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first == second {
		t.Fatal("identical hashes imply a reused salt")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t)

	cases := []string{
		"",
		"not a hash",
		"$argon2i$v=19$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"$argon2id$v=18$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"$argon2id$v=19$m=1,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
	}

	for _, encoded := range cases {
		if _, err := h.Verify("anything", encoded); !errors.Is(err, ErrHashMalformed) {
			t.Errorf("Verify(%q): err = %v, want ErrHashMalformed", encoded, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newTestHasher(t)

	encoded, err := weak.Hash("some password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	needs, err := weak.NeedsRehash(encoded)
	if err != nil {
		t.Fatalf("NeedsRehash: %v", err)
	}
	if needs {
		t.Fatal("hash at current params should not need rehash")
	}

	strong, err := NewHasher(DefaultParams())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	needs, err = strong.NeedsRehash(encoded)
	if err != nil {
		t.Fatalf("NeedsRehash: %v", err)
	}
	if !needs {
		t.Fatal("weaker hash should need rehash under stronger params")
	}

	// A stronger hash still verifies under the weaker hasher, since the
	// parameters come from the encoded string.
	strongHash, err := strong.Hash("some password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	ok, err := weak.Verify("some password", strongHash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("cross-parameter verify failed")
	}
}

func TestNewHasherRejectsWeakParams(t *testing.T) {
	cases := map[string]func(*Params){
		"memory":      func(p *Params) { p.Memory = 1024 },
		"time":        func(p *Params) { p.Time = 0 },
		"parallelism": func(p *Params) { p.Parallelism = 0 },
		"salt":        func(p *Params) { p.SaltLength = 8 },
		"key":         func(p *Params) { p.KeyLength = 8 },
	}

	for name, mutate := range cases {
		p := testParams()
		mutate(&p)
		if _, err := NewHasher(p); err == nil {
			t.Errorf("%s: expected params error", name)
		}
	}
}
