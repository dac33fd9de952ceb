package otp

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateLengthAndCharset(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate(6)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}

func TestGenerateLeadingZerosPossible(t *testing.T) {
	// Each digit is drawn independently, so a leading zero shows up in
	// roughly 1 in 10 codes. 300 draws without one would be a generator bug.
	for i := 0; i < 300; i++ {
		code, err := Generate(6)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if strings.HasPrefix(code, "0") {
			return
		}
	}
	t.Fatal("no leading zero observed in 300 codes")
}

func TestGenerateRejectsBadLength(t *testing.T) {
	for _, digits := range []int{0, 5, 11, -1} {
		if _, err := Generate(digits); err == nil {
			t.Fatalf("expected error for %d digits", digits)
		}
	}
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Now()
	code, slot, err := Issue(6, 10*time.Minute, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if slot.Empty() {
		t.Fatal("issued slot should not be empty")
	}
	if slot.Hash == code {
		t.Fatal("slot must not hold the plaintext code")
	}

	if !slot.Verify(code, now) {
		t.Fatal("fresh code should verify")
	}
	if slot.Verify("999999", now) {
		t.Fatal("wrong code verified")
	}
}

func TestVerifyExpiredSlot(t *testing.T) {
	now := time.Now()
	code, slot, err := Issue(6, 10*time.Minute, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if slot.Verify(code, now.Add(10*time.Minute)) {
		t.Fatal("code verified at exact expiry instant")
	}
	if slot.Verify(code, now.Add(time.Hour)) {
		t.Fatal("expired code verified")
	}
}

func TestVerifyEmptySlot(t *testing.T) {
	var slot Slot
	if slot.Verify("123456", time.Now()) {
		t.Fatal("empty slot verified")
	}
}

func TestFreshSaltPerIssuance(t *testing.T) {
	h1, err := HashCode("123456")
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	h2, err := HashCode("123456")
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	if h1 == h2 {
		t.Fatal("identical hashes for the same code imply a reused salt")
	}
}

func TestReissueInvalidatesPreviousCode(t *testing.T) {
	now := time.Now()
	oldCode, _, err := Issue(6, 10*time.Minute, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	newCode, slot, err := Issue(6, 10*time.Minute, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// The stored slot is the only source of truth; once overwritten the
	// old plaintext no longer matches (barring a code collision).
	if oldCode != newCode && slot.Verify(oldCode, now) {
		t.Fatal("old code verified against reissued slot")
	}
	if !slot.Verify(newCode, now) {
		t.Fatal("new code should verify")
	}
}
