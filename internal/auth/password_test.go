package auth

import "testing"

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher("process-salt", 4) // min cost keeps the test fast

	hash, err := h.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !h.Verify(hash, "hunter2") {
		t.Error("correct password rejected")
	}
	if h.Verify(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestHasherSaltMatters(t *testing.T) {
	a := NewHasher("salt-a", 4)
	b := NewHasher("salt-b", 4)

	hash, err := a.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if b.Verify(hash, "hunter2") {
		t.Error("hash verified under a different process salt")
	}
}

func TestRandomTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := RandomToken(32)
		if err != nil {
			t.Fatalf("RandomToken: %v", err)
		}
		if len(tok) != 64 {
			t.Fatalf("token length = %d, want 64", len(tok))
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}
