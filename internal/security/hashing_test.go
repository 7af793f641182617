package security

import "testing"

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4) // min cost for test speed
	hash, err := h.Hash([]byte("A1B2-C3D4-E5F6"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, []byte("A1B2-C3D4-E5F6")); err != nil {
		t.Errorf("Compare with correct code: %v", err)
	}
	if err := h.Compare(hash, []byte("A1B2-C3D4-XXXX")); err == nil {
		t.Error("Compare with wrong code should fail")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	if h := NewHasher(0); h.Cost <= 0 {
		t.Errorf("Cost = %d, want default", h.Cost)
	}
	if h := NewHasher(99); h.Cost > 31 {
		t.Errorf("Cost = %d, want clamped to max", h.Cost)
	}
}
