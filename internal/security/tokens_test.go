package security

import "testing"

func TestGenerateSessionToken_UniqueAndOpaque(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("GenerateSessionToken: %v", err)
		}
		if len(tok) < 40 {
			t.Fatalf("token too short: %d chars", len(tok))
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}
