package domain

import "time"

// Session represents an authenticated session identified by an opaque token.
type Session struct {
	ID                string
	UserID            string
	Token             string
	IPAddress         string
	UserAgent         string
	Active            bool
	RequireMFA        bool
	AllowedOperations []string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// Expired reports whether the session has passed its expiry at the given
// time. Expiry is always computed from the clock, never stored as a flag.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// OperationAllowed reports whether the session permits the named operation.
// An empty list and the "*" wildcard both mean unrestricted.
func (s *Session) OperationAllowed(op string) bool {
	if len(s.AllowedOperations) == 0 {
		return true
	}
	for _, allowed := range s.AllowedOperations {
		if allowed == "*" || allowed == op {
			return true
		}
	}
	return false
}

// Stats is an aggregate snapshot of the session store.
type Stats struct {
	Active          int
	ExpiredRetained int
	CreatedToday    int
}
