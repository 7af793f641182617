package securityevent

import (
	"context"
	"testing"

	"sso-portal/backend/internal/securityevent/domain"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
)

func TestRecorder_Record(t *testing.T) {
	repo := eventrepo.NewMemoryRepository()
	rec := NewRecorder(repo)
	ctx := context.Background()

	e, err := rec.Record(ctx, Entry{
		UserID:      "user-1",
		Type:        domain.TypeLogin,
		Description: "login allowed",
		Severity:    domain.SeverityLow,
		IPAddress:   "203.0.113.9",
		RiskScore:   0.05,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.ID == "" {
		t.Error("event ID not assigned")
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got, err := repo.ListByUser(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 1 || got[0].Description != "login allowed" {
		t.Fatalf("ListByUser = %+v, want the recorded event", got)
	}
}

func TestRecorder_DefaultSeverity(t *testing.T) {
	rec := NewRecorder(eventrepo.NewMemoryRepository())
	e, err := rec.Record(context.Background(), Entry{UserID: "u", Type: domain.TypeSettingChange})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.Severity != domain.SeverityInfo {
		t.Errorf("Severity = %q, want info default", e.Severity)
	}
}

func TestMemoryRepository_OrderingAndFilter(t *testing.T) {
	repo := eventrepo.NewMemoryRepository()
	rec := NewRecorder(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := rec.Record(ctx, Entry{UserID: "u", Type: domain.TypeLogin, Description: string(rune('a' + i))}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if _, err := rec.Record(ctx, Entry{UserID: "u", Type: domain.TypeAlert}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	logins, err := repo.ListByUserAndType(ctx, "u", domain.TypeLogin, 2)
	if err != nil {
		t.Fatalf("ListByUserAndType: %v", err)
	}
	if len(logins) != 2 {
		t.Fatalf("len = %d, want 2 (limit applied)", len(logins))
	}
	if logins[0].Description != "c" || logins[1].Description != "b" {
		t.Errorf("order = %q,%q, want newest first c,b", logins[0].Description, logins[1].Description)
	}

	empty, err := repo.ListByUser(ctx, "unknown-user", 10)
	if err != nil {
		t.Fatalf("ListByUser unknown: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown user events = %d, want empty list not error", len(empty))
	}
}
