// seed inserts development sample data for local testing.
// Idempotent: skips inserts when the seeded rows already exist.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"sso-portal/backend/internal/config"
	"sso-portal/backend/internal/db"
	policydomain "sso-portal/backend/internal/policy/domain"
	policyrepo "sso-portal/backend/internal/policy/repository"
	riskdomain "sso-portal/backend/internal/risk/domain"
	riskrepo "sso-portal/backend/internal/risk/repository"
)

const devTenantID = "tenant-acme"

// strictRegoPolicy is a sample tenant override: medium risk is challenged
// instead of monitored. Same package as the built-in policy in
// internal/policy/engine/opa_evaluator.go.
const strictRegoPolicy = `package sso.session_risk

default action = "deny"
default challenge = ""
default require_mfa = false
default monitored = false
default session_minutes = 0
default allowed_operations = ["*"]

action = "allow" if {
	input.risk.level == "low"
}

action = "challenge" if {
	input.risk.level == "medium"
}

action = "challenge" if {
	input.risk.level == "high"
}

challenge = "verify_mfa" if {
	action == "challenge"
	input.user.mfa_enrolled
}

challenge = "enroll_mfa" if {
	action == "challenge"
	not input.user.mfa_enrolled
}

require_mfa = true if {
	action == "challenge"
}

session_minutes = input.defaults.session_minutes if {
	action == "allow"
}

session_minutes = 15 if {
	action == "challenge"
}

allowed_operations = ["read", "mfa"] if {
	action == "challenge"
}
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("seed: DATABASE_URL is not set")
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	thresholds := riskrepo.NewPostgresThresholdsRepository(sqlDB)
	existing, err := thresholds.Get(ctx, riskdomain.DefaultScope)
	if err != nil {
		log.Fatalf("seed: thresholds lookup: %v", err)
	}
	if existing == nil {
		t := riskdomain.DefaultThresholds(riskdomain.DefaultScope)
		t.UpdatedAt = time.Now().UTC()
		if err := thresholds.Save(ctx, &t); err != nil {
			log.Fatalf("seed: thresholds: %v", err)
		}
		log.Printf("seeded default risk thresholds (scope %q)", riskdomain.DefaultScope)
	} else {
		log.Printf("risk thresholds already present (scope %q), skipping", riskdomain.DefaultScope)
	}

	policies := policyrepo.NewPostgresRepository(sqlDB)
	rows, err := policies.ListByTenant(ctx, devTenantID)
	if err != nil {
		log.Fatalf("seed: policy lookup: %v", err)
	}
	if len(rows) == 0 {
		p := &policydomain.TenantPolicy{
			ID:        uuid.NewString(),
			TenantID:  devTenantID,
			Rules:     strictRegoPolicy,
			Enabled:   true,
			CreatedAt: time.Now().UTC(),
		}
		if err := policies.Create(ctx, p); err != nil {
			log.Fatalf("seed: policy: %v", err)
		}
		log.Printf("seeded strict session policy for tenant %q (id %s)", devTenantID, p.ID)
	} else {
		log.Printf("tenant %q already has %d policies, skipping", devTenantID, len(rows))
	}
}
