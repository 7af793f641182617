package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sso-portal/backend/internal/config"
	"sso-portal/backend/internal/db"
	devicehandler "sso-portal/backend/internal/device/handler"
	devicerepo "sso-portal/backend/internal/device/repository"
	deviceservice "sso-portal/backend/internal/device/service"
	healthhandler "sso-portal/backend/internal/health/handler"
	loginhandler "sso-portal/backend/internal/login/handler"
	loginservice "sso-portal/backend/internal/login/service"
	"sso-portal/backend/internal/mfa"
	mfahandler "sso-portal/backend/internal/mfa/handler"
	mfarepo "sso-portal/backend/internal/mfa/repository"
	mfaservice "sso-portal/backend/internal/mfa/service"
	policyengine "sso-portal/backend/internal/policy/engine"
	policyrepo "sso-portal/backend/internal/policy/repository"
	riskengine "sso-portal/backend/internal/risk/engine"
	riskhandler "sso-portal/backend/internal/risk/handler"
	riskrepo "sso-portal/backend/internal/risk/repository"
	"sso-portal/backend/internal/security"
	"sso-portal/backend/internal/securityevent"
	eventhandler "sso-portal/backend/internal/securityevent/handler"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
	"sso-portal/backend/internal/server"
	"sso-portal/backend/internal/server/middleware"
	sessionhandler "sso-portal/backend/internal/session/handler"
	sessionrepo "sso-portal/backend/internal/session/repository"
	sessionservice "sso-portal/backend/internal/session/service"
	otelsetup "sso-portal/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "sso-portal", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	var sqlDB *sql.DB
	var (
		eventStore      eventrepo.Repository
		deviceStore     devicerepo.Repository
		assessmentStore riskrepo.AssessmentRepository
		thresholdStore  riskrepo.ThresholdsRepository
		policyStore     policyrepo.Repository
		sessionStore    sessionrepo.Repository
		mfaStore        mfarepo.Repository
	)

	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, running on in-memory stores (dev mode)")
		eventStore = eventrepo.NewMemoryRepository()
		deviceStore = devicerepo.NewMemoryRepository()
		assessmentStore = riskrepo.NewMemoryAssessmentRepository()
		thresholdStore = riskrepo.NewMemoryThresholdsRepository()
		policyStore = policyrepo.NewMemoryRepository()
		sessionStore = sessionrepo.NewMemoryRepository()
		mfaStore = mfarepo.NewMemoryRepository()
	} else {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer sqlDB.Close()
		eventStore = eventrepo.NewPostgresRepository(sqlDB)
		deviceStore = devicerepo.NewPostgresRepository(sqlDB)
		assessmentStore = riskrepo.NewPostgresAssessmentRepository(sqlDB)
		thresholdStore = riskrepo.NewPostgresThresholdsRepository(sqlDB)
		policyStore = policyrepo.NewPostgresRepository(sqlDB)
		sessionStore = sessionrepo.NewPostgresRepository(sqlDB)
		mfaStore = mfarepo.NewPostgresRepository(sqlDB)
	}

	if cfg.RedisURL != "" {
		rdb, err := db.OpenRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		sessionStore = sessionrepo.NewRedisRepository(rdb, cfg.SessionRetentionDuration())
		log.Println("sessions served from Redis")
	}

	mfaKey := cfg.MFAKey()
	if mfaKey == nil {
		// TOTP secrets sealed with this key are unreadable after a restart.
		log.Println("MFA_ENCRYPTION_KEY not set, using an ephemeral key; MFA enrollments will not survive restarts")
		mfaKey = make([]byte, 32)
		if _, err := rand.Read(mfaKey); err != nil {
			log.Fatalf("mfa key: %v", err)
		}
	}
	box, err := mfa.NewSecretBox(mfaKey)
	if err != nil {
		log.Fatalf("mfa key: %v", err)
	}

	events := securityevent.NewRecorder(eventStore)
	trustStore := deviceservice.NewTrustStore(deviceStore, events)
	thresholds := riskengine.NewThresholdManager(thresholdStore)
	risk := riskengine.NewEngine(assessmentStore, thresholds, trustStore, eventStore)
	policy := policyengine.NewOPAEvaluator(policyStore, events, cfg.SessionTTLDuration())
	sessions := sessionservice.NewManager(sessionStore, events, cfg.SessionTTLDuration(), cfg.SessionRetentionDuration())
	factors := mfaservice.NewService(mfaStore, mfa.NewTOTP(cfg.MFAIssuer), box, security.NewHasher(0), events)
	logins := loginservice.NewService(risk, policy, sessions, trustStore, factors, events)

	srv := server.New(cfg.HTTPAddr,
		middleware.SessionAuth(sessions),
		[]server.RouteRegistrar{
			healthhandler.NewHandlers(sqlDB, policy),
			loginhandler.NewHandlers(logins),
		},
		[]server.RouteRegistrar{
			sessionhandler.NewHandlers(sessions),
			devicehandler.NewHandlers(trustStore),
			riskhandler.NewHandlers(risk, thresholds),
			mfahandler.NewHandlers(factors),
			eventhandler.NewHandlers(eventStore),
		},
	)

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
