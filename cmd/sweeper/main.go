// sweeper deletes expired sessions past the retention window on a cron
// schedule. Run with -once for a single sweep (e.g. from a k8s CronJob).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"sso-portal/backend/internal/config"
	"sso-portal/backend/internal/db"
	"sso-portal/backend/internal/securityevent"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
	sessionrepo "sso-portal/backend/internal/session/repository"
	sessionservice "sso-portal/backend/internal/session/service"
)

func main() {
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" && cfg.RedisURL == "" {
		log.Fatal("sweeper: DATABASE_URL or REDIS_URL must be set")
	}

	var store sessionrepo.Repository
	var events eventrepo.Repository
	if cfg.RedisURL != "" {
		rdb, err := db.OpenRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		store = sessionrepo.NewRedisRepository(rdb, cfg.SessionRetentionDuration())
	}
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer sqlDB.Close()
		if store == nil {
			store = sessionrepo.NewPostgresRepository(sqlDB)
		}
		events = eventrepo.NewPostgresRepository(sqlDB)
	}
	if events == nil {
		events = eventrepo.NewMemoryRepository()
	}

	sessions := sessionservice.NewManager(store, securityevent.NewRecorder(events),
		cfg.SessionTTLDuration(), cfg.SessionRetentionDuration())

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deleted, err := sessions.CleanupExpiredSessions(ctx)
		if err != nil {
			log.Printf("sweep failed: %v", err)
			return
		}
		log.Printf("sweep deleted %d expired sessions", deleted)
	}

	if *once {
		sweep()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSchedule, sweep); err != nil {
		log.Fatalf("schedule %q: %v", cfg.SweepSchedule, err)
	}
	c.Start()
	log.Printf("sweeper started, schedule %q", cfg.SweepSchedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("sweeper shutting down...")
	<-c.Stop().Done()
	log.Println("sweeper stopped")
}
