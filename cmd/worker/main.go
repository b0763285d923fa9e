package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
	"github.com/patchwatch/backend/internal/services"
	"github.com/robfig/cron/v3"
)

// The worker drives the queue on a schedule: periodic sweeps drain
// pending tasks, and a slower job reclaims tasks whose worker died
// mid-processing. Overlapping runs are safe; the claim step is the lock.
func main() {
	cfg := config.Load()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	processor := services.NewQueueProcessor(cfg.Policy, services.NewAlertRuleMatcher())

	scheduler := cron.New()

	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		report, err := processor.ProcessQueue(cfg.Policy.BatchSize)
		if err != nil {
			log.Printf("Worker: Sweep failed: %v", err)
			return
		}
		if report.Processed > 0 {
			notified, skipped := 0, 0
			for _, r := range report.Results {
				notified += r.Notified
				skipped += r.Skipped
			}
			log.Printf("Worker: Processed %d tasks (notified=%d, skipped=%d)", report.Processed, notified, skipped)
		}
	}); err != nil {
		log.Fatalf("Invalid sweep schedule %q: %v", cfg.SweepSchedule, err)
	}

	if _, err := scheduler.AddFunc(cfg.ReclaimSchedule, func() {
		if _, err := processor.Queue().ReclaimStale(); err != nil {
			log.Printf("Worker: Reclaim failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid reclaim schedule %q: %v", cfg.ReclaimSchedule, err)
	}

	scheduler.Start()
	log.Printf("Worker started (sweep: %q, reclaim: %q, batch: %d)",
		cfg.SweepSchedule, cfg.ReclaimSchedule, cfg.Policy.BatchSize)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	ctx := scheduler.Stop()
	<-ctx.Done()
	log.Println("Worker stopped")
}
