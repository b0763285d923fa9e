package services

import (
	"log"
	"sync"
	"time"

	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/database"
)

// SweepService periodically drains the smart-notification queue and
// reclaims tasks stuck in processing. cmd/worker is the usual driver for
// sweeps; this service exists for single-box deployments where the API
// binary runs everything.
type SweepService struct {
	processor     *QueueProcessor
	sweepInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
}

// NewSweepService creates a sweep service over a fresh processor
func NewSweepService(policy config.EnginePolicy, interval time.Duration) *SweepService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepService{
		processor:     NewQueueProcessor(policy, NewAlertRuleMatcher()),
		sweepInterval: interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the background sweeps
func (s *SweepService) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	log.Printf("SweepService started (interval: %v)", s.sweepInterval)
}

// Stop stops the sweeps and waits for an in-flight run to finish
func (s *SweepService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	log.Println("SweepService stopped")
}

func (s *SweepService) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	reclaimTicker := time.NewTicker(5 * s.sweepInterval)
	defer reclaimTicker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		case <-reclaimTicker.C:
			s.reclaim()
		}
	}
}

func (s *SweepService) sweep() {
	if database.DB == nil {
		return
	}

	report, err := s.processor.ProcessQueue(0)
	if err != nil {
		log.Printf("SweepService: Sweep failed: %v", err)
		return
	}
	if report.Processed > 0 {
		notified, skipped := 0, 0
		for _, r := range report.Results {
			notified += r.Notified
			skipped += r.Skipped
		}
		log.Printf("SweepService: Processed %d tasks (notified=%d, skipped=%d)", report.Processed, notified, skipped)
	}
}

func (s *SweepService) reclaim() {
	if database.DB == nil {
		return
	}
	if _, err := s.processor.Queue().ReclaimStale(); err != nil {
		log.Printf("SweepService: Reclaim failed: %v", err)
	}
}
