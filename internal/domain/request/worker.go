package request

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker periodically sweeps requests past their TTL out of business
// feeds
type Worker struct {
	svc      *Service
	interval time.Duration
	stopCh   chan struct{}
}

func NewWorker(svc *Service, interval time.Duration) *Worker {
	if interval == 0 {
		interval = 15 * time.Minute
	}
	return &Worker{
		svc:      svc,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Worker) Start() {
	log.Info().Msg("Starting purchase request deactivation worker...")
	go w.loop()
}

// Stop gracefully stops the background worker
func (w *Worker) Stop() {
	log.Info().Msg("Stopping purchase request deactivation worker...")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.runSweep()

	for {
		select {
		case <-ticker.C:
			w.runSweep()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := w.svc.DeactivateExpired(ctx); err != nil {
		log.Error().Err(err).Msg("Purchase request deactivation sweep failed")
	}
}
