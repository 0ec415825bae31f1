package tariff

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker runs the two daily tariff sweeps: renewal/downgrade for
// tariffs ending today and the expiring-soon notification three days
// ahead
type Worker struct {
	svc      *Service
	interval time.Duration
	stopCh   chan struct{}
}

func NewWorker(svc *Service, interval time.Duration) *Worker {
	if interval == 0 {
		interval = 24 * time.Hour
	}
	return &Worker{
		svc:      svc,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Worker) Start() {
	log.Info().Msg("Starting tariff worker...")
	go w.loop()
}

// Stop gracefully stops the background worker
func (w *Worker) Stop() {
	log.Info().Msg("Stopping tariff worker...")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.runSweeps()

	for {
		select {
		case <-ticker.C:
			w.runSweeps()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) runSweeps() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	today := time.Now()

	if err := w.svc.RenewalSweep(ctx, today); err != nil {
		log.Error().Err(err).Msg("Tariff renewal sweep failed")
	}
	if err := w.svc.ExpiringSweep(ctx, today); err != nil {
		log.Error().Err(err).Msg("Tariff expiring sweep failed")
	}
}
