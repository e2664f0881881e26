package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pyqprep/mocktest-backend/internal/repository"
	"github.com/pyqprep/mocktest-backend/internal/service"
	"github.com/rs/zerolog"
)

// DeadlineWorker periodically sweeps for in-progress attempts whose time
// has run out and force-submits them. This is the safety net behind the
// client-side auto-submit: an abandoned tab still ends up submitted.
type DeadlineWorker struct {
	attemptRepo    *repository.AttemptRepository
	attemptService *service.AttemptService
	scheduler      *gocron.Scheduler
	interval       time.Duration
	log            zerolog.Logger
}

// NewDeadlineWorker creates a new DeadlineWorker.
func NewDeadlineWorker(
	attemptRepo *repository.AttemptRepository,
	attemptService *service.AttemptService,
	interval time.Duration,
	log zerolog.Logger,
) *DeadlineWorker {
	return &DeadlineWorker{
		attemptRepo:    attemptRepo,
		attemptService: attemptService,
		scheduler:      gocron.NewScheduler(time.UTC),
		interval:       interval,
		log:            log.With().Str("component", "deadline_worker").Logger(),
	}
}

// Start schedules the sweep and runs it in the background.
func (w *DeadlineWorker) Start() {
	if _, err := w.scheduler.Every(w.interval).Do(w.sweep); err != nil {
		w.log.Error().Err(err).Msg("Failed to schedule deadline sweep")
		return
	}
	w.scheduler.StartAsync()
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")
}

// Stop terminates the scheduled sweep.
func (w *DeadlineWorker) Stop() {
	w.scheduler.Stop()
	w.log.Info().Msg("Worker stopped")
}

func (w *DeadlineWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := w.attemptRepo.ListExpired(ctx, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("List expired attempts failed")
		return
	}

	for _, attemptID := range expired {
		if _, err := w.attemptService.ForceSubmit(ctx, attemptID); err != nil {
			w.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Force submit failed")
			continue
		}
		w.log.Info().Str("attempt_id", attemptID.String()).Msg("Expired attempt submitted")
	}
}
