// Package scheduler runs the periodic housekeeping jobs: dropping expired
// refresh tokens and idempotency entries, and logging occupancy and
// restock snapshots.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/iliyamo/cinema-ops/internal/inventory"
	"github.com/iliyamo/cinema-ops/internal/logger"
	"github.com/iliyamo/cinema-ops/internal/repository"
)

// Purger is anything that can drop its expired entries.
type Purger interface {
	Purge() int
}

// Job is one periodic task.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context)
}

// Deps are the stores the jobs operate on. Idempotency is nil when the
// idempotency store lives in Redis, which expires keys on its own. Stock is
// optional.
type Deps struct {
	Tokens      *repository.TokenRepo
	Sessions    *repository.SessionRepo
	Idempotency Purger
	Stock       *inventory.Stock
	Log         *logger.Logger
}

// Jobs builds the housekeeping job list.
func Jobs(d Deps) []Job {
	jobs := []Job{
		{
			Name:  "purge-refresh-tokens",
			Every: 10 * time.Minute,
			Run: func(ctx context.Context) {
				if n := d.Tokens.PurgeExpired(); n > 0 {
					d.Log.InfoContext(ctx, "purged refresh tokens", slog.Int("count", n))
				}
			},
		},
		{
			Name:  "occupancy-snapshot",
			Every: 5 * time.Minute,
			Run: func(ctx context.Context) {
				for _, s := range d.Sessions.ListByOccupancy(ctx) {
					d.Log.InfoContext(ctx, "occupancy",
						slog.String("session_id", s.ID),
						slog.Int("seats_sold", s.SeatsSold),
						slog.Int("capacity", s.Capacity),
						slog.Float64("occupancy_percent", s.OccupancyPercent),
					)
				}
			},
		},
	}
	if d.Idempotency != nil {
		jobs = append(jobs, Job{
			Name:  "purge-idempotency",
			Every: time.Minute,
			Run: func(ctx context.Context) {
				if n := d.Idempotency.Purge(); n > 0 {
					d.Log.DebugContext(ctx, "purged idempotency entries", slog.Int("count", n))
				}
			},
		})
	}
	if d.Stock != nil {
		jobs = append(jobs, Job{
			Name:  "inventory-restock-alert",
			Every: 15 * time.Minute,
			Run: func(ctx context.Context) {
				for _, it := range d.Stock.Critical() {
					d.Log.WarnContext(ctx, "restock needed",
						slog.String("sku", it.SKU),
						slog.Int("quantity", it.Quantity),
						slog.Int("minimum", it.Minimum),
					)
				}
			},
		})
	}
	return jobs
}

// Scheduler owns a gocron scheduler running Jobs.
type Scheduler struct {
	s   gocron.Scheduler
	log *logger.Logger
}

// Start registers jobs and starts the scheduler. Each run gets a context
// bounded by the job's interval.
func Start(jobs []Job, log *logger.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		j := j
		_, err := s.NewJob(
			gocron.DurationJob(j.Every),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), j.Every)
				defer cancel()
				j.Run(ctx)
			}),
			gocron.WithName(j.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, err
		}
	}
	s.Start()
	log.Info("scheduler started", slog.Int("jobs", len(jobs)))
	return &Scheduler{s: s, log: log}, nil
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}
