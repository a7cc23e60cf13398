package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"tutordesk/internal/platform/metrics"
)

// Service runs background jobs on a single worker. Runs are recorded in job_runs when a
// database is configured.
type Service struct {
	DB      *pgxpool.Pool
	Metrics *metrics.Collector
	queue   chan job
	wg      sync.WaitGroup
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, collector *metrics.Collector) *Service {
	return &Service{
		DB:      db,
		Metrics: collector,
		queue:   make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
}

// Wait blocks until the worker started by Start has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType, key string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Key: key, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "key", key)
		s.Metrics.RecordJob(jobType, "dropped")
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, key string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "key", j.Key, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := s.recordStart(ctx, j)

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	s.Metrics.RecordJob(j.Type, status)
	s.recordFinish(ctx, runID, status, details)
	return details, err
}

func (s *Service) recordStart(ctx context.Context, j job) int64 {
	if s.DB == nil {
		return 0
	}
	var runID int64
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, job_key, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, j.Type, j.Key, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}
	return runID
}

func (s *Service) recordFinish(ctx context.Context, runID int64, status string, details any) {
	if s.DB == nil || runID == 0 {
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		slog.Warn("job details marshal failed", "err", err)
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		slog.Warn("job run update failed", "err", err)
	}
}
