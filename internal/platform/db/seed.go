package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tutordesk/internal/platform/config"
)

// Seed registers a demo tutor with an opening rate so that a fresh environment can accept
// lesson events straight away. It is safe to run repeatedly.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	tutorID := strings.TrimSpace(cfg.SeedTutorID)
	if tutorID == "" {
		return nil
	}
	rate, err := decimal.NewFromString(cfg.SeedTutorRate)
	if err != nil {
		return err
	}
	if err := ensureTutor(ctx, pool, tutorID, cfg.SeedTutorEmail); err != nil {
		return err
	}
	return ensureOpeningRate(ctx, pool, tutorID, rate)
}

func ensureTutor(ctx context.Context, pool *pgxpool.Pool, id, email string) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO tutors (id, name, email)
    VALUES ($1, $2, $3)
    ON CONFLICT (id) DO NOTHING
  `, id, "Demo Tutor", email)
	return err
}

func ensureOpeningRate(ctx context.Context, pool *pgxpool.Pool, tutorID string, rate decimal.Decimal) error {
	var id int64
	err := pool.QueryRow(ctx, "SELECT id FROM rate_adjustments WHERE user_id = $1 LIMIT 1", tutorID).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO rate_adjustments (user_id, rate, effective_date, reason)
    VALUES ($1, $2, DATE '2000-01-01', 'opening rate')
  `, tutorID, rate)
	return err
}
