package rates

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) LatestAdjustment(ctx context.Context, userID string, asOf time.Time) (Adjustment, error) {
	var adj Adjustment
	var rate string
	err := s.DB.QueryRow(ctx, `
    SELECT id, user_id, rate::text, effective_date, reason
    FROM rate_adjustments
    WHERE user_id = $1 AND effective_date <= $2
    ORDER BY effective_date DESC, id DESC
    LIMIT 1
  `, userID, asOf).Scan(&adj.ID, &adj.UserID, &rate, &adj.EffectiveDate, &adj.Reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return Adjustment{}, ErrNoRate
	}
	if err != nil {
		return Adjustment{}, err
	}
	adj.Rate, err = decimal.NewFromString(rate)
	return adj, err
}

func (s *Store) BadgesAsOf(ctx context.Context, userID string, asOf time.Time) ([]Badge, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT user_id, badge, bonus_rate::text, awarded_at
    FROM user_badges
    WHERE user_id = $1 AND awarded_at <= $2
    ORDER BY awarded_at, badge
  `, userID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Badge
	for rows.Next() {
		var b Badge
		var bonus string
		if err := rows.Scan(&b.UserID, &b.Badge, &bonus, &b.AwardedAt); err != nil {
			return nil, err
		}
		if b.BonusRate, err = decimal.NewFromString(bonus); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) AddAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO rate_adjustments (user_id, rate, effective_date, reason)
    VALUES ($1, $2::numeric, $3, $4)
    RETURNING id
  `, adj.UserID, adj.Rate.StringFixed(2), adj.EffectiveDate, adj.Reason).Scan(&adj.ID)
	return adj, err
}

func (s *Store) AwardBadge(ctx context.Context, b Badge) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO user_badges (user_id, badge, bonus_rate, awarded_at)
    VALUES ($1, $2, $3::numeric, $4)
    ON CONFLICT (user_id, badge) DO UPDATE SET bonus_rate = EXCLUDED.bonus_rate
  `, b.UserID, b.Badge, b.BonusRate.StringFixed(2), b.AwardedAt)
	return err
}
