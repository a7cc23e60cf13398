package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const dateLayout = "2006-01-02"

type Service struct {
	store StoreAPI
	group singleflight.Group
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// EffectiveRate returns the most recent adjustment on or before asOf plus the bonus of every
// badge awarded by then. Concurrent lookups for the same tutor and day share one query.
func (s *Service) EffectiveRate(ctx context.Context, userID string, asOf time.Time) (Quote, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Quote{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	day := asOf.UTC().Truncate(24 * time.Hour)
	key := userID + "|" + day.Format(dateLayout)

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.lookup(ctx, userID, day)
	})
	if err != nil {
		return Quote{}, err
	}
	return v.(Quote), nil
}

func (s *Service) lookup(ctx context.Context, userID string, day time.Time) (Quote, error) {
	adj, err := s.store.LatestAdjustment(ctx, userID, day)
	if err != nil {
		return Quote{}, fmt.Errorf("rate for %s on %s: %w", userID, day.Format(dateLayout), err)
	}
	badges, err := s.store.BadgesAsOf(ctx, userID, day)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{UserID: userID, AsOf: day, BaseRate: adj.Rate, Bonus: decimal.Zero}
	for _, b := range badges {
		q.Bonus = q.Bonus.Add(b.BonusRate)
		q.Badges = append(q.Badges, b.Badge)
	}
	q.Rate = q.BaseRate.Add(q.Bonus).Round(2)
	return q, nil
}

func (s *Service) SetRate(ctx context.Context, userID string, rate decimal.Decimal, effective time.Time, reason string) (Adjustment, error) {
	if strings.TrimSpace(userID) == "" || rate.IsNegative() {
		return Adjustment{}, ErrInvalidInput
	}
	return s.store.AddAdjustment(ctx, Adjustment{
		UserID:        strings.TrimSpace(userID),
		Rate:          rate.Round(2),
		EffectiveDate: effective.UTC().Truncate(24 * time.Hour),
		Reason:        strings.TrimSpace(reason),
	})
}

func (s *Service) AwardBadge(ctx context.Context, userID, badge string, bonus decimal.Decimal, at time.Time) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(badge) == "" || bonus.IsNegative() {
		return ErrInvalidInput
	}
	return s.store.AwardBadge(ctx, Badge{
		UserID:    strings.TrimSpace(userID),
		Badge:     strings.TrimSpace(badge),
		BonusRate: bonus.Round(2),
		AwardedAt: at.UTC().Truncate(24 * time.Hour),
	})
}
