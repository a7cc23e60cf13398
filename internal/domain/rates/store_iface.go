package rates

import (
	"context"
	"time"
)

type StoreAPI interface {
	LatestAdjustment(ctx context.Context, userID string, asOf time.Time) (Adjustment, error)
	BadgesAsOf(ctx context.Context, userID string, asOf time.Time) ([]Badge, error)
	AddAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error)
	AwardBadge(ctx context.Context, b Badge) error
}
