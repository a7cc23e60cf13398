package rates

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNoRate       = errors.New("no rate on file")
	ErrInvalidInput = errors.New("invalid rate input")
)

type Adjustment struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"userId"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	Reason        string          `json:"reason"`
}

type Badge struct {
	UserID    string          `json:"userId"`
	Badge     string          `json:"badge"`
	BonusRate decimal.Decimal `json:"bonusRate"`
	AwardedAt time.Time       `json:"awardedAt"`
}

// Quote is the hourly rate that applies to a tutor on a given day.
type Quote struct {
	UserID   string          `json:"userId"`
	AsOf     time.Time       `json:"asOf"`
	BaseRate decimal.Decimal `json:"baseRate"`
	Bonus    decimal.Decimal `json:"bonus"`
	Rate     decimal.Decimal `json:"rate"`
	Badges   []string        `json:"badges,omitempty"`
}
