package usage

import (
	"context"
	"time"

	"codeberg.org/melodygen/server/internal/quota"
)

// the slice of the quota ledger the usage endpoint needs
type UsageReader interface {
	Usage(ctx context.Context, userID string) (*quota.Quota, error)
}

// response for GET /usage
type Response struct {
	PlanType     string    `json:"plan_type"`
	MonthlyLimit int       `json:"monthly_limit"`
	CurrentUsage int       `json:"current_usage"`
	Remaining    int       `json:"remaining"`
	ResetDate    time.Time `json:"reset_date"`
}
