package credits

import (
	"time"

	"github.com/gabrielonicala/quillia/app/models"
)

// Fixed ink vial costs per generation output. Constants, not per-user
// configurable.
const (
	CostChapter = 15 // text narrative
	CostScene   = 80 // image
)

const (
	// DailyRechargeAmount is the free daily grant of ink vials.
	DailyRechargeAmount = 10
	// DailyRechargeInterval is the minimum gap between two recharges.
	DailyRechargeInterval = 24 * time.Hour
	// StarterKitWindow is how long after signup the starter kit stays purchasable.
	StarterKitWindow = 30 * 24 * time.Hour
	// StarterKitVials is the ink vial grant of the one-time starter kit.
	StarterKitVials = 250
)

// AffordabilityResult is the read-only outcome of an affordability check.
// Insufficient funds is a normal reported outcome, never an error.
type AffordabilityResult struct {
	Allowed         bool   `json:"allowed"`
	CurrentCredits  int    `json:"current_credits"`
	RequiredCredits int    `json:"required_credits"`
	Reason          string `json:"reason,omitempty"`
}

// DeductResult is the outcome of a deduction attempt.
type DeductResult struct {
	Success          bool   `json:"success"`
	RemainingCredits int    `json:"remaining_credits"`
	Error            string `json:"error,omitempty"`
}

// RechargeResult is the outcome of one daily recharge attempt. A user who is
// not yet eligible gets a no-op success with Recharged=false.
type RechargeResult struct {
	Success    bool `json:"success"`
	Recharged  bool `json:"recharged"`
	NewBalance int  `json:"new_balance"`
}

// SweepSummary reports one full pass of the recharge sweep. One user's
// failure never aborts the rest of the batch; failures are collected here.
type SweepSummary struct {
	Processed int
	Recharged int
	Errors    map[uint]error
}

// CostForOutputType returns the fixed cost for one generation of the given
// output type.
func CostForOutputType(kind models.OutputType) int {
	if kind == models.OutputTypeImage {
		return CostScene
	}
	return CostChapter
}
