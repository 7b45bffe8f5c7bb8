package entitlements

import (
	"strings"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanWeekly  Plan = "weekly"
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

type Status string

const (
	StatusFree     Status = "free"
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
)

// NormalizePlan maps arbitrary stored plan strings onto a known plan,
// defaulting to free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanWeekly):
		return PlanWeekly
	case string(PlanMonthly):
		return PlanMonthly
	case string(PlanYearly):
		return PlanYearly
	default:
		return PlanFree
	}
}

// NormalizeStatus maps arbitrary stored status strings onto a known status,
// defaulting to free.
func NormalizeStatus(status string) Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case string(StatusActive):
		return StatusActive
	case string(StatusCanceled):
		return StatusCanceled
	default:
		return StatusFree
	}
}

// IsPaidPlan reports whether the plan is one of the paid tiers.
func IsPaidPlan(plan Plan) bool {
	switch plan {
	case PlanWeekly, PlanMonthly, PlanYearly:
		return true
	default:
		return false
	}
}

// HasPremiumAccessAt decides whether the user has premium access at the given
// instant. An internally inconsistent record (active status on a free plan)
// never grants access: it is tolerated as corrupt data, not trusted.
//
// A canceled subscriber keeps access until SubscriptionEndsAt elapses (the
// grace period); once past, or when the expiry is missing, access is gone.
func HasPremiumAccessAt(u *models.User, at time.Time) bool {
	if u == nil {
		return false
	}

	status := NormalizeStatus(u.SubscriptionStatus)
	plan := NormalizePlan(u.SubscriptionPlan)

	if status == StatusFree {
		return false
	}
	if !IsPaidPlan(plan) {
		return false
	}

	switch status {
	case StatusActive:
		return true
	case StatusCanceled:
		return u.SubscriptionEndsAt != nil && u.SubscriptionEndsAt.After(at)
	default:
		return false
	}
}

// HasPremiumAccess decides premium access as of now. Pure apart from the
// clock read; callers must re-evaluate on every access decision rather than
// cache the result across a potential expiry boundary.
func HasPremiumAccess(u *models.User) bool {
	return HasPremiumAccessAt(u, time.Now())
}
