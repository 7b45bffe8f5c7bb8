package entitlements

import (
	"testing"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
)

func TestHasPremiumAccessFreeStatus(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	tests := []struct {
		name string
		user models.User
	}{
		{name: "free everything", user: models.User{SubscriptionPlan: "free", SubscriptionStatus: "free"}},
		{name: "free status paid plan", user: models.User{SubscriptionPlan: "yearly", SubscriptionStatus: "free"}},
		{name: "free status with future expiry", user: models.User{SubscriptionPlan: "monthly", SubscriptionStatus: "free", SubscriptionEndsAt: &future}},
	}

	for _, tt := range tests {
		if HasPremiumAccess(&tt.user) {
			t.Fatalf("%s: expected no premium access", tt.name)
		}
	}
}

func TestHasPremiumAccessActivePaidPlans(t *testing.T) {
	for _, plan := range []string{"weekly", "monthly", "yearly"} {
		u := models.User{SubscriptionPlan: plan, SubscriptionStatus: "active"}
		if !HasPremiumAccess(&u) {
			t.Fatalf("expected active %s plan to have premium access", plan)
		}
	}
}

func TestHasPremiumAccessInconsistentRecord(t *testing.T) {
	// An active status paired with a free plan is corrupt data and must be
	// resolved defensively to "no access".
	u := models.User{SubscriptionPlan: "free", SubscriptionStatus: "active"}
	if HasPremiumAccess(&u) {
		t.Fatal("active status with free plan must not grant access")
	}

	u = models.User{SubscriptionPlan: "lifetime", SubscriptionStatus: "active"}
	if HasPremiumAccess(&u) {
		t.Fatal("active status with unknown plan must not grant access")
	}
}

func TestHasPremiumAccessGracePeriod(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	inGrace := models.User{SubscriptionPlan: "yearly", SubscriptionStatus: "canceled", SubscriptionEndsAt: &future}
	if !HasPremiumAccessAt(&inGrace, now) {
		t.Fatal("canceled subscription inside grace period must retain access")
	}

	expired := models.User{SubscriptionPlan: "yearly", SubscriptionStatus: "canceled", SubscriptionEndsAt: &past}
	if HasPremiumAccessAt(&expired, now) {
		t.Fatal("canceled subscription past its end date must lose access")
	}

	noExpiry := models.User{SubscriptionPlan: "yearly", SubscriptionStatus: "canceled"}
	if HasPremiumAccessAt(&noExpiry, now) {
		t.Fatal("canceled subscription without an end date must lose access")
	}
}

func TestHasPremiumAccessNilUser(t *testing.T) {
	if HasPremiumAccess(nil) {
		t.Fatal("nil user must not have premium access")
	}
}

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "weekly", want: PlanWeekly},
		{in: "MONTHLY", want: PlanMonthly},
		{in: " yearly ", want: PlanYearly},
		{in: "invalid", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPaidPlan(t *testing.T) {
	if IsPaidPlan(PlanFree) {
		t.Fatal("free plan must not be paid")
	}
	for _, p := range []Plan{PlanWeekly, PlanMonthly, PlanYearly} {
		if !IsPaidPlan(p) {
			t.Fatalf("expected %s to be a paid plan", p)
		}
	}
}
