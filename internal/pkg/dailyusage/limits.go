package dailyusage

import (
	"fmt"

	"github.com/gabrielonicala/quillia/internal/pkg/env"
)

// LimitRegime selects how premium daily quotas are scoped. Global
// configuration, not per-user.
type LimitRegime string

const (
	// RegimeShared gives premium users one pool across all characters.
	RegimeShared LimitRegime = "shared"
	// RegimePerCharacter gives premium users a quota per individual
	// character. Free users always keep the shared free pool: they only
	// ever have one accessible character anyway.
	RegimePerCharacter LimitRegime = "per_character"
)

// Usage is a day's chapter and scene counts.
type Usage struct {
	Chapters int `json:"chapters"`
	Scenes   int `json:"scenes"`
}

// LimitsConfig carries the tiered daily quota values. Injected rather than
// hardcoded so both regimes stay testable without code changes.
type LimitsConfig struct {
	Regime LimitRegime

	PremiumShared       Usage
	PremiumPerCharacter Usage
	Free                Usage
}

// DefaultLimits returns the production quota table.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		Regime:              RegimeShared,
		PremiumShared:       Usage{Chapters: 15, Scenes: 5},
		PremiumPerCharacter: Usage{Chapters: 10, Scenes: 1},
		Free:                Usage{Chapters: 5, Scenes: 1},
	}
}

// LimitsFromEnv returns the default table with the regime taken from
// DAILY_LIMIT_REGIME ("shared" or "per_character").
func LimitsFromEnv() LimitsConfig {
	cfg := DefaultLimits()
	if env.GetEnv("DAILY_LIMIT_REGIME", string(RegimeShared)) == string(RegimePerCharacter) {
		cfg.Regime = RegimePerCharacter
	}
	return cfg
}

// limitFor picks the applicable quota for the user's tier under this config.
func (c LimitsConfig) limitFor(premium bool) Usage {
	if !premium {
		return c.Free
	}
	if c.Regime == RegimePerCharacter {
		return c.PremiumPerCharacter
	}
	return c.PremiumShared
}

// CheckResult is the structured outcome of a quota check, rich enough for a
// UI layer to render an informative message.
type CheckResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Usage   Usage  `json:"usage"`
	Limit   Usage  `json:"limit"`
}

func denyChapters(usage, limit Usage) *CheckResult {
	return &CheckResult{
		Allowed: false,
		Reason:  fmt.Sprintf("daily chapter limit of %d reached (%d/%d)", limit.Chapters, usage.Chapters, limit.Chapters),
		Usage:   usage,
		Limit:   limit,
	}
}

func denyScenes(usage, limit Usage) *CheckResult {
	return &CheckResult{
		Allowed: false,
		Reason:  fmt.Sprintf("daily scene limit of %d reached (%d/%d)", limit.Scenes, usage.Scenes, limit.Scenes),
		Usage:   usage,
		Limit:   limit,
	}
}
