package statengine

import (
	"context"
	"math"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// MaxStatDelta bounds how far a single entry can move any one stat.
const MaxStatDelta = 4

// defaultReason fills in when the judge omits one.
const defaultReason = "The day's events left their mark."

// RawStatChange is the untrusted shape returned by the external judge.
type RawStatChange struct {
	Change     float64 `json:"change"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// StatChange is one validated, clamped stat delta.
type StatChange struct {
	Change     int     `json:"change"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Judge scores a narrative against the theme's stat vocabulary. External
// collaborator; its output is fully distrusted and re-validated here.
type Judge interface {
	EvaluateStatChanges(ctx context.Context, originalText, reimaginedText, theme string, currentStats models.CharacterStats) (map[string]RawStatChange, error)
}

// ValidateStatChanges enforces the post-processing contract on raw judge
// output regardless of what came back: stat names outside the theme's
// vocabulary are dropped, changes are rounded then clamped to [-4, 4],
// confidence is clamped to [0, 1] and a missing reason gets a placeholder.
func ValidateStatChanges(theme string, raw map[string]RawStatChange) map[string]StatChange {
	validated := make(map[string]StatChange, len(raw))
	for name, change := range raw {
		if !models.ThemeDefinesStat(theme, name) {
			log.Warnf("[StatEngine] judge proposed unknown stat %q for theme %s, skipping", name, theme)
			continue
		}

		delta := int(math.Round(change.Change))
		if delta > MaxStatDelta {
			delta = MaxStatDelta
		} else if delta < -MaxStatDelta {
			delta = -MaxStatDelta
		}

		confidence := change.Confidence
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}

		reason := change.Reason
		if reason == "" {
			reason = defaultReason
		}

		validated[name] = StatChange{Change: delta, Reason: reason, Confidence: confidence}
	}
	return validated
}

// Evaluate asks the judge for stat deltas and validates the result. A judge
// failure is logged and returns an empty change set: stat evaluation must
// never fail the entry that triggered it.
func (s *Service) Evaluate(ctx context.Context, originalText, reimaginedText, theme string, currentStats models.CharacterStats) map[string]StatChange {
	raw, err := s.judge.EvaluateStatChanges(ctx, originalText, reimaginedText, theme, currentStats)
	if err != nil {
		log.Errorf("[StatEngine] judge call failed: %v", err)
		return map[string]StatChange{}
	}
	return ValidateStatChanges(theme, raw)
}
