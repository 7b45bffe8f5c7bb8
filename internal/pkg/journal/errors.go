package journal

import (
	"errors"

	"github.com/gabrielonicala/quillia/internal/pkg/credits"
	"github.com/gabrielonicala/quillia/internal/pkg/dailyusage"
)

// ErrCharacterLocked is returned when the requested character exists but is
// not accessible under the user's current tier.
var ErrCharacterLocked = errors.New("character is locked")

// ErrCharacterNotFound is returned when the character does not exist or
// belongs to another user.
var ErrCharacterNotFound = errors.New("character not found")

// QuotaExceededError carries the structured daily-limit denial so the API
// layer can render usage and limit values.
type QuotaExceededError struct {
	Check *dailyusage.CheckResult
}

func (e *QuotaExceededError) Error() string {
	return e.Check.Reason
}

// InsufficientCreditsError carries the structured affordability denial.
type InsufficientCreditsError struct {
	Result *credits.AffordabilityResult
}

func (e *InsufficientCreditsError) Error() string {
	if e.Result.Reason != "" {
		return e.Result.Reason
	}
	return "insufficient ink vials"
}
