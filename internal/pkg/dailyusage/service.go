package dailyusage

import (
	"fmt"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// DefaultRetentionDays is how long old daily usage rows are kept before the
// cleanup sweep purges them. Purely storage hygiene; current-day checks never
// look that far back.
const DefaultRetentionDays = 30

// Service enforces the tiered daily generation quotas, independent of the
// credit ledger.
type Service struct {
	repo   Repository
	limits LimitsConfig
	now    func() time.Time
}

// NewService creates a daily usage counter with an injected quota config.
func NewService(repo Repository, limits LimitsConfig) *Service {
	return &Service{repo: repo, limits: limits, now: time.Now}
}

// NewServiceFromDB creates a daily usage counter from a GORM DB handle using
// the env-configured limit regime.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), LimitsFromEnv())
}

// Limits returns the active quota configuration.
func (s *Service) Limits() LimitsConfig {
	return s.limits
}

// Increment bumps the user's counter for the current local day. Must be
// called only after the corresponding CanCreateEntry check passed and the
// generation succeeded.
func (s *Service) Increment(user *models.User, characterID uint, kind models.OutputType) error {
	date := UserDate(user.Timezone, s.now())
	if err := s.repo.IncrementUsage(user.ID, characterID, date, kind); err != nil {
		return fmt.Errorf("daily usage: increment user %d day %s: %w", user.ID, date.Format("2006-01-02"), err)
	}
	return nil
}

// CanCreateEntry checks the user's current local-day usage against the
// applicable quota. Premium scope depends on the configured regime; free
// users always draw from one shared pool.
func (s *Service) CanCreateEntry(user *models.User, characterID uint, kind models.OutputType) (*CheckResult, error) {
	premium := entitlements.HasPremiumAccessAt(user, s.now())
	limit := s.limits.limitFor(premium)
	date := UserDate(user.Timezone, s.now())

	var usage Usage
	var err error
	if premium && s.limits.Regime == RegimePerCharacter {
		usage, err = s.repo.UsageForCharacter(user.ID, characterID, date)
	} else {
		usage, err = s.repo.UsageForUser(user.ID, date)
	}
	if err != nil {
		return nil, fmt.Errorf("daily usage: read usage for user %d: %w", user.ID, err)
	}

	if kind == models.OutputTypeImage {
		if usage.Scenes >= limit.Scenes {
			return denyScenes(usage, limit), nil
		}
	} else {
		if usage.Chapters >= limit.Chapters {
			return denyChapters(usage, limit), nil
		}
	}
	return &CheckResult{Allowed: true, Usage: usage, Limit: limit}, nil
}

// UsageToday returns the user's counters for the current local day, scoped
// the same way CanCreateEntry would scope them.
func (s *Service) UsageToday(user *models.User, characterID uint) (Usage, error) {
	premium := entitlements.HasPremiumAccessAt(user, s.now())
	date := UserDate(user.Timezone, s.now())
	if premium && s.limits.Regime == RegimePerCharacter {
		return s.repo.UsageForCharacter(user.ID, characterID, date)
	}
	return s.repo.UsageForUser(user.ID, date)
}

// CleanupOldUsage purges rows older than the retention window. Safe to run
// concurrently with request traffic.
func (s *Service) CleanupOldUsage(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)

	deleted, err := s.repo.DeleteUsageBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("daily usage: cleanup before %s: %w", cutoff.Format("2006-01-02"), err)
	}
	if deleted > 0 {
		log.Infof("[DailyUsage] purged %d rows older than %s", deleted, cutoff.Format("2006-01-02"))
	}
	return deleted, nil
}
