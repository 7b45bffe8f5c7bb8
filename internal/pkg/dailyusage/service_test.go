package dailyusage

import (
	"sync"
	"testing"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type usageKey struct {
	userID      uint
	characterID uint
	date        time.Time
}

// fakeRepository implements Repository with the same atomic upsert semantics
// the SQL implementation provides.
type fakeRepository struct {
	mu   sync.Mutex
	rows map[usageKey]*Usage
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: make(map[usageKey]*Usage)}
}

func (f *fakeRepository) IncrementUsage(userID, characterID uint, date time.Time, kind models.OutputType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := usageKey{userID: userID, characterID: characterID, date: date}
	row, ok := f.rows[key]
	if !ok {
		row = &Usage{}
		f.rows[key] = row
	}
	if kind == models.OutputTypeImage {
		row.Scenes++
	} else {
		row.Chapters++
	}
	return nil
}

func (f *fakeRepository) UsageForUser(userID uint, date time.Time) (Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total Usage
	for key, row := range f.rows {
		if key.userID == userID && key.date.Equal(date) {
			total.Chapters += row.Chapters
			total.Scenes += row.Scenes
		}
	}
	return total, nil
}

func (f *fakeRepository) UsageForCharacter(userID, characterID uint, date time.Time) (Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := usageKey{userID: userID, characterID: characterID, date: date}
	if row, ok := f.rows[key]; ok {
		return *row, nil
	}
	return Usage{}, nil
}

func (f *fakeRepository) DeleteUsageBefore(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for key := range f.rows {
		if key.date.Before(cutoff) {
			delete(f.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

func freeUser() *models.User {
	return &models.User{
		ID:                 1,
		SubscriptionPlan:   models.SubscriptionPlanFree,
		SubscriptionStatus: models.SubscriptionStatusFree,
		Timezone:           "UTC",
	}
}

func premiumUser() *models.User {
	return &models.User{
		ID:                 2,
		SubscriptionPlan:   models.SubscriptionPlanMonthly,
		SubscriptionStatus: models.SubscriptionStatusActive,
		Timezone:           "UTC",
	}
}

func newTestService(limits LimitsConfig) (*Service, *fakeRepository) {
	repo := newFakeRepository()
	svc := NewService(repo, limits)
	return svc, repo
}

func TestFreeUserChapterLimit(t *testing.T) {
	svc, _ := newTestService(DefaultLimits())
	user := freeUser()

	for i := 0; i < 5; i++ {
		result, err := svc.CanCreateEntry(user, 10, models.OutputTypeText)
		require.NoError(t, err)
		require.True(t, result.Allowed, "chapter %d should be allowed", i+1)
		require.NoError(t, svc.Increment(user, 10, models.OutputTypeText))
	}

	result, err := svc.CanCreateEntry(user, 10, models.OutputTypeText)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "daily chapter limit of 5")
	assert.Equal(t, 5, result.Usage.Chapters)
	assert.Equal(t, 5, result.Limit.Chapters)
}

func TestFreeUserSceneLimit(t *testing.T) {
	svc, _ := newTestService(DefaultLimits())
	user := freeUser()

	result, err := svc.CanCreateEntry(user, 10, models.OutputTypeImage)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.NoError(t, svc.Increment(user, 10, models.OutputTypeImage))

	result, err = svc.CanCreateEntry(user, 10, models.OutputTypeImage)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "daily scene limit of 1")
	assert.Equal(t, 1, result.Usage.Scenes)
}

func TestSharedRegimePoolsAcrossCharacters(t *testing.T) {
	svc, _ := newTestService(DefaultLimits())
	user := premiumUser()

	// 15 chapters spread over three characters exhaust the shared pool.
	for i := 0; i < 15; i++ {
		characterID := uint(10 + i%3)
		result, err := svc.CanCreateEntry(user, characterID, models.OutputTypeText)
		require.NoError(t, err)
		require.True(t, result.Allowed)
		require.NoError(t, svc.Increment(user, characterID, models.OutputTypeText))
	}

	result, err := svc.CanCreateEntry(user, 99, models.OutputTypeText)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 15, result.Usage.Chapters)
}

func TestPerCharacterRegimeScopesByCharacter(t *testing.T) {
	limits := DefaultLimits()
	limits.Regime = RegimePerCharacter
	svc, _ := newTestService(limits)
	user := premiumUser()

	for i := 0; i < 10; i++ {
		result, err := svc.CanCreateEntry(user, 10, models.OutputTypeText)
		require.NoError(t, err)
		require.True(t, result.Allowed)
		require.NoError(t, svc.Increment(user, 10, models.OutputTypeText))
	}

	// Character 10 is exhausted, character 11 has its own quota.
	result, err := svc.CanCreateEntry(user, 10, models.OutputTypeText)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	result, err = svc.CanCreateEntry(user, 11, models.OutputTypeText)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestPerCharacterRegimeFreeUserStaysShared(t *testing.T) {
	limits := DefaultLimits()
	limits.Regime = RegimePerCharacter
	svc, _ := newTestService(limits)
	user := freeUser()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Increment(user, 10, models.OutputTypeText))
	}

	// Free tier never gets per-character multiplication.
	result, err := svc.CanCreateEntry(user, 11, models.OutputTypeText)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 5, result.Usage.Chapters)
}

func TestIncrementKeysByLocalDay(t *testing.T) {
	svc, repo := newTestService(DefaultLimits())
	user := freeUser()
	user.Timezone = "America/New_York"
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2026, 3, 9, 23, 59, 59, 0, ny) }
	require.NoError(t, svc.Increment(user, 10, models.OutputTypeText))

	svc.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 1, 0, ny) }
	require.NoError(t, svc.Increment(user, 10, models.OutputTypeText))

	dayOne, err := repo.UsageForUser(user.ID, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	dayTwo, err := repo.UsageForUser(user.ID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 1, dayOne.Chapters)
	assert.Equal(t, 1, dayTwo.Chapters)
}

func TestCleanupOldUsage(t *testing.T) {
	svc, repo := newTestService(DefaultLimits())
	user := freeUser()

	old := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return old }
	require.NoError(t, svc.Increment(user, 10, models.OutputTypeText))

	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return today }
	require.NoError(t, svc.Increment(user, 10, models.OutputTypeText))

	deleted, err := svc.CleanupOldUsage(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// The current day's row is untouched.
	current, err := repo.UsageForUser(user.ID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, current.Chapters)
}
