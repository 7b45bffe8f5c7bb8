package credits

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepository implements Repository in memory with the same conditional
// semantics the SQL implementation gets from single-statement updates.
type fakeRepository struct {
	mu        sync.Mutex
	users     map[uint]*models.User
	purchases []models.CreditPurchase
	failUsers map[uint]error
}

func newFakeRepository(users ...*models.User) *fakeRepository {
	repo := &fakeRepository{
		users:     make(map[uint]*models.User),
		failUsers: make(map[uint]error),
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeRepository) GetUser(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failUsers[id]; ok {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepository) DeductCredits(userID uint, amount int) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, 0, errors.New("user not found")
	}
	if u.Credits < amount {
		return false, u.Credits, nil
	}
	u.Credits -= amount
	return true, u.Credits, nil
}

func (f *fakeRepository) AddCreditsWithPurchase(userID uint, amount int, purchase *models.CreditPurchase) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return 0, errors.New("user not found")
	}
	u.Credits += amount
	f.purchases = append(f.purchases, *purchase)
	return u.Credits, nil
}

func (f *fakeRepository) StampDailyRecharge(userID uint, amount int, now, eligibleBefore time.Time, purchase *models.CreditPurchase) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, 0, errors.New("user not found")
	}
	last := u.CreatedAt
	if u.LastDailyRecharge != nil {
		last = *u.LastDailyRecharge
	}
	if last.After(eligibleBefore) {
		return false, u.Credits, nil
	}
	u.Credits += amount
	stamped := now
	u.LastDailyRecharge = &stamped
	f.purchases = append(f.purchases, *purchase)
	return true, u.Credits, nil
}

func (f *fakeRepository) AddCharacterSlotWithPurchase(userID uint, purchase *models.CreditPurchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.CharacterSlots++
	f.purchases = append(f.purchases, *purchase)
	return nil
}

func (f *fakeRepository) MarkStarterKitPurchased(userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, errors.New("user not found")
	}
	if u.HasPurchasedStarterKit {
		return false, nil
	}
	u.HasPurchasedStarterKit = true
	return true, nil
}

func (f *fakeRepository) ListUserIDs() ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestCostForOutputType(t *testing.T) {
	assert.Equal(t, 15, CostForOutputType(models.OutputTypeText))
	assert.Equal(t, 80, CostForOutputType(models.OutputTypeImage))
}

func TestCanAffordEntry(t *testing.T) {
	repo := newFakeRepository(&models.User{ID: 1, Credits: 20})
	svc := NewService(repo)

	result, err := svc.CanAffordEntry(1, models.OutputTypeText)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 20, result.CurrentCredits)
	assert.Equal(t, 15, result.RequiredCredits)

	result, err = svc.CanAffordEntry(1, models.OutputTypeImage)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 20, result.CurrentCredits)
	assert.Equal(t, 80, result.RequiredCredits)
	assert.NotEmpty(t, result.Reason)
}

func TestDeductCreditsInsufficientBalance(t *testing.T) {
	repo := newFakeRepository(&models.User{ID: 1, Credits: 10})
	svc := NewService(repo)

	result, err := svc.DeductCredits(1, models.OutputTypeText)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 10, result.RemainingCredits)
	assert.NotEmpty(t, result.Error)
}

func TestDeductCreditsNeverOverdraws(t *testing.T) {
	// Starting balance 100 at cost 15 allows exactly 6 successful
	// deductions no matter how many concurrent attempts race.
	repo := newFakeRepository(&models.User{ID: 1, Credits: 100})
	svc := NewService(repo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.DeductCredits(1, models.OutputTypeText)
			if err == nil && result.Success {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, successes)
	user, err := repo.GetUser(1)
	require.NoError(t, err)
	assert.Equal(t, 10, user.Credits)
}

func TestDeductThenAffordabilityReflectsNewBalance(t *testing.T) {
	repo := newFakeRepository(&models.User{ID: 1, Credits: 30})
	svc := NewService(repo)

	result, err := svc.DeductCredits(1, models.OutputTypeText)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 15, result.RemainingCredits)

	afford, err := svc.CanAffordEntry(1, models.OutputTypeText)
	require.NoError(t, err)
	assert.Equal(t, 15, afford.CurrentCredits)
	assert.True(t, afford.Allowed)
}

func TestAddCreditsRecordsPurchase(t *testing.T) {
	repo := newFakeRepository(&models.User{ID: 1, Credits: 5})
	svc := NewService(repo)

	txID := "txn_123"
	balance, err := svc.AddCredits(1, 50, "vial-pack-50", &txID, 4.99, "{}")
	require.NoError(t, err)
	assert.Equal(t, 55, balance)

	require.Len(t, repo.purchases, 1)
	assert.Equal(t, "vial-pack-50", repo.purchases[0].PackageName)
	assert.Equal(t, 50, repo.purchases[0].InkVials)
	require.NotNil(t, repo.purchases[0].TransactionID)
	assert.Equal(t, "txn_123", *repo.purchases[0].TransactionID)

	_, err = svc.AddCredits(1, 0, "empty", nil, 0, "")
	assert.Error(t, err)
}

func TestProcessDailyRechargeEligibility(t *testing.T) {
	yesterday := time.Now().Add(-25 * time.Hour)
	repo := newFakeRepository(&models.User{ID: 1, Credits: 3, CreatedAt: yesterday})
	svc := NewService(repo)

	result, err := svc.ProcessDailyRecharge(1)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Recharged)
	assert.Equal(t, 13, result.NewBalance)

	// Second call inside the same 24h window is a no-op success.
	result, err = svc.ProcessDailyRecharge(1)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Recharged)
	assert.Equal(t, 13, result.NewBalance)

	require.Len(t, repo.purchases, 1)
	assert.Equal(t, models.PackageDailyRecharge, repo.purchases[0].PackageName)
}

func TestProcessDailyRechargeNewSignup(t *testing.T) {
	// A user signed up two hours ago has not waited out the first window.
	repo := newFakeRepository(&models.User{ID: 1, Credits: 100, CreatedAt: time.Now().Add(-2 * time.Hour)})
	svc := NewService(repo)

	result, err := svc.ProcessDailyRecharge(1)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Recharged)
	assert.Equal(t, 100, result.NewBalance)
}

func TestProcessDailyRechargeForAllUsersIsolatesFailures(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	repo := newFakeRepository(
		&models.User{ID: 1, Credits: 0, CreatedAt: old},
		&models.User{ID: 2, Credits: 0, CreatedAt: old},
		&models.User{ID: 3, Credits: 0, CreatedAt: old},
	)
	repo.failUsers[2] = errors.New("connection lost")
	svc := NewService(repo)

	summary, err := svc.ProcessDailyRechargeForAllUsers()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Recharged)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors, uint(2))
}

func TestCanPurchaseStarterKit(t *testing.T) {
	fresh := &models.User{ID: 1, CreatedAt: time.Now().Add(-5 * 24 * time.Hour)}
	stale := &models.User{ID: 2, CreatedAt: time.Now().Add(-45 * 24 * time.Hour)}
	bought := &models.User{ID: 3, CreatedAt: time.Now(), HasPurchasedStarterKit: true}
	svc := NewService(newFakeRepository(fresh, stale, bought))

	ok, err := svc.CanPurchaseStarterKit(1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanPurchaseStarterKit(2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanPurchaseStarterKit(3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurchaseStarterKitOnlyOnce(t *testing.T) {
	repo := newFakeRepository(&models.User{ID: 1, Credits: 0, CreatedAt: time.Now()})
	svc := NewService(repo)

	balance, err := svc.PurchaseStarterKit(1, 120, nil, 9.99)
	require.NoError(t, err)
	assert.Equal(t, 120, balance)

	_, err = svc.PurchaseStarterKit(1, 120, nil, 9.99)
	assert.Error(t, err)
	require.Len(t, repo.purchases, 1)
}

func TestAddCharacterSlot(t *testing.T) {
	repo := newFakeRepository(&models.User{ID: 1, CharacterSlots: 1})
	svc := NewService(repo)

	require.NoError(t, svc.AddCharacterSlot(1, nil, 2.99))
	user, err := repo.GetUser(1)
	require.NoError(t, err)
	assert.Equal(t, 2, user.CharacterSlots)
	require.Len(t, repo.purchases, 1)
	assert.Equal(t, models.PackageCharacterSlot, repo.purchases[0].PackageName)
}
