package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/internal/pkg/characteraccess"
	"github.com/gabrielonicala/quillia/internal/pkg/charactermemory"
	"github.com/gabrielonicala/quillia/internal/pkg/credits"
	"github.com/gabrielonicala/quillia/internal/pkg/dailyusage"
	"github.com/gabrielonicala/quillia/internal/pkg/generation"
	"github.com/gabrielonicala/quillia/internal/pkg/statengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	user *models.User
}

func (f *fakeUserRepo) Create(*models.User) error { return errors.New("not implemented") }
func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, errors.New("user not found")
	}
	return f.user, nil
}
func (f *fakeUserRepo) GetByEmail(string) (*models.User, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeUserRepo) GetByAPIKeyHash(string) (*models.User, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeUserRepo) Update(*models.User) error                        { return nil }
func (f *fakeUserRepo) UpdateColumns(uint, map[string]interface{}) error { return nil }
func (f *fakeUserRepo) ListIDs() ([]uint, error)                         { return nil, nil }
func (f *fakeUserRepo) ListExpiredCanceled(time.Time) ([]models.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) Count() (int64, error) { return 0, nil }

type fakeCharacterRepo struct {
	character *models.Character
}

func (f *fakeCharacterRepo) Create(*models.Character) error { return errors.New("not implemented") }
func (f *fakeCharacterRepo) GetByID(id uint) (*models.Character, error) {
	if f.character == nil || f.character.ID != id {
		return nil, errors.New("character not found")
	}
	return f.character, nil
}
func (f *fakeCharacterRepo) ListByUser(uint) ([]models.Character, error) { return nil, nil }
func (f *fakeCharacterRepo) CountByUser(uint) (int64, error)             { return 0, nil }
func (f *fakeCharacterRepo) Update(*models.Character) error              { return nil }
func (f *fakeCharacterRepo) Delete(uint) error                           { return nil }

type fakeEntryRepo struct {
	created []*models.JournalEntry
	failOn  bool
}

func (f *fakeEntryRepo) Create(entry *models.JournalEntry) error {
	if f.failOn {
		return errors.New("insert failed")
	}
	entry.ID = uint(len(f.created) + 1)
	entry.CreatedAt = time.Now()
	f.created = append(f.created, entry)
	return nil
}
func (f *fakeEntryRepo) GetByUUID(uuid string) (*models.JournalEntry, error) {
	for _, e := range f.created {
		if e.UUID == uuid {
			return e, nil
		}
	}
	return nil, errors.New("entry not found")
}
func (f *fakeEntryRepo) ListByCharacter(characterID uint, offset, limit int) ([]models.JournalEntry, error) {
	var out []models.JournalEntry
	for _, e := range f.created {
		if e.CharacterID == characterID {
			out = append(out, *e)
		}
	}
	return out, nil
}
func (f *fakeEntryRepo) ListTimestampsByCharacter(uint) ([]time.Time, error) { return nil, nil }
func (f *fakeEntryRepo) CountByCharacter(uint) (int64, error)                { return 0, nil }
func (f *fakeEntryRepo) Count() (int64, error)                               { return 0, nil }
func (f *fakeEntryRepo) CountSince(time.Time) (int64, error)                 { return 0, nil }
func (f *fakeEntryRepo) UpdateProgression(uint, int, string) error           { return nil }

type fakeAccess struct {
	access *characteraccess.Access
}

func (f *fakeAccess) GetCharacterAccess(uint) (*characteraccess.Access, error) {
	return f.access, nil
}

type fakeLedger struct {
	balance    int
	cost       map[models.OutputType]int
	deductions int
	failDeduct bool
}

func newFakeLedger(balance int) *fakeLedger {
	return &fakeLedger{
		balance: balance,
		cost: map[models.OutputType]int{
			models.OutputTypeText:  credits.CostChapter,
			models.OutputTypeImage: credits.CostScene,
		},
	}
}

func (f *fakeLedger) CanAffordEntry(_ uint, kind models.OutputType) (*credits.AffordabilityResult, error) {
	required := f.cost[kind]
	if f.balance < required {
		return &credits.AffordabilityResult{
			Allowed:         false,
			CurrentCredits:  f.balance,
			RequiredCredits: required,
			Reason:          "not enough ink vials",
		}, nil
	}
	return &credits.AffordabilityResult{Allowed: true, CurrentCredits: f.balance, RequiredCredits: required}, nil
}

func (f *fakeLedger) DeductCredits(_ uint, kind models.OutputType) (*credits.DeductResult, error) {
	required := f.cost[kind]
	if f.failDeduct || f.balance < required {
		return &credits.DeductResult{Success: false, RemainingCredits: f.balance, Error: "insufficient ink vials"}, nil
	}
	f.balance -= required
	f.deductions++
	return &credits.DeductResult{Success: true, RemainingCredits: f.balance}, nil
}

type fakeUsage struct {
	allowed    bool
	reason     string
	increments int
}

func (f *fakeUsage) CanCreateEntry(*models.User, uint, models.OutputType) (*dailyusage.CheckResult, error) {
	if !f.allowed {
		return &dailyusage.CheckResult{Allowed: false, Reason: f.reason}, nil
	}
	return &dailyusage.CheckResult{Allowed: true}, nil
}

func (f *fakeUsage) Increment(*models.User, uint, models.OutputType) error {
	f.increments++
	return nil
}

type fakeMemory struct {
	memory  *charactermemory.Memory
	updates []charactermemory.NewEntry
}

func (f *fakeMemory) Get(uint) (*charactermemory.Memory, error) {
	if f.memory == nil {
		f.memory = &charactermemory.Memory{WorldState: models.NewWorldState()}
	}
	return f.memory, nil
}

func (f *fakeMemory) Update(_ uint, entry charactermemory.NewEntry) (*charactermemory.Memory, error) {
	f.updates = append(f.updates, entry)
	return f.memory, nil
}

type fakeEngine struct {
	changes map[string]statengine.StatChange
	applied int
}

func (f *fakeEngine) Evaluate(context.Context, string, string, string, models.CharacterStats) map[string]statengine.StatChange {
	return f.changes
}

func (f *fakeEngine) Apply(uint, uint, map[string]statengine.StatChange, string) (*statengine.ApplyResult, error) {
	f.applied++
	return &statengine.ApplyResult{ExpGained: 18, NewLevel: 1}, nil
}

type fakeStats struct {
	recorded []*models.JournalEntry
}

func (f *fakeStats) RecordEntry(_ uint, entry *models.JournalEntry) error {
	f.recorded = append(f.recorded, entry)
	return nil
}

type fakeStories struct {
	text  string
	err   error
	calls int
}

func (f *fakeStories) GenerateStory(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeScenes struct {
	err   error
	calls int
}

func (f *fakeScenes) GenerateScene(context.Context, string) (*generation.SceneResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &generation.SceneResult{Data: []byte{1, 2, 3}, ContentType: "image/png"}, nil
}

type fakeSceneStore struct {
	saved int
}

func (f *fakeSceneStore) SaveScene(_ context.Context, entryUUID string, _ []byte, _ string) (string, error) {
	f.saved++
	return "https://cdn.example.com/scenes/" + entryUUID + ".png", nil
}

// markerVault makes ciphertext recognizable without real crypto.
type markerVault struct{}

func (markerVault) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }
func (markerVault) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not ciphertext")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

type pipeline struct {
	svc     *Service
	users   *fakeUserRepo
	chars   *fakeCharacterRepo
	entries *fakeEntryRepo
	ledger  *fakeLedger
	usage   *fakeUsage
	memory  *fakeMemory
	engine  *fakeEngine
	stats   *fakeStats
	stories *fakeStories
	scenes  *fakeScenes
	store   *fakeSceneStore
}

func newPipeline(t *testing.T, balance int) *pipeline {
	t.Helper()

	user := &models.User{Timezone: "UTC", Credits: balance}
	user.ID = 1
	character, err := models.NewCharacter(1, "Aldric", models.ThemeFantasy)
	require.NoError(t, err)
	character.ID = 10

	p := &pipeline{
		users:   &fakeUserRepo{user: user},
		chars:   &fakeCharacterRepo{character: character},
		entries: &fakeEntryRepo{},
		ledger:  newFakeLedger(balance),
		usage:   &fakeUsage{allowed: true},
		memory:  &fakeMemory{},
		engine:  &fakeEngine{changes: map[string]statengine.StatChange{}},
		stats:   &fakeStats{},
		stories: &fakeStories{text: "The knight pressed on."},
		scenes:  &fakeScenes{},
		store:   &fakeSceneStore{},
	}
	p.svc = NewService(Deps{
		Users:      p.users,
		Characters: p.chars,
		Entries:    p.entries,
		Access:     &fakeAccess{access: &characteraccess.Access{Accessible: []models.Character{*character}, TotalAllowed: 1, TotalOwned: 1}},
		Ledger:     p.ledger,
		Usage:      p.usage,
		Memory:     p.memory,
		Engine:     p.engine,
		Stats:      p.stats,
		Stories:    p.stories,
		Scenes:     p.scenes,
		SceneStore: p.store,
		Vault:      markerVault{},
	})
	return p
}

func textInput() CreateEntryInput {
	return CreateEntryInput{
		UserID:      1,
		CharacterID: 10,
		Text:        "walked to the old pier before sunrise",
		OutputType:  models.OutputTypeText,
	}
}

func TestCreateEntryTextHappyPath(t *testing.T) {
	p := newPipeline(t, 100)

	result, err := p.svc.CreateEntry(context.Background(), textInput())
	require.NoError(t, err)

	assert.Equal(t, "The knight pressed on.", result.ReimaginedText)
	assert.Equal(t, 100-credits.CostChapter, result.RemainingCredits)
	assert.Equal(t, 18, result.ExpGained)

	require.Len(t, p.entries.created, 1)
	entry := p.entries.created[0]
	assert.NotEmpty(t, entry.UUID)
	assert.Equal(t, "enc:walked to the old pier before sunrise", entry.OriginalTextEnc)
	assert.Equal(t, "enc:The knight pressed on.", entry.ReimaginedTextEnc)

	assert.Equal(t, 1, p.ledger.deductions)
	assert.Equal(t, 1, p.usage.increments)
	require.Len(t, p.memory.updates, 1)
	assert.Equal(t, entry.UUID, p.memory.updates[0].ID)
	assert.Len(t, p.stats.recorded, 1)
	assert.Equal(t, 1, p.engine.applied)
	assert.Equal(t, 0, p.scenes.calls, "text entries never render scenes")
}

func TestCreateEntryImageStoresScene(t *testing.T) {
	p := newPipeline(t, 100)

	input := textInput()
	input.OutputType = models.OutputTypeImage

	result, err := p.svc.CreateEntry(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 1, p.scenes.calls)
	assert.Equal(t, 1, p.store.saved)
	assert.Contains(t, result.SceneImageURL, p.entries.created[0].UUID)
	assert.Equal(t, result.SceneImageURL, p.entries.created[0].SceneImageURL)
	assert.Equal(t, 100-credits.CostScene, result.RemainingCredits)
}

func TestCreateEntryInsufficientCredits(t *testing.T) {
	p := newPipeline(t, 10)

	_, err := p.svc.CreateEntry(context.Background(), textInput())

	var insufficientErr *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, 10, insufficientErr.Result.CurrentCredits)
	assert.Equal(t, credits.CostChapter, insufficientErr.Result.RequiredCredits)

	assert.Equal(t, 0, p.stories.calls, "generation must not run when unaffordable")
	assert.Empty(t, p.entries.created)
	assert.Equal(t, 0, p.usage.increments)
}

func TestCreateEntryQuotaExceeded(t *testing.T) {
	p := newPipeline(t, 100)
	p.usage.allowed = false
	p.usage.reason = "daily chapter limit of 5 reached (5/5)"

	_, err := p.svc.CreateEntry(context.Background(), textInput())

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Contains(t, quotaErr.Check.Reason, "daily chapter limit")
	assert.Equal(t, 0, p.stories.calls)
	assert.Equal(t, 0, p.ledger.deductions)
}

func TestCreateEntryLockedCharacter(t *testing.T) {
	p := newPipeline(t, 100)
	p.svc.access = &fakeAccess{access: &characteraccess.Access{
		Locked:       []models.Character{*p.chars.character},
		TotalAllowed: 1,
		TotalOwned:   2,
	}}

	_, err := p.svc.CreateEntry(context.Background(), textInput())
	assert.ErrorIs(t, err, ErrCharacterLocked)
	assert.Empty(t, p.entries.created)
}

func TestCreateEntryGenerationFailureLeavesLedgerUntouched(t *testing.T) {
	p := newPipeline(t, 100)
	p.stories.err = errors.New("provider timeout")

	_, err := p.svc.CreateEntry(context.Background(), textInput())
	require.Error(t, err)

	assert.Equal(t, 0, p.ledger.deductions)
	assert.Equal(t, 100, p.ledger.balance)
	assert.Equal(t, 0, p.usage.increments)
	assert.Empty(t, p.entries.created)
	assert.Empty(t, p.memory.updates)
}

func TestCreateEntrySceneFailureLeavesLedgerUntouched(t *testing.T) {
	p := newPipeline(t, 100)
	p.scenes.err = errors.New("render failed")

	input := textInput()
	input.OutputType = models.OutputTypeImage

	_, err := p.svc.CreateEntry(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, 0, p.ledger.deductions)
	assert.Empty(t, p.entries.created)
}

func TestCreateEntryDeductRaceReportsFreshBalance(t *testing.T) {
	p := newPipeline(t, 100)
	p.ledger.failDeduct = true

	_, err := p.svc.CreateEntry(context.Background(), textInput())

	var insufficientErr *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Empty(t, p.entries.created)
	assert.Equal(t, 0, p.usage.increments)
}

func TestListEntriesDecrypts(t *testing.T) {
	p := newPipeline(t, 100)

	_, err := p.svc.CreateEntry(context.Background(), textInput())
	require.NoError(t, err)

	entries, err := p.svc.ListEntries(1, 10, 0, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "walked to the old pier before sunrise", entries[0].OriginalText)
	assert.Equal(t, "The knight pressed on.", entries[0].ReimaginedText)
}

func TestGetEntryEnforcesOwnership(t *testing.T) {
	p := newPipeline(t, 100)

	_, err := p.svc.CreateEntry(context.Background(), textInput())
	require.NoError(t, err)

	_, err = p.svc.GetEntry(99, p.entries.created[0].UUID)
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}
