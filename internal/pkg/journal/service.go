// Package journal orchestrates entry creation: access and quota gates,
// prompt building, external generation, credit deduction and all follow-up
// bookkeeping. Generation failures abort before any ledger or counter
// mutation; stat evaluation failures never fail the entry.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/app/repository"
	"github.com/gabrielonicala/quillia/internal/pkg/characteraccess"
	"github.com/gabrielonicala/quillia/internal/pkg/charactermemory"
	"github.com/gabrielonicala/quillia/internal/pkg/credits"
	"github.com/gabrielonicala/quillia/internal/pkg/dailyusage"
	"github.com/gabrielonicala/quillia/internal/pkg/generation"
	"github.com/gabrielonicala/quillia/internal/pkg/scenestore"
	"github.com/gabrielonicala/quillia/internal/pkg/statengine"
	"github.com/gabrielonicala/quillia/internal/pkg/textvault"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// AccessGate decides which characters the user may write with.
type AccessGate interface {
	GetCharacterAccess(userID uint) (*characteraccess.Access, error)
}

// CreditLedger gates and charges entry generation.
type CreditLedger interface {
	CanAffordEntry(userID uint, kind models.OutputType) (*credits.AffordabilityResult, error)
	DeductCredits(userID uint, kind models.OutputType) (*credits.DeductResult, error)
}

// UsageCounter enforces and records daily limits.
type UsageCounter interface {
	CanCreateEntry(user *models.User, characterID uint, kind models.OutputType) (*dailyusage.CheckResult, error)
	Increment(user *models.User, characterID uint, kind models.OutputType) error
}

// MemoryStore reads and folds narrative memory.
type MemoryStore interface {
	Get(characterID uint) (*charactermemory.Memory, error)
	Update(characterID uint, entry charactermemory.NewEntry) (*charactermemory.Memory, error)
}

// StatEngine evaluates and applies stat progression.
type StatEngine interface {
	Evaluate(ctx context.Context, originalText, reimaginedText, theme string, currentStats models.CharacterStats) map[string]statengine.StatChange
	Apply(characterID, entryID uint, changes map[string]statengine.StatChange, originalText string) (*statengine.ApplyResult, error)
}

// StatsRecorder folds a created entry into the character's lifetime stats.
type StatsRecorder interface {
	RecordEntry(characterID uint, entry *models.JournalEntry) error
}

// Service wires the whole entry-creation pipeline together.
type Service struct {
	users      repository.UserRepository
	characters repository.CharacterRepository
	entries    repository.EntryRepository
	access     AccessGate
	ledger     CreditLedger
	usage      UsageCounter
	memory     MemoryStore
	engine     StatEngine
	stats      StatsRecorder
	stories    generation.StoryGenerator
	scenes     generation.SceneGenerator
	sceneStore scenestore.Store
	vault      textvault.Vault
	validate   *validator.Validate
}

// Deps bundles the pipeline collaborators.
type Deps struct {
	Users      repository.UserRepository
	Characters repository.CharacterRepository
	Entries    repository.EntryRepository
	Access     AccessGate
	Ledger     CreditLedger
	Usage      UsageCounter
	Memory     MemoryStore
	Engine     StatEngine
	Stats      StatsRecorder
	Stories    generation.StoryGenerator
	Scenes     generation.SceneGenerator
	SceneStore scenestore.Store
	Vault      textvault.Vault
}

// NewService creates the journal pipeline.
func NewService(deps Deps) *Service {
	return &Service{
		users:      deps.Users,
		characters: deps.Characters,
		entries:    deps.Entries,
		access:     deps.Access,
		ledger:     deps.Ledger,
		usage:      deps.Usage,
		memory:     deps.Memory,
		engine:     deps.Engine,
		stats:      deps.Stats,
		stories:    deps.Stories,
		scenes:     deps.Scenes,
		sceneStore: deps.SceneStore,
		vault:      deps.Vault,
		validate:   validator.New(),
	}
}

// CreateEntryInput is one entry-creation request.
type CreateEntryInput struct {
	UserID      uint              `validate:"required"`
	CharacterID uint              `validate:"required"`
	Text        string            `validate:"required,min=1,max=10000"`
	OutputType  models.OutputType `validate:"required"`
}

// CreateEntryResult reports a successfully created entry.
type CreateEntryResult struct {
	Entry            *models.JournalEntry
	ReimaginedText   string
	SceneImageURL    string
	RemainingCredits int
	ExpGained        int
	NewLevel         int
	LeveledUp        bool
	StatChanges      map[string]statengine.StatChange
}

// CreateEntry runs the full pipeline for one journal entry.
func (s *Service) CreateEntry(ctx context.Context, input CreateEntryInput) (*CreateEntryResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("journal: invalid input: %w", err)
	}
	if !input.OutputType.IsValid() {
		return nil, fmt.Errorf("journal: unknown output type %q", input.OutputType)
	}

	user, err := s.users.GetByID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("journal: load user %d: %w", input.UserID, err)
	}

	character, err := s.characters.GetByID(input.CharacterID)
	if err != nil || character.UserID != user.ID {
		return nil, ErrCharacterNotFound
	}

	access, err := s.access.GetCharacterAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("journal: resolve character access: %w", err)
	}
	if !access.CanAccess(character.ID) {
		return nil, ErrCharacterLocked
	}

	check, err := s.usage.CanCreateEntry(user, character.ID, input.OutputType)
	if err != nil {
		return nil, fmt.Errorf("journal: daily limit check: %w", err)
	}
	if !check.Allowed {
		return nil, &QuotaExceededError{Check: check}
	}

	affordability, err := s.ledger.CanAffordEntry(user.ID, input.OutputType)
	if err != nil {
		return nil, fmt.Errorf("journal: affordability check: %w", err)
	}
	if !affordability.Allowed {
		return nil, &InsufficientCreditsError{Result: affordability}
	}

	memory, err := s.memory.Get(character.ID)
	if err != nil {
		return nil, fmt.Errorf("journal: load memory for character %d: %w", character.ID, err)
	}
	prompt := charactermemory.BuildStoryPrompt(character, memory, input.Text)

	// External generation happens before any ledger or counter mutation,
	// so a provider failure leaves everything untouched.
	reimagined, err := s.stories.GenerateStory(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("journal: story generation failed: %w", err)
	}

	entryUUID := uuid.New().String()
	sceneURL := ""
	if input.OutputType == models.OutputTypeImage {
		scene, err := s.scenes.GenerateScene(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("journal: scene generation failed: %w", err)
		}
		sceneURL, err = s.sceneStore.SaveScene(ctx, entryUUID, scene.Data, scene.ContentType)
		if err != nil {
			return nil, fmt.Errorf("journal: scene storage failed: %w", err)
		}
	}

	deduction, err := s.ledger.DeductCredits(user.ID, input.OutputType)
	if err != nil {
		return nil, fmt.Errorf("journal: credit deduction failed: %w", err)
	}
	if !deduction.Success {
		// Balance changed between the affordability check and the
		// deduction. Report it the same way as the up-front denial.
		fresh, affErr := s.ledger.CanAffordEntry(user.ID, input.OutputType)
		if affErr != nil {
			return nil, fmt.Errorf("journal: credit deduction failed: %s", deduction.Error)
		}
		return nil, &InsufficientCreditsError{Result: fresh}
	}

	if err := s.usage.Increment(user, character.ID, input.OutputType); err != nil {
		// The entry is already paid for, so the pipeline continues. The
		// counter drifts at most one entry behind.
		log.Errorf("[Journal] usage increment failed for user %d: %v", user.ID, err)
	}

	entry, err := s.persistEntry(user, character, entryUUID, input, reimagined, sceneURL)
	if err != nil {
		return nil, err
	}

	if _, err := s.memory.Update(character.ID, charactermemory.NewEntry{
		ID:             entryUUID,
		OriginalText:   input.Text,
		ReimaginedText: reimagined,
		CreatedAt:      entry.CreatedAt,
	}); err != nil {
		log.Errorf("[Journal] memory update failed for character %d: %v", character.ID, err)
	}

	if err := s.stats.RecordEntry(character.ID, entry); err != nil {
		log.Errorf("[Journal] usage stats update failed for character %d: %v", character.ID, err)
	}

	result := &CreateEntryResult{
		Entry:            entry,
		ReimaginedText:   reimagined,
		SceneImageURL:    sceneURL,
		RemainingCredits: deduction.RemainingCredits,
	}

	s.runProgression(ctx, character, entry, input.Text, reimagined, result)
	return result, nil
}

// persistEntry encrypts both narrative texts and stores the entry row.
func (s *Service) persistEntry(user *models.User, character *models.Character, entryUUID string, input CreateEntryInput, reimagined, sceneURL string) (*models.JournalEntry, error) {
	originalEnc, err := s.vault.Encrypt(input.Text)
	if err != nil {
		return nil, fmt.Errorf("journal: encrypt entry text: %w", err)
	}
	reimaginedEnc, err := s.vault.Encrypt(reimagined)
	if err != nil {
		return nil, fmt.Errorf("journal: encrypt reimagined text: %w", err)
	}

	entry := &models.JournalEntry{
		UUID:              entryUUID,
		UserID:            user.ID,
		CharacterID:       character.ID,
		OriginalTextEnc:   originalEnc,
		ReimaginedTextEnc: reimaginedEnc,
		OutputType:        input.OutputType,
		SceneImageURL:     sceneURL,
	}
	if err := s.entries.Create(entry); err != nil {
		return nil, fmt.Errorf("journal: persist entry: %w", err)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return entry, nil
}

// runProgression evaluates and applies stat changes. Failures here are
// logged and swallowed, the created entry stands either way.
func (s *Service) runProgression(ctx context.Context, character *models.Character, entry *models.JournalEntry, originalText, reimagined string, result *CreateEntryResult) {
	currentStats, err := character.Stats()
	if err != nil {
		log.Errorf("[Journal] stats parse failed for character %d: %v", character.ID, err)
		return
	}

	changes := s.engine.Evaluate(ctx, originalText, reimagined, character.Theme, currentStats)
	result.StatChanges = changes

	applied, err := s.engine.Apply(character.ID, entry.ID, changes, originalText)
	if err != nil {
		log.Errorf("[Journal] progression failed for character %d: %v", character.ID, err)
		return
	}
	result.ExpGained = applied.ExpGained
	result.NewLevel = applied.NewLevel
	result.LeveledUp = applied.LeveledUp
}

// Entry is a decrypted view of one stored entry.
type Entry struct {
	UUID           string            `json:"uuid"`
	CharacterID    uint              `json:"character_id"`
	OriginalText   string            `json:"original_text"`
	ReimaginedText string            `json:"reimagined_text"`
	OutputType     models.OutputType `json:"output_type"`
	SceneImageURL  string            `json:"scene_image_url,omitempty"`
	ExpGained      int               `json:"exp_gained"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ListEntries returns decrypted entries for one of the user's characters,
// newest first.
func (s *Service) ListEntries(userID, characterID uint, offset, limit int) ([]Entry, error) {
	character, err := s.characters.GetByID(characterID)
	if err != nil || character.UserID != userID {
		return nil, ErrCharacterNotFound
	}

	rows, err := s.entries.ListByCharacter(characterID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list entries: %w", err)
	}

	result := make([]Entry, 0, len(rows))
	for i := range rows {
		result = append(result, s.decryptEntry(&rows[i]))
	}
	return result, nil
}

// GetEntry returns one decrypted entry, enforcing ownership.
func (s *Service) GetEntry(userID uint, entryUUID string) (*Entry, error) {
	row, err := s.entries.GetByUUID(entryUUID)
	if err != nil {
		return nil, fmt.Errorf("journal: load entry %s: %w", entryUUID, err)
	}
	if row.UserID != userID {
		return nil, ErrCharacterNotFound
	}
	entry := s.decryptEntry(row)
	return &entry, nil
}

// decryptEntry opens both text columns, tolerating legacy plaintext rows.
func (s *Service) decryptEntry(row *models.JournalEntry) Entry {
	original, err := s.vault.Decrypt(row.OriginalTextEnc)
	if err != nil {
		original = row.OriginalTextEnc
	}
	reimagined, err := s.vault.Decrypt(row.ReimaginedTextEnc)
	if err != nil {
		reimagined = row.ReimaginedTextEnc
	}
	return Entry{
		UUID:           row.UUID,
		CharacterID:    row.CharacterID,
		OriginalText:   original,
		ReimaginedText: reimagined,
		OutputType:     row.OutputType,
		SceneImageURL:  row.SceneImageURL,
		ExpGained:      row.ExpGained,
		CreatedAt:      row.CreatedAt,
	}
}
