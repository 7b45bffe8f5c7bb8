package charactermemory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const (
	// SummaryLogMaxLen is the hard cap on the running summary blob.
	SummaryLogMaxLen = 2000
	// RecentEntriesMax bounds the recent-entry ring buffer.
	RecentEntriesMax = 5

	// summaryKeepVerbatim is how many trailing entries survive compression
	// untouched.
	summaryKeepVerbatim = 3
	summarySeparator    = "\n"
	// summaryWarnLen is where a write starts logging an approaching-limit
	// warning without failing.
	summaryWarnLen = SummaryLogMaxLen * 8 / 10
)

// NewEntry is the slice of a freshly created journal entry the memory store
// records.
type NewEntry struct {
	ID             string
	OriginalText   string
	ReimaginedText string
	CreatedAt      time.Time
}

// Memory is the parsed view of a character's narrative state.
type Memory struct {
	WorldState    models.WorldState
	SummaryLog    string
	RecentEntries []models.RecentEntry
}

// Repository provides the DB operations used by the memory store.
type Repository interface {
	GetByCharacterID(characterID uint) (*models.CharacterMemory, error)
	Create(memory *models.CharacterMemory) error
	Save(memory *models.CharacterMemory) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a character memory repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByCharacterID(characterID uint) (*models.CharacterMemory, error) {
	var memory models.CharacterMemory
	if err := r.db.Where("character_id = ?", characterID).First(&memory).Error; err != nil {
		return nil, err
	}
	return &memory, nil
}

func (r *gormRepository) Create(memory *models.CharacterMemory) error {
	return r.db.Create(memory).Error
}

func (r *gormRepository) Save(memory *models.CharacterMemory) error {
	return r.db.Save(memory).Error
}

// Service maintains the bounded, incrementally updated narrative state per
// character.
type Service struct {
	repo Repository
}

// NewService creates a memory store from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a memory store from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Get returns the character's parsed memory, lazily creating an
// empty-defaults record on first access.
func (s *Service) Get(characterID uint) (*Memory, error) {
	record, err := s.getOrCreate(characterID)
	if err != nil {
		return nil, err
	}
	return parseMemory(record)
}

func (s *Service) getOrCreate(characterID uint) (*models.CharacterMemory, error) {
	record, err := s.repo.GetByCharacterID(characterID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("character memory: load character %d: %w", characterID, err)
	}

	record = &models.CharacterMemory{CharacterID: characterID, LastUpdated: time.Now()}
	if err := record.SetWorldState(models.NewWorldState()); err != nil {
		return nil, err
	}
	if err := record.SetRecentEntries([]models.RecentEntry{}); err != nil {
		return nil, err
	}
	if err := s.repo.Create(record); err != nil {
		return nil, fmt.Errorf("character memory: create for character %d: %w", characterID, err)
	}
	return record, nil
}

func parseMemory(record *models.CharacterMemory) (*Memory, error) {
	ws, err := record.WorldState()
	if err != nil {
		return nil, err
	}
	recent, err := record.RecentEntries()
	if err != nil {
		return nil, err
	}
	return &Memory{WorldState: ws, SummaryLog: record.SummaryLog, RecentEntries: recent}, nil
}

// Update folds a new journal entry into the character's memory: the entry is
// prepended to the recent ring (oldest silently dropped past the cap), a
// dated line is appended to the summary log (compressed when over the cap),
// and all fields are persisted together as one update.
func (s *Service) Update(characterID uint, entry NewEntry) (*Memory, error) {
	record, err := s.getOrCreate(characterID)
	if err != nil {
		return nil, err
	}

	recent, err := record.RecentEntries()
	if err != nil {
		return nil, err
	}
	recent = append([]models.RecentEntry{{
		ID:             entry.ID,
		OriginalText:   entry.OriginalText,
		ReimaginedText: entry.ReimaginedText,
		CreatedAt:      entry.CreatedAt,
	}}, recent...)
	if len(recent) > RecentEntriesMax {
		recent = recent[:RecentEntriesMax]
	}
	if err := record.SetRecentEntries(recent); err != nil {
		return nil, err
	}

	record.SummaryLog = appendSummaryLine(record.SummaryLog, summaryLine(entry))
	if len(record.SummaryLog) >= summaryWarnLen {
		log.Warnf("[CharacterMemory] summary log for character %d at %d/%d chars",
			characterID, len(record.SummaryLog), SummaryLogMaxLen)
	}

	// World-state extraction hook: reserved for AI-driven fact extraction,
	// currently a pass-through.
	ws, err := record.WorldState()
	if err != nil {
		return nil, err
	}
	if err := record.SetWorldState(extractWorldState(ws, entry)); err != nil {
		return nil, err
	}

	record.LastUpdated = time.Now()
	if err := s.repo.Save(record); err != nil {
		return nil, fmt.Errorf("character memory: save for character %d: %w", characterID, err)
	}
	return parseMemory(record)
}

// extractWorldState is the reserved hook point for future AI-driven
// world-state extraction. No-op for now.
func extractWorldState(ws models.WorldState, _ NewEntry) models.WorldState {
	return ws
}

func summaryLine(entry NewEntry) string {
	text := entry.ReimaginedText
	if text == "" {
		text = entry.OriginalText
	}
	return entry.CreatedAt.Format("2006-01-02") + ": " + text
}

// appendSummaryLine appends one dated line and compresses the log if the
// result would exceed the cap: the last few entries are kept verbatim and
// everything earlier collapses into a single count marker. Lossy by design;
// full history lives in the journal entry table only.
func appendSummaryLine(current, line string) string {
	combined := line
	if current != "" {
		combined = current + summarySeparator + line
	}
	if len(combined) <= SummaryLogMaxLen {
		return combined
	}

	lines := strings.Split(combined, summarySeparator)
	if len(lines) <= summaryKeepVerbatim {
		// Pathologically long individual entries; keep the newest lines and
		// let the hard cap truncate.
		if len(combined) > SummaryLogMaxLen {
			combined = combined[len(combined)-SummaryLogMaxLen:]
		}
		return combined
	}

	compressed := len(lines) - summaryKeepVerbatim
	kept := lines[len(lines)-summaryKeepVerbatim:]
	marker := fmt.Sprintf("[%d earlier entries compressed]", compressed)
	return marker + summarySeparator + strings.Join(kept, summarySeparator)
}
