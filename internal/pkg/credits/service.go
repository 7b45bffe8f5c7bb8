package credits

import (
	"errors"
	"fmt"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Service is the credit ledger: a per-user ink vial balance debited per
// generation and credited by purchases and the daily free recharge.
type Service struct {
	repo Repository
}

// NewService creates a credit ledger from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a credit ledger from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// CanAffordEntry is the read-only affordability check for one generation.
// The result is advisory only: DeductCredits re-checks the balance at write
// time, so a stale positive answer here can never overdraw the ledger.
func (s *Service) CanAffordEntry(userID uint, kind models.OutputType) (*AffordabilityResult, error) {
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("credit ledger: load user %d: %w", userID, err)
	}

	required := CostForOutputType(kind)
	result := &AffordabilityResult{
		CurrentCredits:  user.Credits,
		RequiredCredits: required,
	}
	if user.Credits >= required {
		result.Allowed = true
		return result, nil
	}
	result.Reason = fmt.Sprintf("insufficient ink vials: have %d, need %d", user.Credits, required)
	return result, nil
}

// DeductCredits debits the cost of one generation. The balance is re-checked
// atomically at deduction time; an earlier CanAffordEntry answer is never
// trusted across the race window between check and debit.
func (s *Service) DeductCredits(userID uint, kind models.OutputType) (*DeductResult, error) {
	cost := CostForOutputType(kind)
	applied, remaining, err := s.repo.DeductCredits(userID, cost)
	if err != nil {
		return nil, fmt.Errorf("credit ledger: deduct %d from user %d: %w", cost, userID, err)
	}
	if !applied {
		return &DeductResult{
			Success:          false,
			RemainingCredits: remaining,
			Error:            fmt.Sprintf("insufficient ink vials: have %d, need %d", remaining, cost),
		}, nil
	}
	return &DeductResult{Success: true, RemainingCredits: remaining}, nil
}

// AddCredits credits purchased ink vials and appends the audit row in the
// same logical transaction. Idempotency per transaction ID is the payment
// webhook's responsibility; this must be called at most once per confirmed
// payment.
func (s *Service) AddCredits(userID uint, amount int, packageName string, transactionID *string, price float64, metadata string) (int, error) {
	if amount <= 0 {
		return 0, errors.New("credit ledger: amount must be positive")
	}

	purchase := &models.CreditPurchase{
		UserID:        userID,
		PackageName:   packageName,
		InkVials:      amount,
		Price:         price,
		TransactionID: transactionID,
		Metadata:      metadata,
	}
	balance, err := s.repo.AddCreditsWithPurchase(userID, amount, purchase)
	if err != nil {
		return 0, fmt.Errorf("credit ledger: add %d credits for user %d: %w", amount, userID, err)
	}
	return balance, nil
}

// ProcessDailyRecharge grants the free daily ink vials if at least 24 hours
// have passed since the later of the last recharge and signup. Ineligible
// users get a no-op success.
func (s *Service) ProcessDailyRecharge(userID uint) (*RechargeResult, error) {
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("credit ledger: load user %d: %w", userID, err)
	}

	now := time.Now()
	last := user.CreatedAt
	if user.LastDailyRecharge != nil && user.LastDailyRecharge.After(last) {
		last = *user.LastDailyRecharge
	}
	if now.Sub(last) < DailyRechargeInterval {
		return &RechargeResult{Success: true, Recharged: false, NewBalance: user.Credits}, nil
	}

	purchase := &models.CreditPurchase{
		UserID:      userID,
		PackageName: models.PackageDailyRecharge,
		InkVials:    DailyRechargeAmount,
	}
	applied, balance, err := s.repo.StampDailyRecharge(userID, DailyRechargeAmount, now, now.Add(-DailyRechargeInterval), purchase)
	if err != nil {
		return nil, fmt.Errorf("credit ledger: recharge user %d: %w", userID, err)
	}
	return &RechargeResult{Success: true, Recharged: applied, NewBalance: balance}, nil
}

// ProcessDailyRechargeForAllUsers sweeps every user independently. One
// user's failure is logged and collected, never aborting the rest.
func (s *Service) ProcessDailyRechargeForAllUsers() (*SweepSummary, error) {
	ids, err := s.repo.ListUserIDs()
	if err != nil {
		return nil, fmt.Errorf("credit ledger: list users: %w", err)
	}

	summary := &SweepSummary{Errors: make(map[uint]error)}
	for _, id := range ids {
		result, err := s.ProcessDailyRecharge(id)
		if err != nil {
			log.Errorf("[Credits] daily recharge failed for user %d: %v", id, err)
			summary.Errors[id] = err
			continue
		}
		summary.Processed++
		if result.Recharged {
			summary.Recharged++
		}
	}

	log.Infof("[Credits] daily recharge sweep: %d processed, %d recharged, %d failed",
		summary.Processed, summary.Recharged, len(summary.Errors))
	return summary, nil
}

// CanPurchaseStarterKit reports whether the one-time starter kit is still
// available: never bought, and inside the 30-day signup window.
func (s *Service) CanPurchaseStarterKit(userID uint) (bool, error) {
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return false, fmt.Errorf("credit ledger: load user %d: %w", userID, err)
	}
	if user.HasPurchasedStarterKit {
		return false, nil
	}
	return time.Since(user.CreatedAt) <= StarterKitWindow, nil
}

// PurchaseStarterKit grants the starter kit credits once. The flag flip is
// conditional so a duplicate confirmation can never credit twice.
func (s *Service) PurchaseStarterKit(userID uint, amount int, transactionID *string, price float64) (int, error) {
	ok, err := s.CanPurchaseStarterKit(userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New("credit ledger: starter kit not available")
	}

	applied, err := s.repo.MarkStarterKitPurchased(userID)
	if err != nil {
		return 0, fmt.Errorf("credit ledger: mark starter kit for user %d: %w", userID, err)
	}
	if !applied {
		return 0, errors.New("credit ledger: starter kit already purchased")
	}
	return s.AddCredits(userID, amount, models.PackageStarterKit, transactionID, price, "")
}

// AddCharacterSlot grants one extra character slot and records the purchase.
func (s *Service) AddCharacterSlot(userID uint, transactionID *string, price float64) error {
	purchase := &models.CreditPurchase{
		UserID:        userID,
		PackageName:   models.PackageCharacterSlot,
		InkVials:      0,
		Price:         price,
		TransactionID: transactionID,
	}
	if err := s.repo.AddCharacterSlotWithPurchase(userID, purchase); err != nil {
		return fmt.Errorf("credit ledger: add character slot for user %d: %w", userID, err)
	}
	return nil
}
