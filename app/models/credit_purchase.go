package models

import "time"

// Synthetic package names recorded for ledger events that are not real
// storefront purchases.
const (
	PackageDailyRecharge = "daily-recharge"
	PackageCharacterSlot = "character-slot"
	PackageStarterKit    = "starter-kit"
)

// CreditPurchase is the append-only audit trail of every credit the ledger
// ever granted, including zero-price synthetic events like the daily recharge.
type CreditPurchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	PackageName   string    `gorm:"type:varchar(100);not null" json:"package_name"`
	InkVials      int       `gorm:"not null" json:"ink_vials"`
	Price         float64   `gorm:"default:0" json:"price"`
	TransactionID *string   `gorm:"type:varchar(100);default:null" json:"transaction_id"`
	Metadata      string    `gorm:"type:text" json:"metadata"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
