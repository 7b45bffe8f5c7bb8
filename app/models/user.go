package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	SubscriptionPlanFree    = "free"
	SubscriptionPlanWeekly  = "weekly"
	SubscriptionPlanMonthly = "monthly"
	SubscriptionPlanYearly  = "yearly"

	SubscriptionStatusFree     = "free"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
)

// User carries the account and subscription state the entitlement, credit and
// quota engines operate on. Timezone is set once at signup and never changes
// afterwards: daily-usage rows are keyed by the user's local calendar day, and
// rewriting the timezone would misalign historical rows with new ones.
type User struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Name                   string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                  string     `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password               string     `gorm:"type:text" json:"-" validate:"required,min=6"`
	SubscriptionPlan       string     `gorm:"type:varchar(20);default:'free'" json:"subscription_plan" validate:"oneof=free weekly monthly yearly"`
	SubscriptionStatus     string     `gorm:"type:varchar(20);default:'free'" json:"subscription_status" validate:"oneof=free active canceled"`
	SubscriptionID         *string    `gorm:"type:varchar(100);default:null" json:"-"`
	SubscriptionEndsAt     *time.Time `gorm:"type:timestamp;default:null" json:"subscription_ends_at"`
	CharacterSlots         int        `gorm:"default:1" json:"character_slots"`
	ActiveCharacterID      *uint      `gorm:"default:null" json:"active_character_id"`
	Credits                int        `gorm:"default:100" json:"credits"`
	LastDailyRecharge      *time.Time `gorm:"type:timestamp;default:null" json:"last_daily_recharge"`
	HasPurchasedStarterKit bool       `gorm:"default:false" json:"has_purchased_starter_kit"`
	Timezone               string     `gorm:"type:varchar(64);default:'UTC'" json:"timezone" validate:"required"`
	APIKeyHash             string     `gorm:"type:char(64);default:''" json:"-"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a new free-tier user with the signup timezone locked in.
func CreateUser(username, email, password, timezone string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	if timezone == "" {
		timezone = "UTC"
	}

	u := &User{
		Name:               username,
		Email:              email,
		Password:           pw,
		SubscriptionPlan:   SubscriptionPlanFree,
		SubscriptionStatus: SubscriptionStatusFree,
		CharacterSlots:     1,
		Credits:            100,
		Timezone:           timezone,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// Location resolves the user's signup timezone, falling back to UTC when the
// stored IANA name cannot be loaded.
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HashAPIKey returns the hex SHA-256 digest used to look up API keys.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
