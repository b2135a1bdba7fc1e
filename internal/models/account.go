package models

import (
	"time"

	"gorm.io/gorm"
)

// Account represents a cash or bank account. All monetary fields are stored
// in paise (integer minor units).
type Account struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Type           string    `gorm:"not null;index" json:"type"`
	OpeningBalance int64     `gorm:"not null" json:"opening_balance"`
	CurrentBalance int64     `gorm:"not null;default:0" json:"current_balance"`
	Currency       string    `gorm:"default:INR;not null" json:"currency"`
	Active         bool      `gorm:"default:true;index" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Account type constants
const (
	AccountTypeCash = "cash"
	AccountTypeBank = "bank"
)

// BeforeCreate seeds the running balance from the opening balance.
// CurrentBalance is a cache over the ledger: after any committed transaction
// it must equal OpeningBalance plus the signed sum of entries referencing
// this account.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.CurrentBalance == 0 {
		a.CurrentBalance = a.OpeningBalance
	}
	return nil
}

// AccountResponse is the JSON response format for accounts
type AccountResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	OpeningBalance int64     `json:"opening_balance"`
	CurrentBalance int64     `json:"current_balance"`
	Currency       string    `json:"currency"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToResponse converts Account to AccountResponse
func (a *Account) ToResponse() AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Type:           a.Type,
		OpeningBalance: a.OpeningBalance,
		CurrentBalance: a.CurrentBalance,
		Currency:       a.Currency,
		Active:         a.Active,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
