package models

import (
	"time"
)

// Transaction is an immutable double-entry record. A transaction and its
// entries are created atomically and never mutated afterwards, except for
// the remarks annotation and the soft-delete flags, which carry no financial
// content.
type Transaction struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Reference   string     `gorm:"uniqueIndex;not null" json:"reference"`
	Date        time.Time  `gorm:"not null;index" json:"date"`
	CreatedBy   uint       `gorm:"not null;index" json:"created_by"`
	Type        string     `gorm:"not null;index" json:"type"`
	CollectKind *string    `gorm:"index" json:"collect_kind,omitempty"`
	LoanID      *uint      `gorm:"index" json:"loan_id,omitempty"`
	CustomerID  *uint      `gorm:"index" json:"customer_id,omitempty"`
	Remarks     *string    `gorm:"type:text" json:"remarks,omitempty"`
	IsDeleted   bool       `gorm:"default:false;index" json:"is_deleted"`
	DeletedBy   *uint      `json:"deleted_by,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Associations
	Creator  User               `gorm:"foreignKey:CreatedBy" json:"-"`
	Loan     *Loan              `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
	Customer *Customer          `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Entries  []TransactionEntry `gorm:"foreignKey:TransactionID" json:"entries"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// Transaction type constants
const (
	TransactionTypeGive       = "give"
	TransactionTypeCollect    = "collect"
	TransactionTypeAdjust     = "adjust"
	TransactionTypeTransfer   = "transfer"
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
)

// Collect kind constants
const (
	CollectKindInterest    = "interest"
	CollectKindCorporation = "corporation"
	CollectKindPrincipal   = "principal"
	CollectKindLateFee     = "late_fee"
)

// TransactionEntry is a single ledger line of a transaction. Debit and credit
// are paise; exactly one side is non-zero for economically meaningful
// entries. Entries are never updated, only referenced for audit.
type TransactionEntry struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TransactionID uint   `gorm:"not null;index" json:"transaction_id"`
	Position      int    `gorm:"not null" json:"position"`
	Ledger        string `gorm:"not null;index" json:"ledger"`
	AccountID     *uint  `gorm:"index" json:"account_id,omitempty"`
	LoanID        *uint  `gorm:"index" json:"loan_id,omitempty"`
	CustomerID    *uint  `gorm:"index" json:"customer_id,omitempty"`
	Debit         int64  `gorm:"not null;default:0" json:"debit"`
	Credit        int64  `gorm:"not null;default:0" json:"credit"`

	// Associations
	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// TableName specifies the table name for TransactionEntry
func (TransactionEntry) TableName() string {
	return "transaction_entries"
}

// Signed returns the entry amount as seen from the referenced account:
// debits increase the account, credits decrease it.
func (e *TransactionEntry) Signed() int64 {
	return e.Debit - e.Credit
}

// TotalDebits sums the debit side across entries
func TotalDebits(entries []TransactionEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Debit
	}
	return total
}

// TotalCredits sums the credit side across entries
func TotalCredits(entries []TransactionEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Credit
	}
	return total
}

// EntryResponse is the JSON response format for ledger entries
type EntryResponse struct {
	Ledger     string `json:"ledger"`
	AccountID  *uint  `json:"account_id,omitempty"`
	LoanID     *uint  `json:"loan_id,omitempty"`
	CustomerID *uint  `json:"customer_id,omitempty"`
	Debit      int64  `json:"debit"`
	Credit     int64  `json:"credit"`
}

// TransactionResponse is the JSON response format for transactions
type TransactionResponse struct {
	ID          uint            `json:"id"`
	Reference   string          `json:"reference"`
	Date        time.Time       `json:"date"`
	CreatedBy   uint            `json:"created_by"`
	Type        string          `json:"type"`
	CollectKind *string         `json:"collect_kind,omitempty"`
	LoanID      *uint           `json:"loan_id,omitempty"`
	CustomerID  *uint           `json:"customer_id,omitempty"`
	Remarks     *string         `json:"remarks,omitempty"`
	IsDeleted   bool            `json:"is_deleted"`
	Entries     []EntryResponse `json:"entries"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToResponse converts Transaction to TransactionResponse
func (t *Transaction) ToResponse() TransactionResponse {
	resp := TransactionResponse{
		ID:          t.ID,
		Reference:   t.Reference,
		Date:        t.Date,
		CreatedBy:   t.CreatedBy,
		Type:        t.Type,
		CollectKind: t.CollectKind,
		LoanID:      t.LoanID,
		CustomerID:  t.CustomerID,
		Remarks:     t.Remarks,
		IsDeleted:   t.IsDeleted,
		CreatedAt:   t.CreatedAt,
	}
	for _, e := range t.Entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			Ledger:     e.Ledger,
			AccountID:  e.AccountID,
			LoanID:     e.LoanID,
			CustomerID: e.CustomerID,
			Debit:      e.Debit,
			Credit:     e.Credit,
		})
	}
	return resp
}
