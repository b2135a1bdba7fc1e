package ledger

import (
	"fmt"

	"github.com/paisabook/paisabook-api/internal/models"
)

// EntryDraft is a proposed ledger line before persistence. Amounts are paise.
type EntryDraft struct {
	Ledger     Tag
	AccountID  *uint
	LoanID     *uint
	CustomerID *uint
	Debit      int64
	Credit     int64
}

// ToModel converts the draft to a persistable entry at the given position
func (d EntryDraft) ToModel(position int) models.TransactionEntry {
	return models.TransactionEntry{
		Position:   position,
		Ledger:     d.Ledger.String(),
		AccountID:  d.AccountID,
		LoanID:     d.LoanID,
		CustomerID: d.CustomerID,
		Debit:      d.Debit,
		Credit:     d.Credit,
	}
}

// ValidateEntries enforces the double-entry contract on a proposed entry
// list: at least two entries, non-negative sides, known ledger tags, and
// total debits equal to total credits. Sums are exact integer minor-unit
// arithmetic; there is no precision tolerance.
func ValidateEntries(entries []EntryDraft) error {
	if len(entries) < 2 {
		return fmt.Errorf("%w: a transaction needs at least 2 entries, got %d", ErrValidation, len(entries))
	}

	var debits, credits int64
	for i, e := range entries {
		if !e.Ledger.Valid() {
			return fmt.Errorf("%w: entry %d has unknown ledger tag %q", ErrValidation, i, e.Ledger)
		}
		if e.Debit < 0 || e.Credit < 0 {
			return fmt.Errorf("%w: entry %d has a negative side", ErrValidation, i)
		}
		if e.Debit > 0 && e.Credit > 0 {
			return fmt.Errorf("%w: entry %d has both sides non-zero", ErrValidation, i)
		}
		debits += e.Debit
		credits += e.Credit
	}

	if debits != credits {
		return fmt.Errorf("%w: debits %d != credits %d", ErrImbalancedEntries, debits, credits)
	}

	return nil
}
