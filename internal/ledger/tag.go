package ledger

import "fmt"

// Tag identifies the accounting bucket a ledger entry affects. The set is
// closed; entries carrying an unknown tag are rejected at construction time.
type Tag string

const (
	TagCashBank               Tag = "cash_bank"
	TagLoanPrincipal          Tag = "loan_principal"
	TagInterestReceivable     Tag = "interest_receivable"
	TagIncomeInterest         Tag = "income_interest"
	TagIncomeCorporation      Tag = "income_corporation"
	TagIncomeLateFee          Tag = "income_late_fee"
	TagReceivableCorporation  Tag = "receivable_corporation"
	TagExpensePersonal        Tag = "expense_personal"
	TagExpenseOperational     Tag = "expense_operational"
	TagEquityCapital          Tag = "equity_capital"
)

var validTags = map[Tag]struct{}{
	TagCashBank:              {},
	TagLoanPrincipal:         {},
	TagInterestReceivable:    {},
	TagIncomeInterest:        {},
	TagIncomeCorporation:     {},
	TagIncomeLateFee:         {},
	TagReceivableCorporation: {},
	TagExpensePersonal:       {},
	TagExpenseOperational:    {},
	TagEquityCapital:         {},
}

// Valid reports whether the tag belongs to the closed enumeration
func (t Tag) Valid() bool {
	_, ok := validTags[t]
	return ok
}

// String returns the tag's wire representation
func (t Tag) String() string {
	return string(t)
}

// ParseTag converts a raw string to a Tag, rejecting unknown values
func ParseTag(s string) (Tag, error) {
	t := Tag(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown ledger tag %q", ErrValidation, s)
	}
	return t, nil
}
