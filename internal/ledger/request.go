package ledger

import (
	"fmt"
	"time"

	"github.com/paisabook/paisabook-api/internal/models"
)

// Request is a transaction request as supplied by the request layer.
// Amount and TotalReceivable are paise. Zero-valued reference fields mean
// "not provided".
type Request struct {
	Kind        string
	CollectKind string
	Amount      int64

	SourceAccountID uint
	TargetAccountID uint
	LoanID          uint
	CustomerID      uint

	// TotalReceivable is required for corporation distributions: the full
	// amount the customer will owe back. Profit is derived as
	// TotalReceivable - Amount and never stored independently.
	TotalReceivable int64

	// Purpose selects the expense bucket for withdrawals
	// (personal|operational). Defaults to personal.
	Purpose string

	// Entries carries caller-supplied lines for adjust transactions only.
	Entries []EntryDraft

	Remarks   string
	Date      time.Time
	CreatedBy uint
}

// Validate checks request shape independent of entity state
func (r *Request) Validate() error {
	switch r.Kind {
	case models.TransactionTypeGive, models.TransactionTypeCollect,
		models.TransactionTypeAdjust, models.TransactionTypeTransfer,
		models.TransactionTypeDeposit, models.TransactionTypeWithdrawal:
	default:
		return fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, r.Kind)
	}

	if r.Kind != models.TransactionTypeAdjust && r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	}

	if r.CollectKind != "" {
		switch r.CollectKind {
		case models.CollectKindInterest, models.CollectKindCorporation,
			models.CollectKindPrincipal, models.CollectKindLateFee:
		default:
			return fmt.Errorf("%w: unknown collect kind %q", ErrValidation, r.CollectKind)
		}
	}

	if r.CreatedBy == 0 {
		return fmt.Errorf("%w: creator is required", ErrValidation)
	}

	return nil
}

// View exposes the entities loaded (and locked) for the request. Rules treat
// it as read-only; all mutation flows through deltas.
type View struct {
	Source   *models.Account
	Target   *models.Account
	Loan     *models.Loan
	Customer *models.Customer
}

// EntityType discriminates delta targets
type EntityType string

const (
	EntityAccount  EntityType = "account"
	EntityLoan     EntityType = "loan"
	EntityCustomer EntityType = "customer"
)

// Balance field names addressed by deltas
const (
	FieldCurrentBalance           = "current_balance"
	FieldPrincipalOutstanding     = "principal_outstanding"
	FieldInterestAccruedUnpaid    = "interest_accrued_unpaid"
	FieldTotalReceivedPrincipal   = "total_received_principal"
	FieldTotalReceivedInterest    = "total_received_interest"
	FieldLateFeesAccrued          = "late_fees_accrued"
	FieldCorporationReceivable    = "corporation_receivable"
	FieldTotalCorporationGiven    = "total_corporation_given"
	FieldTotalCorporationReceived = "total_corporation_received"
)

// Delta is a declarative balance change on one entity field. Positive
// amounts increase the field.
type Delta struct {
	Entity EntityType
	ID     uint
	Field  string
	Amount int64
}

// Mutation is the full effect of one transaction: its ledger entries plus
// the entity balance deltas to apply alongside them.
type Mutation struct {
	Entries []EntryDraft
	Deltas  []Delta
}
