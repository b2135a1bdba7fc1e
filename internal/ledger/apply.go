package ledger

import (
	"fmt"

	"github.com/paisabook/paisabook-api/internal/models"
)

// Entities is the mutable working set a unit of work has loaded and locked.
// Deltas are applied here in memory; the orchestrator persists the result
// inside the same store transaction that writes the ledger entries.
type Entities struct {
	Accounts  map[uint]*models.Account
	Loans     map[uint]*models.Loan
	Customers map[uint]*models.Customer
}

// NewEntities returns an empty working set
func NewEntities() *Entities {
	return &Entities{
		Accounts:  make(map[uint]*models.Account),
		Loans:     make(map[uint]*models.Loan),
		Customers: make(map[uint]*models.Customer),
	}
}

// Apply mutates the addressed entity field and enforces the resulting-state
// invariants: balances and outstanding amounts never go negative, accrual
// fields floor at zero. Rules pre-check their inputs, so a violation here
// means the working set diverged from what the rule saw.
func (es *Entities) Apply(d Delta) error {
	switch d.Entity {
	case EntityAccount:
		a, ok := es.Accounts[d.ID]
		if !ok {
			return fmt.Errorf("%w: account %d not loaded", ErrReferenceNotFound, d.ID)
		}
		if d.Field != FieldCurrentBalance {
			return fmt.Errorf("%w: unknown account field %q", ErrValidation, d.Field)
		}
		next := a.CurrentBalance + d.Amount
		if next < 0 {
			return fmt.Errorf("%w: account %d balance would be %d", ErrInsufficientFunds, d.ID, next)
		}
		a.CurrentBalance = next
		return nil

	case EntityLoan:
		l, ok := es.Loans[d.ID]
		if !ok {
			return fmt.Errorf("%w: loan %d not loaded", ErrReferenceNotFound, d.ID)
		}
		return applyLoanDelta(l, d)

	case EntityCustomer:
		c, ok := es.Customers[d.ID]
		if !ok {
			return fmt.Errorf("%w: customer %d not loaded", ErrReferenceNotFound, d.ID)
		}
		return applyCustomerDelta(c, d)

	default:
		return fmt.Errorf("%w: unknown entity type %q", ErrValidation, d.Entity)
	}
}

func applyLoanDelta(l *models.Loan, d Delta) error {
	switch d.Field {
	case FieldPrincipalOutstanding:
		next := l.PrincipalOutstanding + d.Amount
		if next < 0 {
			return fmt.Errorf("%w: loan %d outstanding would be %d", ErrOverpayment, d.ID, next)
		}
		l.PrincipalOutstanding = next
	case FieldInterestAccruedUnpaid:
		l.InterestAccruedUnpaid = floor(l.InterestAccruedUnpaid + d.Amount)
	case FieldTotalReceivedPrincipal:
		l.TotalReceivedPrincipal += d.Amount
	case FieldTotalReceivedInterest:
		l.TotalReceivedInterest += d.Amount
	case FieldLateFeesAccrued:
		l.LateFeesAccrued = floor(l.LateFeesAccrued + d.Amount)
	default:
		return fmt.Errorf("%w: unknown loan field %q", ErrValidation, d.Field)
	}
	return nil
}

func applyCustomerDelta(c *models.Customer, d Delta) error {
	switch d.Field {
	case FieldCorporationReceivable:
		next := c.CorporationReceivable + d.Amount
		if next < 0 {
			return fmt.Errorf("%w: customer %d receivable would be %d", ErrOverpayment, d.ID, next)
		}
		c.CorporationReceivable = next
	case FieldTotalCorporationGiven:
		c.TotalCorporationGiven += d.Amount
	case FieldTotalCorporationReceived:
		c.TotalCorporationReceived += d.Amount
	default:
		return fmt.Errorf("%w: unknown customer field %q", ErrValidation, d.Field)
	}
	return nil
}

func floor(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
