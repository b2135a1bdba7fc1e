package ledger

import (
	"fmt"

	"github.com/paisabook/paisabook-api/internal/models"
)

// Rule computes the effect of one transaction kind: which ledger entries it
// writes and which entity balance fields it moves. Rules are pure; they read
// the view and never mutate it.
type Rule interface {
	// Refs declares which references the request must carry so the
	// orchestrator knows what to load and lock.
	Refs() RefSet

	// Build computes the mutation, enforcing the rule's preconditions
	// against the locked view.
	Build(req *Request, v *View) (*Mutation, error)
}

// RefSet names the references a rule requires
type RefSet struct {
	Source   bool
	Target   bool
	Loan     bool
	Customer bool
}

// RuleFor is the single dispatch point selecting the strategy for a request.
// It only inspects the request shape; entity state is checked later in Build.
func RuleFor(req *Request) (Rule, error) {
	switch req.Kind {
	case models.TransactionTypeTransfer:
		return transferRule{}, nil
	case models.TransactionTypeDeposit:
		return depositRule{}, nil
	case models.TransactionTypeWithdrawal:
		return withdrawalRule{}, nil
	case models.TransactionTypeAdjust:
		return adjustRule{}, nil
	case models.TransactionTypeGive:
		if req.CollectKind == models.CollectKindCorporation && req.LoanID == 0 {
			return corporationDistributeRule{}, nil
		}
		return disbursementRule{}, nil
	case models.TransactionTypeCollect:
		switch req.CollectKind {
		case models.CollectKindPrincipal:
			return collectPrincipalRule{}, nil
		case models.CollectKindInterest:
			return collectInterestRule{}, nil
		case models.CollectKindLateFee:
			return collectLateFeeRule{}, nil
		case models.CollectKindCorporation:
			if req.LoanID != 0 {
				return collectLoanCorporationRule{}, nil
			}
			return collectCustomerCorporationRule{}, nil
		default:
			return nil, fmt.Errorf("%w: collect requires a collect kind", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, req.Kind)
	}
}

func ref(id uint) *uint { return &id }

func requireActive(a *models.Account) error {
	if !a.Active {
		return fmt.Errorf("%w: account %d", ErrInactiveAccount, a.ID)
	}
	return nil
}

func requireFunds(a *models.Account, amount int64) error {
	if a.CurrentBalance < amount {
		return fmt.Errorf("%w: available %d, required %d", ErrInsufficientFunds, a.CurrentBalance, amount)
	}
	return nil
}

// transferRule moves money between two cash/bank accounts.
type transferRule struct{}

func (transferRule) Refs() RefSet { return RefSet{Source: true, Target: true} }

func (transferRule) Build(req *Request, v *View) (*Mutation, error) {
	if req.SourceAccountID == req.TargetAccountID {
		return nil, ErrSameAccount
	}
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}
	if err := requireActive(v.Target); err != nil {
		return nil, err
	}
	if err := requireFunds(v.Source, req.Amount); err != nil {
		return nil, err
	}

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), Credit: req.Amount},
			{Ledger: TagCashBank, AccountID: ref(v.Target.ID), Debit: req.Amount},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: -req.Amount},
			{Entity: EntityAccount, ID: v.Target.ID, Field: FieldCurrentBalance, Amount: req.Amount},
		},
	}, nil
}

// disbursementRule gives out a loan: the source account is debited by the
// amount actually disbursed and the loan's outstanding principal rises by
// the face value. For corporation loans disbursed at a discount, the
// difference is booked as corporation income up front.
type disbursementRule struct{}

func (disbursementRule) Refs() RefSet { return RefSet{Source: true, Loan: true} }

func (disbursementRule) Build(req *Request, v *View) (*Mutation, error) {
	loan := v.Loan
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}
	if err := requireFunds(v.Source, loan.Disbursed); err != nil {
		return nil, err
	}
	if loan.Disbursed > loan.Principal {
		return nil, fmt.Errorf("%w: disbursed amount exceeds principal", ErrInvalidAmount)
	}

	entries := []EntryDraft{
		{Ledger: TagCashBank, AccountID: ref(v.Source.ID), LoanID: ref(loan.ID), Credit: loan.Disbursed},
		{Ledger: TagLoanPrincipal, LoanID: ref(loan.ID), Debit: loan.Principal},
	}
	if loan.Type == models.LoanTypeCorporation && loan.Principal > loan.Disbursed {
		entries = append(entries, EntryDraft{
			Ledger: TagIncomeCorporation,
			LoanID: ref(loan.ID),
			Credit: loan.Principal - loan.Disbursed,
		})
	} else if loan.Principal != loan.Disbursed {
		return nil, fmt.Errorf("%w: interest loans must disburse the full principal", ErrInvalidAmount)
	}

	return &Mutation{
		Entries: entries,
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: -loan.Disbursed},
			{Entity: EntityLoan, ID: loan.ID, Field: FieldPrincipalOutstanding, Amount: loan.Principal},
		},
	}, nil
}

// corporationDistributeRule hands a corporation amount to a customer outside
// a loan. The customer owes back the full receivable; the spread is income.
type corporationDistributeRule struct{}

func (corporationDistributeRule) Refs() RefSet { return RefSet{Source: true, Customer: true} }

func (corporationDistributeRule) Build(req *Request, v *View) (*Mutation, error) {
	if req.TotalReceivable <= req.Amount {
		return nil, fmt.Errorf("%w: total receivable must exceed the amount given", ErrInvalidAmount)
	}
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}
	if err := requireFunds(v.Source, req.Amount); err != nil {
		return nil, err
	}

	profit := req.TotalReceivable - req.Amount

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: TagReceivableCorporation, CustomerID: ref(v.Customer.ID), Debit: req.TotalReceivable},
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), Credit: req.Amount},
			{Ledger: TagIncomeCorporation, CustomerID: ref(v.Customer.ID), Credit: profit},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: -req.Amount},
			{Entity: EntityCustomer, ID: v.Customer.ID, Field: FieldCorporationReceivable, Amount: req.TotalReceivable},
			{Entity: EntityCustomer, ID: v.Customer.ID, Field: FieldTotalCorporationGiven, Amount: req.Amount},
		},
	}, nil
}

// collectPrincipalRule books a principal repayment against a loan.
type collectPrincipalRule struct{}

func (collectPrincipalRule) Refs() RefSet { return RefSet{Source: true, Loan: true} }

func (collectPrincipalRule) Build(req *Request, v *View) (*Mutation, error) {
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}
	if req.Amount > v.Loan.PrincipalOutstanding {
		return nil, fmt.Errorf("%w: outstanding principal is %d", ErrOverpayment, v.Loan.PrincipalOutstanding)
	}

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), LoanID: ref(v.Loan.ID), Debit: req.Amount},
			{Ledger: TagLoanPrincipal, LoanID: ref(v.Loan.ID), Credit: req.Amount},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: req.Amount},
			{Entity: EntityLoan, ID: v.Loan.ID, Field: FieldPrincipalOutstanding, Amount: -req.Amount},
			{Entity: EntityLoan, ID: v.Loan.ID, Field: FieldTotalReceivedPrincipal, Amount: req.Amount},
		},
	}, nil
}

// collectInterestRule books an interest payment as income.
type collectInterestRule struct{}

func (collectInterestRule) Refs() RefSet { return RefSet{Source: true, Loan: true} }

func (collectInterestRule) Build(req *Request, v *View) (*Mutation, error) {
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}
	if req.Amount > v.Loan.InterestAccruedUnpaid {
		return nil, fmt.Errorf("%w: accrued interest is %d", ErrOverpayment, v.Loan.InterestAccruedUnpaid)
	}

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), LoanID: ref(v.Loan.ID), Debit: req.Amount},
			{Ledger: TagIncomeInterest, LoanID: ref(v.Loan.ID), Credit: req.Amount},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: req.Amount},
			{Entity: EntityLoan, ID: v.Loan.ID, Field: FieldInterestAccruedUnpaid, Amount: -req.Amount},
			{Entity: EntityLoan, ID: v.Loan.ID, Field: FieldTotalReceivedInterest, Amount: req.Amount},
		},
	}, nil
}

// collectLateFeeRule books a late fee payment. The accrued figure is floored
// at zero rather than rejecting overpayment; late fees are soft estimates.
type collectLateFeeRule struct{}

func (collectLateFeeRule) Refs() RefSet { return RefSet{Source: true, Loan: true} }

func (collectLateFeeRule) Build(req *Request, v *View) (*Mutation, error) {
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}

	reduction := req.Amount
	if reduction > v.Loan.LateFeesAccrued {
		reduction = v.Loan.LateFeesAccrued
	}

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), LoanID: ref(v.Loan.ID), Debit: req.Amount},
			{Ledger: TagIncomeLateFee, LoanID: ref(v.Loan.ID), Credit: req.Amount},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: req.Amount},
			{Entity: EntityLoan, ID: v.Loan.ID, Field: FieldLateFeesAccrued, Amount: -reduction},
		},
	}, nil
}

// collectLoanCorporationRule books a weekly corporation installment against
// a corporation loan; installments pay down the face value, so they count as
// principal received.
type collectLoanCorporationRule struct{}

func (collectLoanCorporationRule) Refs() RefSet { return RefSet{Source: true, Loan: true} }

func (collectLoanCorporationRule) Build(req *Request, v *View) (*Mutation, error) {
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}
	if req.Amount > v.Loan.PrincipalOutstanding {
		return nil, fmt.Errorf("%w: outstanding principal is %d", ErrOverpayment, v.Loan.PrincipalOutstanding)
	}

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), LoanID: ref(v.Loan.ID), Debit: req.Amount},
			{Ledger: TagIncomeCorporation, LoanID: ref(v.Loan.ID), Credit: req.Amount},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: req.Amount},
			{Entity: EntityLoan, ID: v.Loan.ID, Field: FieldPrincipalOutstanding, Amount: -req.Amount},
			{Entity: EntityLoan, ID: v.Loan.ID, Field: FieldTotalReceivedPrincipal, Amount: req.Amount},
		},
	}, nil
}

// collectCustomerCorporationRule books a corporation repayment from a
// customer's standing receivable, outside any loan.
type collectCustomerCorporationRule struct{}

func (collectCustomerCorporationRule) Refs() RefSet { return RefSet{Source: true, Customer: true} }

func (collectCustomerCorporationRule) Build(req *Request, v *View) (*Mutation, error) {
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}
	if req.Amount > v.Customer.CorporationReceivable {
		return nil, fmt.Errorf("%w: corporation receivable is %d", ErrOverpayment, v.Customer.CorporationReceivable)
	}

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), CustomerID: ref(v.Customer.ID), Debit: req.Amount},
			{Ledger: TagReceivableCorporation, CustomerID: ref(v.Customer.ID), Credit: req.Amount},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: req.Amount},
			{Entity: EntityCustomer, ID: v.Customer.ID, Field: FieldCorporationReceivable, Amount: -req.Amount},
			{Entity: EntityCustomer, ID: v.Customer.ID, Field: FieldTotalCorporationReceived, Amount: req.Amount},
		},
	}, nil
}

// depositRule books owner capital into an account.
type depositRule struct{}

func (depositRule) Refs() RefSet { return RefSet{Source: true} }

func (depositRule) Build(req *Request, v *View) (*Mutation, error) {
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), Debit: req.Amount},
			{Ledger: TagEquityCapital, Credit: req.Amount},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: req.Amount},
		},
	}, nil
}

// withdrawalRule books a personal or operational expense out of an account.
type withdrawalRule struct{}

func (withdrawalRule) Refs() RefSet { return RefSet{Source: true} }

func (withdrawalRule) Build(req *Request, v *View) (*Mutation, error) {
	if err := requireActive(v.Source); err != nil {
		return nil, err
	}
	if err := requireFunds(v.Source, req.Amount); err != nil {
		return nil, err
	}

	expense := TagExpensePersonal
	if req.Purpose == "operational" {
		expense = TagExpenseOperational
	}

	return &Mutation{
		Entries: []EntryDraft{
			{Ledger: expense, Debit: req.Amount},
			{Ledger: TagCashBank, AccountID: ref(v.Source.ID), Credit: req.Amount},
		},
		Deltas: []Delta{
			{Entity: EntityAccount, ID: v.Source.ID, Field: FieldCurrentBalance, Amount: -req.Amount},
		},
	}, nil
}

// adjustRule accepts a caller-supplied balanced entry set for manual
// corrections. Only cash_bank lines naming an account move a balance cache;
// all other lines are bookkeeping only.
type adjustRule struct{}

func (adjustRule) Refs() RefSet { return RefSet{} }

func (adjustRule) Build(req *Request, v *View) (*Mutation, error) {
	if err := ValidateEntries(req.Entries); err != nil {
		return nil, err
	}

	var deltas []Delta
	for _, e := range req.Entries {
		if e.Ledger == TagCashBank && e.AccountID != nil {
			deltas = append(deltas, Delta{
				Entity: EntityAccount,
				ID:     *e.AccountID,
				Field:  FieldCurrentBalance,
				Amount: e.Debit - e.Credit,
			})
		}
	}

	return &Mutation{Entries: req.Entries, Deltas: deltas}, nil
}
