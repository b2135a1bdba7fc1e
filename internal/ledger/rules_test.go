package ledger

import (
	"testing"

	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeAccount(id uint, balance int64) *models.Account {
	return &models.Account{ID: id, Name: "acct", Type: models.AccountTypeCash, CurrentBalance: balance, Active: true}
}

func TestRequestValidate(t *testing.T) {
	valid := &Request{Kind: models.TransactionTypeTransfer, Amount: 100, SourceAccountID: 1, TargetAccountID: 2, CreatedBy: 1}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		req  Request
	}{
		{"unknown kind", Request{Kind: "refund", Amount: 100, CreatedBy: 1}},
		{"zero amount", Request{Kind: models.TransactionTypeDeposit, Amount: 0, CreatedBy: 1}},
		{"negative amount", Request{Kind: models.TransactionTypeDeposit, Amount: -500, CreatedBy: 1}},
		{"unknown collect kind", Request{Kind: models.TransactionTypeCollect, CollectKind: "tip", Amount: 100, CreatedBy: 1}},
		{"missing creator", Request{Kind: models.TransactionTypeDeposit, Amount: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.req.Validate(), ErrValidation)
		})
	}

	// Adjust requests carry no top-level amount
	adjust := &Request{Kind: models.TransactionTypeAdjust, CreatedBy: 1}
	assert.NoError(t, adjust.Validate())
}

func TestRuleForDispatch(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want RefSet
	}{
		{"transfer", Request{Kind: models.TransactionTypeTransfer}, RefSet{Source: true, Target: true}},
		{"deposit", Request{Kind: models.TransactionTypeDeposit}, RefSet{Source: true}},
		{"withdrawal", Request{Kind: models.TransactionTypeWithdrawal}, RefSet{Source: true}},
		{"adjust", Request{Kind: models.TransactionTypeAdjust}, RefSet{}},
		{"disbursement", Request{Kind: models.TransactionTypeGive, LoanID: 1}, RefSet{Source: true, Loan: true}},
		{"corporation distribution", Request{Kind: models.TransactionTypeGive, CollectKind: models.CollectKindCorporation, CustomerID: 1}, RefSet{Source: true, Customer: true}},
		{"collect principal", Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindPrincipal}, RefSet{Source: true, Loan: true}},
		{"collect interest", Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindInterest}, RefSet{Source: true, Loan: true}},
		{"collect late fee", Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindLateFee}, RefSet{Source: true, Loan: true}},
		{"collect loan corporation", Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindCorporation, LoanID: 1}, RefSet{Source: true, Loan: true}},
		{"collect customer corporation", Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindCorporation, CustomerID: 1}, RefSet{Source: true, Customer: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := RuleFor(&tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.Refs())
		})
	}

	_, err := RuleFor(&Request{Kind: models.TransactionTypeCollect})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = RuleFor(&Request{Kind: "refund"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransferRule(t *testing.T) {
	rule := transferRule{}

	t.Run("moves funds between accounts", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 10000), Target: activeAccount(2, 0)}
		req := &Request{Kind: models.TransactionTypeTransfer, Amount: 4000, SourceAccountID: 1, TargetAccountID: 2}

		m, err := rule.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		require.Len(t, m.Entries, 2)
		assert.EqualValues(t, 4000, m.Entries[0].Credit)
		assert.EqualValues(t, 4000, m.Entries[1].Debit)

		require.Len(t, m.Deltas, 2)
		assert.EqualValues(t, -4000, m.Deltas[0].Amount)
		assert.EqualValues(t, 4000, m.Deltas[1].Amount)
	})

	t.Run("rejects same account", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 10000), Target: activeAccount(1, 10000)}
		req := &Request{Kind: models.TransactionTypeTransfer, Amount: 100, SourceAccountID: 1, TargetAccountID: 1}

		_, err := rule.Build(req, v)
		assert.ErrorIs(t, err, ErrSameAccount)
	})

	t.Run("rejects insufficient funds", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 10000), Target: activeAccount(2, 0)}
		req := &Request{Kind: models.TransactionTypeTransfer, Amount: 10001, SourceAccountID: 1, TargetAccountID: 2}

		_, err := rule.Build(req, v)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("rejects inactive target", func(t *testing.T) {
		target := activeAccount(2, 0)
		target.Active = false
		v := &View{Source: activeAccount(1, 10000), Target: target}
		req := &Request{Kind: models.TransactionTypeTransfer, Amount: 100, SourceAccountID: 1, TargetAccountID: 2}

		_, err := rule.Build(req, v)
		assert.ErrorIs(t, err, ErrInactiveAccount)
	})
}

func TestWithdrawalRule(t *testing.T) {
	rule := withdrawalRule{}

	t.Run("books personal expense by default", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 10000)}
		req := &Request{Kind: models.TransactionTypeWithdrawal, Amount: 2500, SourceAccountID: 1}

		m, err := rule.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		assert.Equal(t, TagExpensePersonal, m.Entries[0].Ledger)
		assert.EqualValues(t, -2500, m.Deltas[0].Amount)
	})

	t.Run("books operational expense on purpose", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 10000)}
		req := &Request{Kind: models.TransactionTypeWithdrawal, Amount: 2500, SourceAccountID: 1, Purpose: "operational"}

		m, err := rule.Build(req, v)
		require.NoError(t, err)
		assert.Equal(t, TagExpenseOperational, m.Entries[0].Ledger)
	})

	t.Run("rejects overdraft", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 10000)}
		req := &Request{Kind: models.TransactionTypeWithdrawal, Amount: 10001, SourceAccountID: 1}

		_, err := rule.Build(req, v)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})
}

func TestDepositRule(t *testing.T) {
	v := &View{Source: activeAccount(1, 0)}
	req := &Request{Kind: models.TransactionTypeDeposit, Amount: 500000, SourceAccountID: 1}

	m, err := depositRule{}.Build(req, v)
	require.NoError(t, err)
	require.NoError(t, ValidateEntries(m.Entries))
	assert.Equal(t, TagCashBank, m.Entries[0].Ledger)
	assert.Equal(t, TagEquityCapital, m.Entries[1].Ledger)
	assert.EqualValues(t, 500000, m.Deltas[0].Amount)
}

func TestDisbursementRule(t *testing.T) {
	rule := disbursementRule{}

	t.Run("interest loan disburses full principal", func(t *testing.T) {
		loan := &models.Loan{ID: 5, Type: models.LoanTypeInterest, Principal: 100000, Disbursed: 100000}
		v := &View{Source: activeAccount(1, 150000), Loan: loan}
		req := &Request{Kind: models.TransactionTypeGive, Amount: 100000, SourceAccountID: 1, LoanID: 5}

		m, err := rule.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		require.Len(t, m.Entries, 2)
		assert.EqualValues(t, -100000, m.Deltas[0].Amount)
		assert.Equal(t, FieldPrincipalOutstanding, m.Deltas[1].Field)
		assert.EqualValues(t, 100000, m.Deltas[1].Amount)
	})

	t.Run("corporation loan books the discount as income", func(t *testing.T) {
		loan := &models.Loan{ID: 6, Type: models.LoanTypeCorporation, Principal: 130000, Disbursed: 100000}
		v := &View{Source: activeAccount(1, 150000), Loan: loan}
		req := &Request{Kind: models.TransactionTypeGive, Amount: 100000, SourceAccountID: 1, LoanID: 6}

		m, err := rule.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		require.Len(t, m.Entries, 3)
		assert.Equal(t, TagIncomeCorporation, m.Entries[2].Ledger)
		assert.EqualValues(t, 30000, m.Entries[2].Credit)
		// Outstanding rises by face value, cash drops by what actually left
		assert.EqualValues(t, 130000, m.Deltas[1].Amount)
		assert.EqualValues(t, -100000, m.Deltas[0].Amount)
	})

	t.Run("rejects interest loan disbursed at a discount", func(t *testing.T) {
		loan := &models.Loan{ID: 7, Type: models.LoanTypeInterest, Principal: 100000, Disbursed: 90000}
		v := &View{Source: activeAccount(1, 150000), Loan: loan}
		req := &Request{Kind: models.TransactionTypeGive, Amount: 90000, SourceAccountID: 1, LoanID: 7}

		_, err := rule.Build(req, v)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects insufficient source funds", func(t *testing.T) {
		loan := &models.Loan{ID: 8, Type: models.LoanTypeInterest, Principal: 100000, Disbursed: 100000}
		v := &View{Source: activeAccount(1, 99999), Loan: loan}
		req := &Request{Kind: models.TransactionTypeGive, Amount: 100000, SourceAccountID: 1, LoanID: 8}

		_, err := rule.Build(req, v)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})
}

func TestCorporationDistributeRule(t *testing.T) {
	rule := corporationDistributeRule{}
	customer := &models.Customer{ID: 3, Name: "Ravi"}

	t.Run("books receivable and profit", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 20000), Customer: customer}
		req := &Request{Kind: models.TransactionTypeGive, CollectKind: models.CollectKindCorporation,
			Amount: 10000, TotalReceivable: 13000, SourceAccountID: 1, CustomerID: 3}

		m, err := rule.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		require.Len(t, m.Entries, 3)
		assert.EqualValues(t, 13000, m.Entries[0].Debit)
		assert.EqualValues(t, 3000, m.Entries[2].Credit)

		require.Len(t, m.Deltas, 3)
		assert.Equal(t, FieldCorporationReceivable, m.Deltas[1].Field)
		assert.EqualValues(t, 13000, m.Deltas[1].Amount)
	})

	t.Run("rejects receivable at or below amount", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 20000), Customer: customer}
		req := &Request{Kind: models.TransactionTypeGive, CollectKind: models.CollectKindCorporation,
			Amount: 10000, TotalReceivable: 10000, SourceAccountID: 1, CustomerID: 3}

		_, err := rule.Build(req, v)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestCollectRules(t *testing.T) {
	loan := func() *models.Loan {
		return &models.Loan{ID: 9, Type: models.LoanTypeInterest, Status: models.LoanStatusActive,
			PrincipalOutstanding: 50000, InterestAccruedUnpaid: 1500, LateFeesAccrued: 200}
	}

	t.Run("principal repayment", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 0), Loan: loan()}
		req := &Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindPrincipal, Amount: 20000, SourceAccountID: 1, LoanID: 9}

		m, err := collectPrincipalRule{}.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		assert.Equal(t, FieldPrincipalOutstanding, m.Deltas[1].Field)
		assert.EqualValues(t, -20000, m.Deltas[1].Amount)
		assert.Equal(t, FieldTotalReceivedPrincipal, m.Deltas[2].Field)
	})

	t.Run("principal overpayment rejected", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 0), Loan: loan()}
		req := &Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindPrincipal, Amount: 50001, SourceAccountID: 1, LoanID: 9}

		_, err := collectPrincipalRule{}.Build(req, v)
		assert.ErrorIs(t, err, ErrOverpayment)
	})

	t.Run("interest collection recognizes income", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 0), Loan: loan()}
		req := &Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindInterest, Amount: 1500, SourceAccountID: 1, LoanID: 9}

		m, err := collectInterestRule{}.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		assert.Equal(t, TagIncomeInterest, m.Entries[1].Ledger)
		assert.Equal(t, FieldInterestAccruedUnpaid, m.Deltas[1].Field)
		assert.EqualValues(t, -1500, m.Deltas[1].Amount)
	})

	t.Run("interest overpayment rejected", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 0), Loan: loan()}
		req := &Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindInterest, Amount: 1501, SourceAccountID: 1, LoanID: 9}

		_, err := collectInterestRule{}.Build(req, v)
		assert.ErrorIs(t, err, ErrOverpayment)
	})

	t.Run("late fee overpayment floors the accrual", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 0), Loan: loan()}
		req := &Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindLateFee, Amount: 500, SourceAccountID: 1, LoanID: 9}

		m, err := collectLateFeeRule{}.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		// Full 500 is income but the accrual only drops by the 200 remaining
		assert.EqualValues(t, 500, m.Entries[1].Credit)
		assert.Equal(t, FieldLateFeesAccrued, m.Deltas[1].Field)
		assert.EqualValues(t, -200, m.Deltas[1].Amount)
	})

	t.Run("loan corporation installment counts as principal", func(t *testing.T) {
		v := &View{Source: activeAccount(1, 0), Loan: loan()}
		req := &Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindCorporation, Amount: 10000, SourceAccountID: 1, LoanID: 9}

		m, err := collectLoanCorporationRule{}.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		assert.Equal(t, TagIncomeCorporation, m.Entries[1].Ledger)
		assert.Equal(t, FieldPrincipalOutstanding, m.Deltas[1].Field)
	})

	t.Run("customer corporation repayment reduces receivable", func(t *testing.T) {
		customer := &models.Customer{ID: 4, CorporationReceivable: 13000}
		v := &View{Source: activeAccount(1, 0), Customer: customer}
		req := &Request{Kind: models.TransactionTypeCollect, CollectKind: models.CollectKindCorporation, Amount: 6500, SourceAccountID: 1, CustomerID: 4}

		m, err := collectCustomerCorporationRule{}.Build(req, v)
		require.NoError(t, err)
		require.NoError(t, ValidateEntries(m.Entries))
		assert.Equal(t, FieldCorporationReceivable, m.Deltas[1].Field)
		assert.EqualValues(t, -6500, m.Deltas[1].Amount)

		req.Amount = 13001
		_, err = collectCustomerCorporationRule{}.Build(req, v)
		assert.ErrorIs(t, err, ErrOverpayment)
	})
}

func TestAdjustRule(t *testing.T) {
	acct := uint(1)

	t.Run("balanced manual correction", func(t *testing.T) {
		req := &Request{Kind: models.TransactionTypeAdjust, Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: &acct, Debit: 100},
			{Ledger: TagIncomeInterest, Credit: 100},
		}}

		m, err := adjustRule{}.Build(req, &View{})
		require.NoError(t, err)
		require.Len(t, m.Deltas, 1)
		assert.EqualValues(t, 100, m.Deltas[0].Amount)
	})

	t.Run("non-cash lines move no balance", func(t *testing.T) {
		req := &Request{Kind: models.TransactionTypeAdjust, Entries: []EntryDraft{
			{Ledger: TagIncomeInterest, Debit: 100},
			{Ledger: TagIncomeLateFee, Credit: 100},
		}}

		m, err := adjustRule{}.Build(req, &View{})
		require.NoError(t, err)
		assert.Empty(t, m.Deltas)
	})

	t.Run("imbalanced set rejected", func(t *testing.T) {
		req := &Request{Kind: models.TransactionTypeAdjust, Entries: []EntryDraft{
			{Ledger: TagCashBank, AccountID: &acct, Debit: 100},
			{Ledger: TagIncomeInterest, Credit: 99},
		}}

		_, err := adjustRule{}.Build(req, &View{})
		assert.ErrorIs(t, err, ErrImbalancedEntries)
	})
}
