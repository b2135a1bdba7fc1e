package services

import (
	"context"
	"testing"
	"time"

	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/paisabook/paisabook-api/internal/repository"
	"github.com/paisabook/paisabook-api/internal/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// mockLoanRepo serves the scan queries from fixed slices
type mockLoanRepo struct {
	accruable []models.Loan
	overdue   []models.Loan
}

func (m *mockLoanRepo) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLoanRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLoanRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.Loan, int64, error) {
	return nil, 0, nil
}

func (m *mockLoanRepo) FindAccruable(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	return m.accruable, nil
}

func (m *mockLoanRepo) FindOverdue(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	return m.overdue, nil
}

// mockCustomerRepo knows a fixed set of customers
type mockCustomerRepo struct {
	customers map[uint]*models.Customer
}

func (m *mockCustomerRepo) FindByID(ctx context.Context, id uint) (*models.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) FindByIDWithLoans(ctx context.Context, id uint) (*models.Customer, error) {
	return m.FindByID(ctx, id)
}

func (m *mockCustomerRepo) Create(ctx context.Context, customer *models.Customer) error { return nil }
func (m *mockCustomerRepo) Update(ctx context.Context, customer *models.Customer) error { return nil }

func (m *mockCustomerRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.Customer, int64, error) {
	return nil, 0, nil
}

func (m *mockCustomerRepo) Summary(ctx context.Context, id uint) (*models.CustomerSummary, error) {
	return &models.CustomerSummary{}, nil
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func newLoanService(store *memStore) (*LoanService, *memUOW) {
	uow := &memUOW{store: store}
	txSvc := NewTransactionService(uow, nil, time.Second)
	customers := &mockCustomerRepo{customers: map[uint]*models.Customer{
		3: {ID: 3, Name: "Ravi"},
	}}
	return NewLoanService(&mockLoanRepo{}, customers, uow, txSvc, nil, nil), uow
}

func TestCreateLoanInputValidate(t *testing.T) {
	t.Run("interest loan needs a rate", func(t *testing.T) {
		in := &CreateLoanInput{Name: "l", Type: models.LoanTypeInterest, TakerID: 3, FromAccountID: 1, Principal: 100000}
		assert.ErrorIs(t, in.validate(), ledger.ErrValidation)
	})

	t.Run("interest loan cannot disburse at a discount", func(t *testing.T) {
		in := &CreateLoanInput{Name: "l", Type: models.LoanTypeInterest, TakerID: 3, FromAccountID: 1,
			Principal: 100000, Disbursed: 90000, InterestRateMonthly: floatPtr(1.5)}
		assert.ErrorIs(t, in.validate(), ledger.ErrValidation)
	})

	t.Run("corporation loan may disburse at a discount", func(t *testing.T) {
		in := &CreateLoanInput{Name: "l", Type: models.LoanTypeCorporation, TakerID: 3, FromAccountID: 1,
			Principal: 130000, Disbursed: 100000}
		assert.NoError(t, in.validate())
	})

	t.Run("disbursed defaults to principal", func(t *testing.T) {
		in := &CreateLoanInput{Name: "l", Type: models.LoanTypeInterest, TakerID: 3, FromAccountID: 1,
			Principal: 100000, InterestRateMonthly: floatPtr(1.5)}
		require.NoError(t, in.validate())
		assert.EqualValues(t, 100000, in.Disbursed)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		in := &CreateLoanInput{Name: "l", Type: "payday", TakerID: 3, FromAccountID: 1, Principal: 100000}
		assert.ErrorIs(t, in.validate(), ledger.ErrValidation)
	})
}

func TestCreateLoanBooksDisbursement(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 200000, Active: true}
	svc, _ := newLoanService(store)

	loan, err := svc.CreateLoan(context.Background(), &CreateLoanInput{
		Name:                "shop loan",
		Type:                models.LoanTypeInterest,
		TakerID:             3,
		FromAccountID:       1,
		Principal:           100000,
		InterestRateMonthly: floatPtr(2),
		InterestCycle:       strPtr(models.InterestCycleMonthly),
		CreatedBy:           1,
	})
	require.NoError(t, err)
	require.NotNil(t, loan)

	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.EqualValues(t, 100000, loan.PrincipalOutstanding)
	assert.EqualValues(t, 100000, store.accounts[1].CurrentBalance)
	require.NotNil(t, loan.NextDueDate)

	require.Len(t, store.createdTxs, 1)
	tx := store.createdTxs[0]
	assert.Equal(t, models.TransactionTypeGive, tx.Type)
	require.NotNil(t, tx.LoanID)
	assert.Equal(t, loan.ID, *tx.LoanID)
}

func TestCreateLoanUnknownCustomer(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 200000, Active: true}
	svc, uow := newLoanService(store)

	_, err := svc.CreateLoan(context.Background(), &CreateLoanInput{
		Name:                "ghost",
		Type:                models.LoanTypeInterest,
		TakerID:             99,
		FromAccountID:       1,
		Principal:           100000,
		InterestRateMonthly: floatPtr(2),
		CreatedBy:           1,
	})
	assert.ErrorIs(t, err, ledger.ErrReferenceNotFound)
	assert.Equal(t, 0, uow.calls)
}

func TestCreateLoanFailedDisbursementLeavesNoLoan(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 50000, Active: true}
	svc, _ := newLoanService(store)

	_, err := svc.CreateLoan(context.Background(), &CreateLoanInput{
		Name:                "too big",
		Type:                models.LoanTypeInterest,
		TakerID:             3,
		FromAccountID:       1,
		Principal:           100000,
		InterestRateMonthly: floatPtr(2),
		CreatedBy:           1,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Empty(t, store.createdTxs)
}

func TestFirstDueDate(t *testing.T) {
	disbursed := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("monthly cycle", func(t *testing.T) {
		loan := &models.Loan{Type: models.LoanTypeInterest, InterestCycle: strPtr(models.InterestCycleMonthly)}
		due := firstDueDate(loan, disbursed)
		require.NotNil(t, due)
		assert.Equal(t, time.April, due.Month())
	})

	t.Run("due day of month clamps the date", func(t *testing.T) {
		day := 5
		loan := &models.Loan{Type: models.LoanTypeInterest, InterestCycle: strPtr(models.InterestCycleQuarterly), DueDayOfMonth: &day}
		due := firstDueDate(loan, disbursed)
		require.NotNil(t, due)
		assert.Equal(t, 5, due.Day())
		assert.Equal(t, time.June, due.Month())
	})

	t.Run("on_close has no schedule", func(t *testing.T) {
		loan := &models.Loan{Type: models.LoanTypeInterest, InterestCycle: strPtr(models.InterestCycleOnClose)}
		assert.Nil(t, firstDueDate(loan, disbursed))
	})

	t.Run("corporation loans have no due date", func(t *testing.T) {
		loan := &models.Loan{Type: models.LoanTypeCorporation}
		assert.Nil(t, firstDueDate(loan, disbursed))
	})
}

func TestCycleInterest(t *testing.T) {
	loan := &models.Loan{PrincipalOutstanding: 100000, InterestRateMonthly: floatPtr(1.5)}
	assert.EqualValues(t, 1500, cycleInterest(loan, 1))
	assert.EqualValues(t, 4500, cycleInterest(loan, 3))

	// Rounded to the nearest paisa
	odd := &models.Loan{PrincipalOutstanding: 99999, InterestRateMonthly: floatPtr(1.5)}
	assert.EqualValues(t, 1500, cycleInterest(odd, 1))

	noRate := &models.Loan{PrincipalOutstanding: 100000}
	assert.EqualValues(t, 0, cycleInterest(noRate, 1))
}

func TestCloseLoan(t *testing.T) {
	store := newMemStore()
	svc, _ := newLoanService(store)

	t.Run("closes settled loan and stamps ClosedAt", func(t *testing.T) {
		due := time.Now()
		store.loans[1] = &models.Loan{ID: 1, Status: models.LoanStatusActive, PrincipalOutstanding: 0, NextDueDate: &due}

		loan, err := svc.CloseLoan(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.LoanStatusClosed, loan.Status)
		assert.NotNil(t, loan.ClosedAt)
		assert.Nil(t, loan.NextDueDate)
		assert.Contains(t, store.savedLoans, uint(1))
	})

	t.Run("refuses with outstanding principal", func(t *testing.T) {
		store.loans[2] = &models.Loan{ID: 2, Status: models.LoanStatusActive, PrincipalOutstanding: 500}

		_, err := svc.CloseLoan(context.Background(), 2)
		assert.ErrorIs(t, err, statemachine.ErrInvalidStateTransition)
		assert.Equal(t, models.LoanStatusActive, store.loans[2].Status)
	})
}

func TestDefaultLoan(t *testing.T) {
	store := newMemStore()
	svc, _ := newLoanService(store)
	store.loans[4] = &models.Loan{ID: 4, Status: models.LoanStatusActive, PrincipalOutstanding: 80000}

	loan, err := svc.DefaultLoan(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusDefaulted, loan.Status)
	assert.Nil(t, loan.ClosedAt)

	_, err = svc.DefaultLoan(context.Background(), 4)
	assert.ErrorIs(t, err, statemachine.ErrInvalidStateTransition)
}

func TestAccrueInterest(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	pastDue := asOf.AddDate(0, 0, -3)

	store := newMemStore()
	store.loans[1] = &models.Loan{ID: 1, Status: models.LoanStatusActive, Type: models.LoanTypeInterest,
		PrincipalOutstanding: 100000, InterestRateMonthly: floatPtr(2),
		InterestCycle: strPtr(models.InterestCycleMonthly), NextDueDate: &pastDue}

	uow := &memUOW{store: store}
	txSvc := NewTransactionService(uow, nil, time.Second)
	repo := &mockLoanRepo{accruable: []models.Loan{*store.loans[1]}}
	customers := &mockCustomerRepo{customers: map[uint]*models.Customer{}}
	svc := NewLoanService(repo, customers, uow, txSvc, nil, nil)

	accrued, err := svc.AccrueInterest(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, accrued)

	loan := store.loans[1]
	assert.EqualValues(t, 2000, loan.InterestAccruedUnpaid)
	require.NotNil(t, loan.NextDueDate)
	assert.Equal(t, pastDue.AddDate(0, 1, 0), *loan.NextDueDate)
	// Accrual writes no ledger entries; income waits for collection
	assert.Empty(t, store.createdTxs)

	// Loan closed between scan and lock is skipped
	loan.Status = models.LoanStatusClosed
	accrued, err = svc.AccrueInterest(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, accrued)
	assert.EqualValues(t, 2000, loan.InterestAccruedUnpaid)
}
