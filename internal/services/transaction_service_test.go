package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/paisabook/paisabook-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory TxStore capturing lock order and writes
type memStore struct {
	accounts  map[uint]*models.Account
	loans     map[uint]*models.Loan
	customers map[uint]*models.Customer

	lockedAccounts []uint
	savedAccounts  []uint
	savedLoans     []uint
	savedCustomers []uint
	createdTxs     []*models.Transaction
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[uint]*models.Account),
		loans:     make(map[uint]*models.Loan),
		customers: make(map[uint]*models.Customer),
	}
}

func (m *memStore) AccountForUpdate(ctx context.Context, id uint) (*models.Account, error) {
	m.lockedAccounts = append(m.lockedAccounts, id)
	a, ok := m.accounts[id]
	if !ok {
		return nil, ledger.ErrReferenceNotFound
	}
	return a, nil
}

func (m *memStore) LoanForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	l, ok := m.loans[id]
	if !ok {
		return nil, ledger.ErrReferenceNotFound
	}
	return l, nil
}

func (m *memStore) CustomerForUpdate(ctx context.Context, id uint) (*models.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, ledger.ErrReferenceNotFound
	}
	return c, nil
}

func (m *memStore) SaveAccount(ctx context.Context, a *models.Account) error {
	m.savedAccounts = append(m.savedAccounts, a.ID)
	return nil
}

func (m *memStore) SaveLoan(ctx context.Context, l *models.Loan) error {
	m.savedLoans = append(m.savedLoans, l.ID)
	return nil
}

func (m *memStore) SaveCustomer(ctx context.Context, c *models.Customer) error {
	m.savedCustomers = append(m.savedCustomers, c.ID)
	return nil
}

func (m *memStore) CreateLoan(ctx context.Context, l *models.Loan) error {
	l.ID = uint(len(m.loans) + 1)
	m.loans[l.ID] = l
	return nil
}

func (m *memStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	tx.ID = uint(len(m.createdTxs) + 1)
	m.createdTxs = append(m.createdTxs, tx)
	return nil
}

// memUOW runs units of work against a memStore, optionally failing the first
// attempts with a serialization error
type memUOW struct {
	store    *memStore
	failures int
	calls    int
}

func (u *memUOW) Do(ctx context.Context, fn func(store repository.TxStore) error) error {
	u.calls++
	if u.calls <= u.failures {
		return &pgconn.PgError{Code: "40001"}
	}
	return fn(u.store)
}

func newTxService(store *memStore) (*TransactionService, *memUOW) {
	uow := &memUOW{store: store}
	return NewTransactionService(uow, nil, time.Second), uow
}

func TestExecuteTransfer(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 10000, Active: true}
	store.accounts[2] = &models.Account{ID: 2, CurrentBalance: 0, Active: true}
	svc, uow := newTxService(store)

	tx, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeTransfer,
		Amount:          4000,
		SourceAccountID: 1,
		TargetAccountID: 2,
		CreatedBy:       1,
	})
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.EqualValues(t, 6000, store.accounts[1].CurrentBalance)
	assert.EqualValues(t, 4000, store.accounts[2].CurrentBalance)
	assert.Equal(t, []uint{1, 2}, store.savedAccounts)
	assert.Equal(t, 1, uow.calls)

	require.Len(t, store.createdTxs, 1)
	assert.NotEmpty(t, tx.Reference)
	assert.Equal(t, models.TransactionTypeTransfer, tx.Type)
	assert.False(t, tx.Date.IsZero())
	require.Len(t, tx.Entries, 2)
	assert.Equal(t, 0, tx.Entries[0].Position)
	assert.Equal(t, 1, tx.Entries[1].Position)
}

func TestExecuteLocksAccountsInAscendingOrder(t *testing.T) {
	store := newMemStore()
	store.accounts[2] = &models.Account{ID: 2, CurrentBalance: 0, Active: true}
	store.accounts[9] = &models.Account{ID: 9, CurrentBalance: 10000, Active: true}
	svc, _ := newTxService(store)

	_, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeTransfer,
		Amount:          1000,
		SourceAccountID: 9,
		TargetAccountID: 2,
		CreatedBy:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 9}, store.lockedAccounts)
}

func TestExecuteRequiresReferences(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 10000, Active: true}
	svc, _ := newTxService(store)

	_, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeTransfer,
		Amount:          1000,
		SourceAccountID: 1,
		CreatedBy:       1,
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	assert.Empty(t, store.createdTxs)
}

func TestExecuteUnknownReference(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 10000, Active: true}
	svc, uow := newTxService(store)

	_, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeTransfer,
		Amount:          1000,
		SourceAccountID: 1,
		TargetAccountID: 42,
		CreatedBy:       1,
	})
	assert.ErrorIs(t, err, ledger.ErrReferenceNotFound)
	// Business errors never retry
	assert.Equal(t, 1, uow.calls)
}

func TestExecuteRuleFailureWritesNothing(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 500, Active: true}
	store.accounts[2] = &models.Account{ID: 2, CurrentBalance: 0, Active: true}
	svc, _ := newTxService(store)

	_, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeTransfer,
		Amount:          1000,
		SourceAccountID: 1,
		TargetAccountID: 2,
		CreatedBy:       1,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Empty(t, store.createdTxs)
	assert.Empty(t, store.savedAccounts)
	assert.EqualValues(t, 500, store.accounts[1].CurrentBalance)
}

func TestExecuteRetriesOnConflict(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 10000, Active: true}
	svc, uow := newTxService(store)
	uow.failures = 2

	tx, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeDeposit,
		Amount:          1000,
		SourceAccountID: 1,
		CreatedBy:       1,
	})
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, 3, uow.calls)
}

func TestExecuteGivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 10000, Active: true}
	svc, uow := newTxService(store)
	uow.failures = maxCommitAttempts

	_, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeDeposit,
		Amount:          1000,
		SourceAccountID: 1,
		CreatedBy:       1,
	})
	assert.ErrorIs(t, err, ledger.ErrStoreConflict)
	assert.Equal(t, maxCommitAttempts, uow.calls)
	assert.Empty(t, store.createdTxs)
}

// stalledUOW never makes progress; it returns only when the context does
type stalledUOW struct{}

func (u *stalledUOW) Do(ctx context.Context, fn func(store repository.TxStore) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestExecuteAbortsStalledUnitOfWork(t *testing.T) {
	svc := NewTransactionService(&stalledUOW{}, nil, 20*time.Millisecond)

	start := time.Now()
	_, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeDeposit,
		Amount:          1000,
		SourceAccountID: 1,
		CreatedBy:       1,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

// serialUOW runs units of work one at a time, the way row locks serialize
// conflicting commits
type serialUOW struct {
	mu    sync.Mutex
	store *memStore
}

func (u *serialUOW) Do(ctx context.Context, fn func(store repository.TxStore) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(u.store)
}

func TestConcurrentTransfersNeverLoseUpdates(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 10000, Active: true}
	store.accounts[2] = &models.Account{ID: 2, CurrentBalance: 0, Active: true}
	svc := NewTransactionService(&serialUOW{store: store}, nil, time.Second)

	// Two transfers race for a balance that only fits one of them.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Execute(context.Background(), &ledger.Request{
				Kind:            models.TransactionTypeTransfer,
				Amount:          6000,
				SourceAccountID: 1,
				TargetAccountID: 2,
				CreatedBy:       1,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 4000, store.accounts[1].CurrentBalance)
	assert.EqualValues(t, 6000, store.accounts[2].CurrentBalance)
	assert.Len(t, store.createdTxs, 1)
}

func TestExecuteCollectInterest(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 0, Active: true}
	store.loans[5] = &models.Loan{ID: 5, Status: models.LoanStatusActive,
		PrincipalOutstanding: 100000, InterestAccruedUnpaid: 2000}
	svc, _ := newTxService(store)

	tx, err := svc.Execute(context.Background(), &ledger.Request{
		Kind:            models.TransactionTypeCollect,
		CollectKind:     models.CollectKindInterest,
		Amount:          2000,
		SourceAccountID: 1,
		LoanID:          5,
		CreatedBy:       1,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 2000, store.accounts[1].CurrentBalance)
	assert.EqualValues(t, 0, store.loans[5].InterestAccruedUnpaid)
	assert.EqualValues(t, 2000, store.loans[5].TotalReceivedInterest)
	assert.Equal(t, []uint{5}, store.savedLoans)

	require.NotNil(t, tx.CollectKind)
	assert.Equal(t, models.CollectKindInterest, *tx.CollectKind)
	require.NotNil(t, tx.LoanID)
	assert.Equal(t, uint(5), *tx.LoanID)
}

func TestExecuteAdjustLocksEntryAccounts(t *testing.T) {
	store := newMemStore()
	store.accounts[3] = &models.Account{ID: 3, CurrentBalance: 1000, Active: true}
	store.accounts[7] = &models.Account{ID: 7, CurrentBalance: 1000, Active: true}
	svc, _ := newTxService(store)

	three, seven := uint(3), uint(7)
	tx, err := svc.Execute(context.Background(), &ledger.Request{
		Kind: models.TransactionTypeAdjust,
		Entries: []ledger.EntryDraft{
			{Ledger: ledger.TagCashBank, AccountID: &seven, Debit: 250},
			{Ledger: ledger.TagCashBank, AccountID: &three, Credit: 250},
		},
		CreatedBy: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, []uint{3, 7}, store.lockedAccounts)
	assert.EqualValues(t, 1250, store.accounts[7].CurrentBalance)
	assert.EqualValues(t, 750, store.accounts[3].CurrentBalance)
}
