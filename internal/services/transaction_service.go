package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/paisabook/paisabook-api/internal/repository"
	"github.com/paisabook/paisabook-api/pkg/logger"
	"gorm.io/gorm"
)

// maxCommitAttempts bounds retries on serialization conflicts
const maxCommitAttempts = 3

// defaultTxTimeout bounds a unit of work when no TX_TIMEOUT is configured
const defaultTxTimeout = 5 * time.Second

// TransactionService executes transaction requests atomically. All balance
// movement in the system funnels through Execute: a request picks its rule,
// the referenced rows are locked, the rule's entries and deltas are applied,
// and everything commits or nothing does.
type TransactionService struct {
	uow       repository.UnitOfWork
	repo      repository.TransactionRepository
	txTimeout time.Duration
}

// NewTransactionService creates a new transaction service
func NewTransactionService(uow repository.UnitOfWork, repo repository.TransactionRepository, txTimeout time.Duration) *TransactionService {
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	return &TransactionService{uow: uow, repo: repo, txTimeout: txTimeout}
}

// withTimeout bounds one unit of work. A stalled lock wait or commit aborts
// instead of holding its row locks indefinitely.
func (s *TransactionService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.txTimeout)
}

// Execute runs a transaction request in its own unit of work, retrying a
// bounded number of times when the database reports a serialization conflict
// or deadlock. Each attempt gets its own deadline.
func (s *TransactionService) Execute(ctx context.Context, req *ledger.Request) (*models.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created *models.Transaction
	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		attemptCtx, cancel := s.withTimeout(ctx)
		err = s.uow.Do(attemptCtx, func(store repository.TxStore) error {
			var innerErr error
			created, innerErr = s.ExecuteWithin(attemptCtx, store, req)
			return innerErr
		})
		cancel()
		if err == nil {
			return created, nil
		}
		if !repository.IsConflict(err) {
			return nil, err
		}
		logger.Warn("transaction conflict, retrying",
			"kind", req.Kind, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts: %v", ledger.ErrStoreConflict, maxCommitAttempts, err)
}

// ExecuteWithin runs a transaction request inside an already-open unit of
// work, so callers can compose it with other writes (loan creation and its
// disbursement commit together).
func (s *TransactionService) ExecuteWithin(ctx context.Context, store repository.TxStore, req *ledger.Request) (*models.Transaction, error) {
	rule, err := ledger.RuleFor(req)
	if err != nil {
		return nil, err
	}
	refs := rule.Refs()

	accountIDs, err := lockPlan(req, refs)
	if err != nil {
		return nil, err
	}

	// Lock in a fixed order (accounts ascending, then loan, then customer)
	// so concurrent units of work cannot deadlock each other.
	entities := ledger.NewEntities()
	for _, id := range accountIDs {
		account, err := store.AccountForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		entities.Accounts[id] = account
	}

	view := &ledger.View{}
	if refs.Source {
		view.Source = entities.Accounts[req.SourceAccountID]
	}
	if refs.Target {
		view.Target = entities.Accounts[req.TargetAccountID]
	}
	if refs.Loan {
		loan, err := store.LoanForUpdate(ctx, req.LoanID)
		if err != nil {
			return nil, err
		}
		entities.Loans[loan.ID] = loan
		view.Loan = loan
	}
	if refs.Customer {
		customer, err := store.CustomerForUpdate(ctx, req.CustomerID)
		if err != nil {
			return nil, err
		}
		entities.Customers[customer.ID] = customer
		view.Customer = customer
	}

	mutation, err := rule.Build(req, view)
	if err != nil {
		return nil, err
	}
	if err := ledger.ValidateEntries(mutation.Entries); err != nil {
		return nil, err
	}

	for _, d := range mutation.Deltas {
		if err := entities.Apply(d); err != nil {
			return nil, err
		}
	}
	if err := persistTouched(ctx, store, entities, mutation.Deltas); err != nil {
		return nil, err
	}

	tx := buildTransaction(req, mutation.Entries)
	if err := store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to write transaction: %w", err)
	}
	return tx, nil
}

// lockPlan returns the sorted, deduplicated account IDs the request needs
// locked, and checks that the required references are present.
func lockPlan(req *ledger.Request, refs ledger.RefSet) ([]uint, error) {
	seen := make(map[uint]bool)
	var ids []uint
	add := func(id uint) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if refs.Source {
		if req.SourceAccountID == 0 {
			return nil, fmt.Errorf("%w: source account is required", ledger.ErrValidation)
		}
		add(req.SourceAccountID)
	}
	if refs.Target {
		if req.TargetAccountID == 0 {
			return nil, fmt.Errorf("%w: target account is required", ledger.ErrValidation)
		}
		add(req.TargetAccountID)
	}
	if refs.Loan && req.LoanID == 0 {
		return nil, fmt.Errorf("%w: loan is required", ledger.ErrValidation)
	}
	if refs.Customer && req.CustomerID == 0 {
		return nil, fmt.Errorf("%w: customer is required", ledger.ErrValidation)
	}

	// Adjustments carry their own entry lines; every account they touch
	// must be locked too.
	if req.Kind == models.TransactionTypeAdjust {
		for _, e := range req.Entries {
			if e.AccountID != nil {
				add(*e.AccountID)
			}
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func persistTouched(ctx context.Context, store repository.TxStore, entities *ledger.Entities, deltas []ledger.Delta) error {
	type key struct {
		entity ledger.EntityType
		id     uint
	}
	saved := make(map[key]bool)
	for _, d := range deltas {
		k := key{d.Entity, d.ID}
		if saved[k] {
			continue
		}
		saved[k] = true

		var err error
		switch d.Entity {
		case ledger.EntityAccount:
			err = store.SaveAccount(ctx, entities.Accounts[d.ID])
		case ledger.EntityLoan:
			err = store.SaveLoan(ctx, entities.Loans[d.ID])
		case ledger.EntityCustomer:
			err = store.SaveCustomer(ctx, entities.Customers[d.ID])
		}
		if err != nil {
			return fmt.Errorf("failed to persist %s %d: %w", d.Entity, d.ID, err)
		}
	}
	return nil
}

func buildTransaction(req *ledger.Request, drafts []ledger.EntryDraft) *models.Transaction {
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	tx := &models.Transaction{
		Reference: uuid.NewString(),
		Date:      date,
		CreatedBy: req.CreatedBy,
		Type:      req.Kind,
	}
	if req.CollectKind != "" {
		kind := req.CollectKind
		tx.CollectKind = &kind
	}
	if req.LoanID != 0 {
		id := req.LoanID
		tx.LoanID = &id
	}
	if req.CustomerID != 0 {
		id := req.CustomerID
		tx.CustomerID = &id
	}
	if req.Remarks != "" {
		remarks := req.Remarks
		tx.Remarks = &remarks
	}
	for i, d := range drafts {
		tx.Entries = append(tx.Entries, d.ToModel(i))
	}
	return tx
}

// GetTransaction loads one transaction with its entries
func (s *TransactionService) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns a filtered, paginated page of transactions
func (s *TransactionService) ListTransactions(ctx context.Context, query *repository.ListQuery) ([]models.Transaction, int64, error) {
	return s.repo.List(ctx, query)
}

// ListByAccount returns transactions touching the given account
func (s *TransactionService) ListByAccount(ctx context.Context, accountID uint, query *repository.ListQuery) ([]models.Transaction, int64, error) {
	return s.repo.FindByAccount(ctx, accountID, query)
}

// Summary totals the filtered transaction set
func (s *TransactionService) Summary(ctx context.Context, query *repository.ListQuery) (*repository.TransactionSummary, error) {
	return s.repo.Summary(ctx, query)
}

// Stats buckets transaction volume by period
func (s *TransactionService) Stats(ctx context.Context, groupBy string, from, to time.Time) ([]repository.PeriodStat, error) {
	return s.repo.StatsByPeriod(ctx, groupBy, from, to)
}

// UpdateRemarks annotates a committed transaction. Remarks are the only
// mutable field on a transaction.
func (s *TransactionService) UpdateRemarks(ctx context.Context, id uint, remarks string) error {
	if err := s.repo.UpdateRemarks(ctx, id, remarks); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SoftDelete flags a transaction as deleted for audit. Balances are not
// reversed; corrections go through adjust transactions.
func (s *TransactionService) SoftDelete(ctx context.Context, id uint, deletedBy uint) error {
	if err := s.repo.SoftDelete(ctx, id, deletedBy); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
