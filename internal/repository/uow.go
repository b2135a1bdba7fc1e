package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TxStore is the view of the store available inside a unit of work. Row
// reads take exclusive locks, so two units touching the same rows
// serialize at the database.
type TxStore interface {
	AccountForUpdate(ctx context.Context, id uint) (*models.Account, error)
	LoanForUpdate(ctx context.Context, id uint) (*models.Loan, error)
	CustomerForUpdate(ctx context.Context, id uint) (*models.Customer, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	SaveLoan(ctx context.Context, loan *models.Loan) error
	SaveCustomer(ctx context.Context, customer *models.Customer) error
	CreateLoan(ctx context.Context, loan *models.Loan) error
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
}

// UnitOfWork runs a function inside a single database transaction. The
// whole function commits or rolls back as one.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(store TxStore) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a gorm-backed unit of work
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(store TxStore) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{tx: tx})
	})
}

type txStore struct {
	tx *gorm.DB
}

func (s *txStore) AccountForUpdate(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := s.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, id).Error
	if err != nil {
		return nil, refError("account", id, err)
	}
	return &account, nil
}

func (s *txStore) LoanForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := s.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error
	if err != nil {
		return nil, refError("loan", id, err)
	}
	return &loan, nil
}

func (s *txStore) CustomerForUpdate(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := s.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&customer, id).Error
	if err != nil {
		return nil, refError("customer", id, err)
	}
	return &customer, nil
}

func refError(entity string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, ledger.ErrReferenceNotFound)
	}
	return err
}

func (s *txStore) SaveAccount(ctx context.Context, account *models.Account) error {
	return s.tx.WithContext(ctx).Save(account).Error
}

func (s *txStore) SaveLoan(ctx context.Context, loan *models.Loan) error {
	return s.tx.WithContext(ctx).Save(loan).Error
}

func (s *txStore) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	return s.tx.WithContext(ctx).Save(customer).Error
}

func (s *txStore) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return s.tx.WithContext(ctx).Create(loan).Error
}

func (s *txStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return s.tx.WithContext(ctx).Create(tx).Error
}

// IsConflict reports whether err is a serialization failure, deadlock or
// lock timeout that a fresh attempt may resolve
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}
