package repository

import (
	"context"
	"time"

	"github.com/paisabook/paisabook-api/internal/models"

	"gorm.io/gorm"
)

// TransactionSummary aggregates the two sides of a transaction set
type TransactionSummary struct {
	TotalDebit  int64 `json:"total_debit"`
	TotalCredit int64 `json:"total_credit"`
	Count       int64 `json:"transaction_count"`
}

// PeriodStat is one bucket of the grouped statistics report
type PeriodStat struct {
	Period      time.Time `json:"period"`
	Count       int64     `json:"transaction_count"`
	TotalDebit  int64     `json:"total_debit"`
	TotalCredit int64     `json:"total_credit"`
}

// AccountEntrySums carries the signed entry totals for one account
type AccountEntrySums struct {
	TotalDebit  int64
	TotalCredit int64
}

// TransactionRepository defines the interface for committed-transaction
// reads and the non-financial annotations allowed after commit
type TransactionRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Transaction, error)
	List(ctx context.Context, query *ListQuery) ([]models.Transaction, int64, error)
	FindByAccount(ctx context.Context, accountID uint, query *ListQuery) ([]models.Transaction, int64, error)
	Summary(ctx context.Context, query *ListQuery) (*TransactionSummary, error)
	StatsByPeriod(ctx context.Context, groupBy string, from, to time.Time) ([]PeriodStat, error)
	EntrySumsForAccount(ctx context.Context, accountID uint) (*AccountEntrySums, error)
	EntriesForAccount(ctx context.Context, accountID uint) ([]models.TransactionEntry, error)
	UpdateRemarks(ctx context.Context, id uint, remarks string) error
	SoftDelete(ctx context.Context, id uint, deletedBy uint) error
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Loan").
		Preload("Customer").
		First(&tx, id).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) applyFilters(q *gorm.DB, query *ListQuery) *gorm.DB {
	if query.Filters["include_deleted"] != "true" {
		q = q.Where("transactions.is_deleted = ?", false)
	}
	if t := query.Filters["type"]; t != "" {
		q = q.Where("transactions.type = ?", t)
	}
	if k := query.Filters["collect_kind"]; k != "" {
		q = q.Where("transactions.collect_kind = ?", k)
	}
	if c := query.Filters["customer_id"]; c != "" {
		q = q.Where("transactions.customer_id = ?", c)
	}
	if l := query.Filters["loan_id"]; l != "" {
		q = q.Where("transactions.loan_id = ?", l)
	}
	if from := query.Filters["date_from"]; from != "" {
		q = q.Where("transactions.date >= ?", from)
	}
	if to := query.Filters["date_to"]; to != "" {
		q = q.Where("transactions.date <= ?", to)
	}
	return q
}

func (r *transactionRepository) sortOrder(query *ListQuery) string {
	col := "date"
	switch query.SortBy {
	case "date", "created_at", "type":
		col = query.SortBy
	}
	dir := "DESC"
	if query.SortDir == "asc" {
		dir = "ASC"
	}
	return "transactions." + col + " " + dir
}

func (r *transactionRepository) List(ctx context.Context, query *ListQuery) ([]models.Transaction, int64, error) {
	var txs []models.Transaction
	var total int64

	q := r.applyFilters(r.db.WithContext(ctx).Model(&models.Transaction{}), query)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Entries", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).
		Order(r.sortOrder(query)).
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&txs).Error
	return txs, total, err
}

// FindByAccount lists transactions with at least one entry referencing the
// account
func (r *transactionRepository) FindByAccount(ctx context.Context, accountID uint, query *ListQuery) ([]models.Transaction, int64, error) {
	var txs []models.Transaction
	var total int64

	sub := r.db.Model(&models.TransactionEntry{}).
		Select("transaction_id").
		Where("account_id = ?", accountID)

	q := r.applyFilters(r.db.WithContext(ctx).Model(&models.Transaction{}), query).
		Where("transactions.id IN (?)", sub)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Entries", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).
		Order(r.sortOrder(query)).
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&txs).Error
	return txs, total, err
}

// Summary totals the debit and credit sides over the filtered set
func (r *transactionRepository) Summary(ctx context.Context, query *ListQuery) (*TransactionSummary, error) {
	var row TransactionSummary

	q := r.applyFilters(r.db.WithContext(ctx).Model(&models.Transaction{}), query)
	err := q.
		Joins("JOIN transaction_entries ON transaction_entries.transaction_id = transactions.id").
		Select(`COALESCE(SUM(transaction_entries.debit), 0) AS total_debit,
			COALESCE(SUM(transaction_entries.credit), 0) AS total_credit,
			COUNT(DISTINCT transactions.id) AS count`).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// StatsByPeriod buckets committed transactions by day/week/month/year
func (r *transactionRepository) StatsByPeriod(ctx context.Context, groupBy string, from, to time.Time) ([]PeriodStat, error) {
	switch groupBy {
	case "day", "week", "month", "year":
	default:
		groupBy = "day"
	}

	var stats []PeriodStat
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Joins("JOIN transaction_entries ON transaction_entries.transaction_id = transactions.id").
		Select(`DATE_TRUNC('`+groupBy+`', transactions.date) AS period,
			COUNT(DISTINCT transactions.id) AS count,
			COALESCE(SUM(transaction_entries.debit), 0) AS total_debit,
			COALESCE(SUM(transaction_entries.credit), 0) AS total_credit`).
		Where("transactions.is_deleted = ? AND transactions.date >= ? AND transactions.date <= ?", false, from, to).
		Group("period").
		Order("period ASC").
		Scan(&stats).Error
	return stats, err
}

// EntrySumsForAccount totals both sides of every entry referencing the
// account, for auditing the cached balance. Soft-deleted transactions stay
// in the total: the flag is annotation only and their entries still moved
// the balance.
func (r *transactionRepository) EntrySumsForAccount(ctx context.Context, accountID uint) (*AccountEntrySums, error) {
	var row AccountEntrySums
	err := r.db.WithContext(ctx).
		Model(&models.TransactionEntry{}).
		Select(`COALESCE(SUM(debit), 0) AS total_debit,
			COALESCE(SUM(credit), 0) AS total_credit`).
		Where("account_id = ?", accountID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// EntriesForAccount returns every entry referencing the account in commit
// order, soft-deleted transactions included, so a statement's running
// balance always lands on the cached balance.
func (r *transactionRepository) EntriesForAccount(ctx context.Context, accountID uint) ([]models.TransactionEntry, error) {
	var entries []models.TransactionEntry
	err := r.db.WithContext(ctx).
		Joins("JOIN transactions ON transactions.id = transaction_entries.transaction_id").
		Where("transaction_entries.account_id = ?", accountID).
		Order("transactions.date ASC, transaction_entries.id ASC").
		Find(&entries).Error
	return entries, err
}

// UpdateRemarks annotates a committed transaction without touching its
// financial content
func (r *transactionRepository) UpdateRemarks(ctx context.Context, id uint, remarks string) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("remarks", remarks)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete flags a transaction for audit purposes; the record and its
// entries are never removed
func (r *transactionRepository) SoftDelete(ctx context.Context, id uint, deletedBy uint) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_by": deletedBy,
			"deleted_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
