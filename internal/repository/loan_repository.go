package repository

import (
	"context"
	"time"

	"github.com/paisabook/paisabook-api/internal/models"

	"gorm.io/gorm"
)

// LoanRepository defines the interface for loan reads. All loan writes go
// through the unit of work, which locks the row first.
type LoanRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Loan, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error)
	List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error)
	FindAccruable(ctx context.Context, asOf time.Time) ([]models.Loan, error)
	FindOverdue(ctx context.Context, asOf time.Time) ([]models.Loan, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Taker").
		Preload("Distributor").
		Preload("FromAccount").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Loan{})
	if status := query.Filters["status"]; status != "" {
		q = q.Where("status = ?", status)
	}
	if loanType := query.Filters["type"]; loanType != "" {
		q = q.Where("type = ?", loanType)
	}
	if customer := query.Filters["customer_id"]; customer != "" {
		q = q.Where("taker_id = ?", customer)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Taker").
		Preload("Distributor").
		Preload("FromAccount").
		Order("created_at DESC").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&loans).Error
	return loans, total, err
}

// FindAccruable returns active interest loans whose next due date has passed
func (r *loanRepository) FindAccruable(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("status = ? AND type = ? AND next_due_date IS NOT NULL AND next_due_date <= ?",
			models.LoanStatusActive, models.LoanTypeInterest, asOf).
		Find(&loans).Error
	return loans, err
}

// FindOverdue returns active loans carrying unpaid accruals past their due
// date, for reminder mailing
func (r *loanRepository) FindOverdue(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Preload("Taker").
		Where("status = ? AND next_due_date IS NOT NULL AND next_due_date < ? AND (interest_accrued_unpaid > 0 OR late_fees_accrued > 0)",
			models.LoanStatusActive, asOf).
		Find(&loans).Error
	return loans, err
}
