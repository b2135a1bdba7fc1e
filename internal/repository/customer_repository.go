package repository

import (
	"context"

	"github.com/paisabook/paisabook-api/internal/models"

	"gorm.io/gorm"
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Customer, error)
	FindByIDWithLoans(ctx context.Context, id uint) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	List(ctx context.Context, query *ListQuery) ([]models.Customer, int64, error)
	Summary(ctx context.Context, id uint) (*models.CustomerSummary, error)
}

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) FindByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByIDWithLoans(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Preload("Loans").
		First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// Update persists administrative fields only; corporation tracking fields
// move exclusively through the transaction engine.
func (r *customerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Model(customer).
		Select("name", "phone", "email", "address", "notes").
		Updates(customer).Error
}

func (r *customerRepository) List(ctx context.Context, query *ListQuery) ([]models.Customer, int64, error) {
	var customers []models.Customer
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Customer{})
	if query.Search != "" {
		q = q.Where("name ILIKE ?", "%"+query.Search+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&customers).Error
	return customers, total, err
}

// Summary aggregates the customer's position across all loans
func (r *customerRepository) Summary(ctx context.Context, id uint) (*models.CustomerSummary, error) {
	var row struct {
		TotalPrincipalOutstanding int64
		TotalInterestDue          int64
		TotalOverdue              int64
		TotalAmountDisbursed      int64
		TotalReceivedInterest     int64
	}

	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Select(`COALESCE(SUM(principal_outstanding), 0) AS total_principal_outstanding,
			COALESCE(SUM(interest_accrued_unpaid), 0) AS total_interest_due,
			COALESCE(SUM(late_fees_accrued), 0) AS total_overdue,
			COALESCE(SUM(amount_disbursed), 0) AS total_amount_disbursed,
			COALESCE(SUM(total_received_interest), 0) AS total_received_interest`).
		Where("taker_id = ?", id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	summary := &models.CustomerSummary{
		TotalPrincipalOutstanding: row.TotalPrincipalOutstanding,
		TotalInterestDue:          row.TotalInterestDue,
		TotalOverdue:              row.TotalOverdue,
		TotalAmountDisbursed:      row.TotalAmountDisbursed,
		TotalReceivedInterest:     row.TotalReceivedInterest,
	}
	if row.TotalAmountDisbursed > 0 {
		summary.ROI = float64(row.TotalReceivedInterest) / float64(row.TotalAmountDisbursed)
	}
	return summary, nil
}
