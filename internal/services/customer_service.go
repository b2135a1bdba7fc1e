package services

import (
	"context"
	"errors"

	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/paisabook/paisabook-api/internal/repository"
	"gorm.io/gorm"
)

// CustomerService manages borrowers and their corporation dealings
type CustomerService struct {
	repo  repository.CustomerRepository
	txSvc *TransactionService
}

// NewCustomerService creates a new customer service
func NewCustomerService(repo repository.CustomerRepository, txSvc *TransactionService) *CustomerService {
	return &CustomerService{repo: repo, txSvc: txSvc}
}

// CustomerInput carries the customer fields a create or update may touch
type CustomerInput struct {
	Name    string  `json:"name" binding:"required"`
	Phone   string  `json:"phone" binding:"required"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// CreateCustomer registers a borrower
func (s *CustomerService) CreateCustomer(ctx context.Context, in *CustomerInput, createdBy uint) (*models.Customer, error) {
	customer := &models.Customer{
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		Notes:     in.Notes,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomer loads one customer
func (s *CustomerService) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return customer, nil
}

// CustomerDetail is the customer with their loans and aggregate position
type CustomerDetail struct {
	Customer models.CustomerResponse `json:"customer"`
	Loans    []models.LoanResponse   `json:"loans"`
	Summary  models.CustomerSummary  `json:"summary"`
}

// GetCustomerDetail loads a customer with loans and the position summary
func (s *CustomerService) GetCustomerDetail(ctx context.Context, id uint) (*CustomerDetail, error) {
	customer, err := s.repo.FindByIDWithLoans(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	summary, err := s.repo.Summary(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &CustomerDetail{
		Customer: customer.ToResponse(),
		Summary:  *summary,
	}
	for i := range customer.Loans {
		detail.Loans = append(detail.Loans, customer.Loans[i].ToResponse())
	}
	return detail, nil
}

// UpdateCustomer updates administrative fields; corporation tracking fields
// only move through the transaction engine.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id uint, in *CustomerInput) (*models.Customer, error) {
	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.Name = in.Name
	customer.Phone = in.Phone
	customer.Email = in.Email
	customer.Address = in.Address
	customer.Notes = in.Notes
	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// ListCustomers returns a filtered, paginated page of customers
func (s *CustomerService) ListCustomers(ctx context.Context, query *repository.ListQuery) ([]models.Customer, int64, error) {
	return s.repo.List(ctx, query)
}

// DistributeCorporation hands a corporation amount to a customer outside a
// loan. The customer owes back totalReceivable; the spread over amount is
// booked as income immediately.
func (s *CustomerService) DistributeCorporation(ctx context.Context, customerID, accountID uint, amount, totalReceivable int64, remarks string, createdBy uint) (*models.Transaction, error) {
	return s.txSvc.Execute(ctx, &ledger.Request{
		Kind:            models.TransactionTypeGive,
		CollectKind:     models.CollectKindCorporation,
		Amount:          amount,
		SourceAccountID: accountID,
		CustomerID:      customerID,
		TotalReceivable: totalReceivable,
		Remarks:         remarks,
		CreatedBy:       createdBy,
	})
}

// CollectCorporation books a corporation repayment against the customer's
// standing receivable.
func (s *CustomerService) CollectCorporation(ctx context.Context, customerID, accountID uint, amount int64, remarks string, createdBy uint) (*models.Transaction, error) {
	return s.txSvc.Execute(ctx, &ledger.Request{
		Kind:            models.TransactionTypeCollect,
		CollectKind:     models.CollectKindCorporation,
		Amount:          amount,
		SourceAccountID: accountID,
		CustomerID:      customerID,
		Remarks:         remarks,
		CreatedBy:       createdBy,
	})
}
