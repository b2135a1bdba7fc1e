package services

import (
	"github.com/paisabook/paisabook-api/internal/config"
	"github.com/paisabook/paisabook-api/internal/jobs"
	"github.com/paisabook/paisabook-api/internal/repository"
	"github.com/paisabook/paisabook-api/internal/storage"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Auth        *AuthService
	Account     *AccountService
	Customer    *CustomerService
	Loan        *LoanService
	Transaction *TransactionService
	Report      *ReportService
	Email       *EmailService
	Job         *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config, db *gorm.DB, archive *storage.LocalStorage) *Services {
	uow := repository.NewUnitOfWork(db)
	emailSvc := NewEmailService(cfg)
	txSvc := NewTransactionService(uow, repos.Transaction, cfg.TxTimeout)
	accountSvc := NewAccountService(repos.Account, repos.Transaction, txSvc)

	return &Services{
		Auth:        NewAuthService(repos.User, emailSvc, worker, cfg),
		Account:     accountSvc,
		Customer:    NewCustomerService(repos.Customer, txSvc),
		Loan:        NewLoanService(repos.Loan, repos.Customer, uow, txSvc, emailSvc, worker),
		Transaction: txSvc,
		Report:      NewReportService(accountSvc, repos.Loan, repos.Transaction, archive),
		Email:       emailSvc,
		Job:         NewJobService(worker),
	}
}
