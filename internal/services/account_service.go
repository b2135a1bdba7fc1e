package services

import (
	"context"
	"errors"

	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/paisabook/paisabook-api/internal/repository"
	"gorm.io/gorm"
)

// AccountService manages cash/bank accounts. Balance-moving operations
// delegate to the transaction engine; this service never writes balances
// directly.
type AccountService struct {
	repo   repository.AccountRepository
	txRepo repository.TransactionRepository
	txSvc  *TransactionService
}

// NewAccountService creates a new account service
func NewAccountService(repo repository.AccountRepository, txRepo repository.TransactionRepository, txSvc *TransactionService) *AccountService {
	return &AccountService{repo: repo, txRepo: txRepo, txSvc: txSvc}
}

// CreateAccountInput carries the fields needed to open an account
type CreateAccountInput struct {
	Name           string `json:"name" binding:"required"`
	Type           string `json:"type" binding:"required"`
	OpeningBalance int64  `json:"opening_balance"`
}

// CreateAccount opens a cash or bank account
func (s *AccountService) CreateAccount(ctx context.Context, in *CreateAccountInput) (*models.Account, error) {
	if in.Type != models.AccountTypeCash && in.Type != models.AccountTypeBank {
		return nil, errors.New("account type must be cash or bank")
	}
	if in.OpeningBalance < 0 {
		return nil, errors.New("opening balance cannot be negative")
	}

	account := &models.Account{
		Name:           in.Name,
		Type:           in.Type,
		OpeningBalance: in.OpeningBalance,
		Active:         true,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount loads one account
func (s *AccountService) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts returns all accounts
func (s *AccountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.repo.FindAll(ctx)
}

// UpdateAccountInput carries the administrative fields an update may touch
type UpdateAccountInput struct {
	Name string `json:"name" binding:"required"`
}

// UpdateAccount renames an account. Balances are not updatable.
func (s *AccountService) UpdateAccount(ctx context.Context, id uint, in *UpdateAccountInput) (*models.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Name = in.Name
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// SetActive activates or deactivates an account. Inactive accounts refuse
// new transactions but keep their history.
func (s *AccountService) SetActive(ctx context.Context, id uint, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// BalanceAudit compares an account's cached balance with the balance
// recomputed from its ledger entries.
type BalanceAudit struct {
	AccountID       uint  `json:"account_id"`
	CachedBalance   int64 `json:"cached_balance"`
	ComputedBalance int64 `json:"computed_balance"`
	Consistent      bool  `json:"consistent"`
}

// AuditBalance recomputes the account balance from the entry history:
// opening balance plus debits minus credits. A mismatch means a cache bug
// or out-of-band data change.
func (s *AccountService) AuditBalance(ctx context.Context, id uint) (*BalanceAudit, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	sums, err := s.txRepo.EntrySumsForAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	computed := account.OpeningBalance + sums.TotalDebit - sums.TotalCredit
	return &BalanceAudit{
		AccountID:       id,
		CachedBalance:   account.CurrentBalance,
		ComputedBalance: computed,
		Consistent:      computed == account.CurrentBalance,
	}, nil
}

// Transfer moves money between two accounts
func (s *AccountService) Transfer(ctx context.Context, sourceID, targetID uint, amount int64, remarks string, createdBy uint) (*models.Transaction, error) {
	return s.txSvc.Execute(ctx, &ledger.Request{
		Kind:            models.TransactionTypeTransfer,
		Amount:          amount,
		SourceAccountID: sourceID,
		TargetAccountID: targetID,
		Remarks:         remarks,
		CreatedBy:       createdBy,
	})
}

// Deposit books owner capital into an account
func (s *AccountService) Deposit(ctx context.Context, accountID uint, amount int64, remarks string, createdBy uint) (*models.Transaction, error) {
	return s.txSvc.Execute(ctx, &ledger.Request{
		Kind:            models.TransactionTypeDeposit,
		Amount:          amount,
		SourceAccountID: accountID,
		Remarks:         remarks,
		CreatedBy:       createdBy,
	})
}

// Withdraw books a personal or operational expense out of an account
func (s *AccountService) Withdraw(ctx context.Context, accountID uint, amount int64, purpose, remarks string, createdBy uint) (*models.Transaction, error) {
	return s.txSvc.Execute(ctx, &ledger.Request{
		Kind:            models.TransactionTypeWithdrawal,
		Amount:          amount,
		SourceAccountID: accountID,
		Purpose:         purpose,
		Remarks:         remarks,
		CreatedBy:       createdBy,
	})
}

// StatementLine is one row of an account statement with a running balance
type StatementLine struct {
	Entry   models.TransactionEntry `json:"entry"`
	Balance int64                   `json:"balance"`
}

// Statement returns the account's full entry history with a running balance
// starting from the opening balance.
func (s *AccountService) Statement(ctx context.Context, id uint) (*models.Account, []StatementLine, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.txRepo.EntriesForAccount(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	lines := make([]StatementLine, 0, len(entries))
	balance := account.OpeningBalance
	for _, e := range entries {
		balance += e.Signed()
		lines = append(lines, StatementLine{Entry: e, Balance: balance})
	}
	return account, lines, nil
}
