package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paisabook/paisabook-api/internal/jobs"
	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/paisabook/paisabook-api/internal/repository"
	"github.com/paisabook/paisabook-api/internal/statemachine"
	"github.com/paisabook/paisabook-api/pkg/logger"
	"gorm.io/gorm"
)

// LoanService owns the loan lifecycle: creation with its disbursement,
// repayment collection, closing, defaulting and periodic interest accrual.
type LoanService struct {
	repo         repository.LoanRepository
	customerRepo repository.CustomerRepository
	uow          repository.UnitOfWork
	txSvc        *TransactionService
	emailSvc     *EmailService
	worker       *jobs.Worker
}

// NewLoanService creates a new loan service
func NewLoanService(
	repo repository.LoanRepository,
	customerRepo repository.CustomerRepository,
	uow repository.UnitOfWork,
	txSvc *TransactionService,
	emailSvc *EmailService,
	worker *jobs.Worker,
) *LoanService {
	return &LoanService{
		repo:         repo,
		customerRepo: customerRepo,
		uow:          uow,
		txSvc:        txSvc,
		emailSvc:     emailSvc,
		worker:       worker,
	}
}

// CreateLoanInput carries the fields needed to open a loan. Amounts are paise.
type CreateLoanInput struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type" binding:"required"`
	TakerID       uint   `json:"taker_id" binding:"required"`
	DistributorID uint   `json:"distributor_id"`
	FromAccountID uint   `json:"from_account_id" binding:"required"`
	Principal     int64  `json:"principal" binding:"required"`
	Disbursed     int64  `json:"amount_disbursed"`

	InterestRateMonthly *float64 `json:"interest_rate_monthly"`
	InterestCycle       *string  `json:"interest_cycle"`
	RepaymentMode       *string  `json:"repayment_mode"`
	DueDayOfMonth       *int     `json:"due_day_of_month"`

	CorporationPercent *float64 `json:"corporation_percent"`
	TermDays           *int     `json:"term_days"`
	WeeklyPlanAmount   *int64   `json:"weekly_plan_amount"`

	DisbursedAt time.Time `json:"disbursed_at"`
	Remarks     string    `json:"remarks"`
	CreatedBy   uint      `json:"-"`
}

func (in *CreateLoanInput) validate() error {
	if in.Principal <= 0 {
		return fmt.Errorf("%w: principal must be greater than 0", ledger.ErrValidation)
	}
	if in.Disbursed <= 0 {
		in.Disbursed = in.Principal
	}

	switch in.Type {
	case models.LoanTypeInterest:
		if in.InterestRateMonthly == nil || *in.InterestRateMonthly <= 0 {
			return fmt.Errorf("%w: interest loans need a positive monthly rate", ledger.ErrValidation)
		}
		if in.Disbursed != in.Principal {
			return fmt.Errorf("%w: interest loans must disburse the full principal", ledger.ErrValidation)
		}
	case models.LoanTypeCorporation:
		if in.Disbursed > in.Principal {
			return fmt.Errorf("%w: disbursed amount exceeds principal", ledger.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown loan type %q", ledger.ErrValidation, in.Type)
	}
	return nil
}

// CreateLoan opens a loan and books its disbursement in a single unit of
// work. If the disbursement fails its rule checks, no loan row survives.
func (s *LoanService) CreateLoan(ctx context.Context, in *CreateLoanInput) (*models.Loan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.customerRepo.FindByID(ctx, in.TakerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer %d: %w", in.TakerID, ledger.ErrReferenceNotFound)
		}
		return nil, err
	}

	disbursedAt := in.DisbursedAt
	if disbursedAt.IsZero() {
		disbursedAt = time.Now()
	}

	loan := &models.Loan{
		Name:                in.Name,
		Type:                in.Type,
		TakerID:             in.TakerID,
		DistributorID:       in.DistributorID,
		FromAccountID:       in.FromAccountID,
		Status:              models.LoanStatusActive,
		Principal:           in.Principal,
		Disbursed:           in.Disbursed,
		DisbursedAt:         disbursedAt,
		InterestRateMonthly: in.InterestRateMonthly,
		InterestCycle:       in.InterestCycle,
		RepaymentMode:       in.RepaymentMode,
		DueDayOfMonth:       in.DueDayOfMonth,
		CorporationPercent:  in.CorporationPercent,
		TermDays:            in.TermDays,
		WeeklyPlanAmount:    in.WeeklyPlanAmount,
	}
	if due := firstDueDate(loan, disbursedAt); due != nil {
		loan.NextDueDate = due
	}

	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		attemptCtx, cancel := s.txSvc.withTimeout(ctx)
		// CreateLoan seeds the row with zero outstanding; the disbursement
		// transaction moves it to the face value inside the same commit.
		err = s.uow.Do(attemptCtx, func(store repository.TxStore) error {
			loan.ID = 0
			if err := store.CreateLoan(attemptCtx, loan); err != nil {
				return fmt.Errorf("failed to create loan: %w", err)
			}
			_, err := s.txSvc.ExecuteWithin(attemptCtx, store, &ledger.Request{
				Kind:            models.TransactionTypeGive,
				CollectKind:     collectKindForLoan(loan.Type),
				Amount:          loan.Disbursed,
				SourceAccountID: loan.FromAccountID,
				LoanID:          loan.ID,
				CustomerID:      loan.TakerID,
				Remarks:         in.Remarks,
				Date:            disbursedAt,
				CreatedBy:       in.CreatedBy,
			})
			return err
		})
		cancel()
		if err == nil {
			return loan, nil
		}
		if !repository.IsConflict(err) {
			return nil, err
		}
		logger.Warn("loan creation conflict, retrying", "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts: %v", ledger.ErrStoreConflict, maxCommitAttempts, err)
}

func collectKindForLoan(loanType string) string {
	if loanType == models.LoanTypeCorporation {
		return models.CollectKindCorporation
	}
	return ""
}

// firstDueDate computes the first interest due date for interest loans
func firstDueDate(loan *models.Loan, disbursedAt time.Time) *time.Time {
	if loan.Type != models.LoanTypeInterest || loan.InterestCycle == nil {
		return nil
	}
	months := cycleMonths(*loan.InterestCycle)
	if months == 0 {
		return nil
	}
	due := disbursedAt.AddDate(0, months, 0)
	if loan.DueDayOfMonth != nil && *loan.DueDayOfMonth >= 1 && *loan.DueDayOfMonth <= 28 {
		due = time.Date(due.Year(), due.Month(), *loan.DueDayOfMonth, 0, 0, 0, 0, due.Location())
	}
	return &due
}

func cycleMonths(cycle string) int {
	switch cycle {
	case models.InterestCycleMonthly:
		return 1
	case models.InterestCycleQuarterly:
		return 3
	case models.InterestCycleYearly:
		return 12
	default:
		// on_close accrues nothing on a schedule
		return 0
	}
}

// Collect books a repayment against the loan
func (s *LoanService) Collect(ctx context.Context, loanID uint, collectKind string, amount int64, accountID uint, remarks string, createdBy uint) (*models.Transaction, error) {
	return s.txSvc.Execute(ctx, &ledger.Request{
		Kind:            models.TransactionTypeCollect,
		CollectKind:     collectKind,
		Amount:          amount,
		SourceAccountID: accountID,
		LoanID:          loanID,
		Remarks:         remarks,
		CreatedBy:       createdBy,
	})
}

// GetLoan loads one loan with its associations
func (s *LoanService) GetLoan(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return loan, nil
}

// ListLoans returns a filtered, paginated page of loans
func (s *LoanService) ListLoans(ctx context.Context, query *repository.ListQuery) ([]models.Loan, int64, error) {
	return s.repo.List(ctx, query)
}

// CloseLoan transitions a fully repaid loan to closed
func (s *LoanService) CloseLoan(ctx context.Context, id uint) (*models.Loan, error) {
	return s.transition(ctx, id, func(fsm *statemachine.LoanFSM) error {
		return fsm.Close(ctx)
	})
}

// DefaultLoan marks an active loan as defaulted
func (s *LoanService) DefaultLoan(ctx context.Context, id uint) (*models.Loan, error) {
	return s.transition(ctx, id, func(fsm *statemachine.LoanFSM) error {
		return fsm.Default(ctx)
	})
}

// transition locks the loan, runs the lifecycle event and persists the
// resulting status in one unit of work.
func (s *LoanService) transition(ctx context.Context, id uint, event func(*statemachine.LoanFSM) error) (*models.Loan, error) {
	ctx, cancel := s.txSvc.withTimeout(ctx)
	defer cancel()

	var loan *models.Loan
	err := s.uow.Do(ctx, func(store repository.TxStore) error {
		var err error
		loan, err = store.LoanForUpdate(ctx, id)
		if err != nil {
			return err
		}

		fsm := statemachine.NewLoanFSM(loan)
		if err := event(fsm); err != nil {
			return err
		}

		if loan.Status == models.LoanStatusClosed {
			now := time.Now()
			loan.ClosedAt = &now
			loan.NextDueDate = nil
		}
		return store.SaveLoan(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// AccrueInterest advances every interest loan whose due date has passed:
// the cycle's interest is added to the unpaid accrual and the due date moves
// one cycle forward. Accrual is bookkeeping only; income is recognized when
// the interest is actually collected.
func (s *LoanService) AccrueInterest(ctx context.Context, asOf time.Time) (int, error) {
	loans, err := s.repo.FindAccruable(ctx, asOf)
	if err != nil {
		return 0, err
	}

	accrued := 0
	for _, candidate := range loans {
		id := candidate.ID
		loanCtx, cancel := s.txSvc.withTimeout(ctx)
		err := s.uow.Do(loanCtx, func(store repository.TxStore) error {
			loan, err := store.LoanForUpdate(loanCtx, id)
			if err != nil {
				return err
			}
			// Re-check under lock; the loan may have closed since the scan.
			if loan.Status != models.LoanStatusActive || loan.NextDueDate == nil || loan.NextDueDate.After(asOf) {
				return nil
			}

			months := 1
			if loan.InterestCycle != nil {
				if m := cycleMonths(*loan.InterestCycle); m > 0 {
					months = m
				}
			}
			loan.InterestAccruedUnpaid += cycleInterest(loan, months)
			next := loan.NextDueDate.AddDate(0, months, 0)
			loan.NextDueDate = &next
			return store.SaveLoan(loanCtx, loan)
		})
		cancel()
		if err != nil {
			logger.Error("interest accrual failed", "loan_id", id, "error", err)
			continue
		}
		accrued++
	}
	return accrued, nil
}

// cycleInterest computes one cycle of simple interest on the outstanding
// principal, rounded to the nearest paisa.
func cycleInterest(loan *models.Loan, months int) int64 {
	if loan.InterestRateMonthly == nil {
		return 0
	}
	rate := *loan.InterestRateMonthly / 100.0
	return int64(math.Round(float64(loan.PrincipalOutstanding) * rate * float64(months)))
}

// SendOverdueReminders mails the taker of every overdue loan. Mailing is
// fire-and-forget; a failed send never blocks the scan.
func (s *LoanService) SendOverdueReminders(ctx context.Context, asOf time.Time) (int, error) {
	loans, err := s.repo.FindOverdue(ctx, asOf)
	if err != nil {
		return 0, err
	}

	queued := 0
	for i := range loans {
		loan := loans[i]
		if loan.Taker.Email == nil || *loan.Taker.Email == "" {
			continue
		}
		s.worker.EnqueueAsync(func(ctx context.Context) error {
			return s.emailSvc.SendOverdueReminder(ctx, &loan)
		})
		queued++
	}
	return queued, nil
}
