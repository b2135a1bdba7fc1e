package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/paisabook/paisabook-api/internal/models"
)

// ErrInvalidStateTransition is returned when a lifecycle event is not
// permitted from the loan's current state
var ErrInvalidStateTransition = errors.New("invalid state transition")

// LoanFSM wraps a loan with its state machine. Closed and defaulted are
// terminal; written_off is a legal stored state but has no inbound event
// here, it is reserved for manual correction.
type LoanFSM struct {
	loan *models.Loan
	fsm  *fsm.FSM
}

// NewLoanFSM creates a new loan state machine
func NewLoanFSM(loan *models.Loan) *LoanFSM {
	lfsm := &LoanFSM{
		loan: loan,
	}

	lfsm.fsm = fsm.NewFSM(
		loan.Status,
		fsm.Events{
			// active → closed (requires zero principal outstanding)
			{Name: "close", Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusClosed},

			// active → defaulted
			{Name: "default", Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusDefaulted},
		},
		fsm.Callbacks{},
	)

	return lfsm
}

// Close transitions loan to closed state
func (l *LoanFSM) Close(ctx context.Context) error {
	if !l.loan.MayClose() {
		if l.loan.Status == models.LoanStatusActive {
			return fmt.Errorf("loan cannot be closed with outstanding principal: %w", ErrInvalidStateTransition)
		}
		return fmt.Errorf("loan cannot be closed in current state %s: %w", l.loan.Status, ErrInvalidStateTransition)
	}

	if err := l.fsm.Event(ctx, "close"); err != nil {
		return fmt.Errorf("failed to close loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Default transitions loan to defaulted state
func (l *LoanFSM) Default(ctx context.Context) error {
	if !l.loan.MayDefault() {
		return fmt.Errorf("loan cannot be defaulted in current state %s: %w", l.loan.Status, ErrInvalidStateTransition)
	}

	if err := l.fsm.Event(ctx, "default"); err != nil {
		return fmt.Errorf("failed to default loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Current returns the current state
func (l *LoanFSM) Current() string {
	return l.fsm.Current()
}

// Can checks if a transition is possible
func (l *LoanFSM) Can(event string) bool {
	return l.fsm.Can(event)
}
