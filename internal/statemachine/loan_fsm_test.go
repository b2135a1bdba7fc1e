package statemachine

import (
	"context"
	"testing"

	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanFSMClose(t *testing.T) {
	ctx := context.Background()

	t.Run("closes a settled active loan", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusActive, PrincipalOutstanding: 0}
		lfsm := NewLoanFSM(loan)

		require.NoError(t, lfsm.Close(ctx))
		assert.Equal(t, models.LoanStatusClosed, loan.Status)
		assert.Equal(t, models.LoanStatusClosed, lfsm.Current())
	})

	t.Run("refuses with outstanding principal", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusActive, PrincipalOutstanding: 500}
		lfsm := NewLoanFSM(loan)

		err := lfsm.Close(ctx)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Contains(t, err.Error(), "outstanding principal")
		assert.Equal(t, models.LoanStatusActive, loan.Status)
	})

	t.Run("refuses from terminal states", func(t *testing.T) {
		for _, status := range []string{models.LoanStatusClosed, models.LoanStatusDefaulted, models.LoanStatusWrittenOff} {
			loan := &models.Loan{Status: status}
			err := NewLoanFSM(loan).Close(ctx)
			assert.ErrorIs(t, err, ErrInvalidStateTransition, status)
		}
	})
}

func TestLoanFSMDefault(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults an active loan even with outstanding principal", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusActive, PrincipalOutstanding: 90000}
		lfsm := NewLoanFSM(loan)

		require.NoError(t, lfsm.Default(ctx))
		assert.Equal(t, models.LoanStatusDefaulted, loan.Status)
	})

	t.Run("refuses from terminal states", func(t *testing.T) {
		for _, status := range []string{models.LoanStatusClosed, models.LoanStatusDefaulted, models.LoanStatusWrittenOff} {
			loan := &models.Loan{Status: status}
			err := NewLoanFSM(loan).Default(ctx)
			assert.ErrorIs(t, err, ErrInvalidStateTransition, status)
		}
	})
}

func TestLoanFSMCan(t *testing.T) {
	active := NewLoanFSM(&models.Loan{Status: models.LoanStatusActive})
	assert.True(t, active.Can("close"))
	assert.True(t, active.Can("default"))

	closed := NewLoanFSM(&models.Loan{Status: models.LoanStatusClosed})
	assert.False(t, closed.Can("close"))
	assert.False(t, closed.Can("default"))

	// written_off has no inbound or outbound events
	writtenOff := NewLoanFSM(&models.Loan{Status: models.LoanStatusWrittenOff})
	assert.False(t, writtenOff.Can("close"))
}
