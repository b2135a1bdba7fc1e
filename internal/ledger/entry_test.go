package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tag, err := ParseTag("cash_bank")
	require.NoError(t, err)
	assert.Equal(t, TagCashBank, tag)

	_, err = ParseTag("goodwill")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseTag("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateEntries(t *testing.T) {
	acct := uint(1)

	tests := []struct {
		name    string
		entries []EntryDraft
		wantErr error
	}{
		{
			name: "balanced pair",
			entries: []EntryDraft{
				{Ledger: TagCashBank, AccountID: &acct, Debit: 10000},
				{Ledger: TagEquityCapital, Credit: 10000},
			},
		},
		{
			name: "balanced three-way split",
			entries: []EntryDraft{
				{Ledger: TagReceivableCorporation, Debit: 13000},
				{Ledger: TagCashBank, AccountID: &acct, Credit: 10000},
				{Ledger: TagIncomeCorporation, Credit: 3000},
			},
		},
		{
			name: "single entry",
			entries: []EntryDraft{
				{Ledger: TagCashBank, AccountID: &acct, Debit: 500},
			},
			wantErr: ErrValidation,
		},
		{
			name:    "empty",
			entries: nil,
			wantErr: ErrValidation,
		},
		{
			name: "imbalanced by one paisa",
			entries: []EntryDraft{
				{Ledger: TagCashBank, AccountID: &acct, Debit: 10000},
				{Ledger: TagEquityCapital, Credit: 9999},
			},
			wantErr: ErrImbalancedEntries,
		},
		{
			name: "negative side",
			entries: []EntryDraft{
				{Ledger: TagCashBank, AccountID: &acct, Debit: -100},
				{Ledger: TagEquityCapital, Credit: -100},
			},
			wantErr: ErrValidation,
		},
		{
			name: "both sides non-zero",
			entries: []EntryDraft{
				{Ledger: TagCashBank, AccountID: &acct, Debit: 100, Credit: 100},
				{Ledger: TagEquityCapital, Debit: 100, Credit: 100},
			},
			wantErr: ErrValidation,
		},
		{
			name: "unknown tag",
			entries: []EntryDraft{
				{Ledger: Tag("slush_fund"), Debit: 100},
				{Ledger: TagEquityCapital, Credit: 100},
			},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntries(tt.entries)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEntryDraftToModel(t *testing.T) {
	loanID := uint(7)
	draft := EntryDraft{Ledger: TagLoanPrincipal, LoanID: &loanID, Debit: 250000}

	entry := draft.ToModel(3)

	assert.Equal(t, 3, entry.Position)
	assert.Equal(t, "loan_principal", entry.Ledger)
	require.NotNil(t, entry.LoanID)
	assert.Equal(t, loanID, *entry.LoanID)
	assert.EqualValues(t, 250000, entry.Debit)
	assert.EqualValues(t, 0, entry.Credit)
}
