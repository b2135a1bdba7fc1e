package ledger

import "errors"

// Typed failures surfaced by the transaction engine. Business-rule
// violations are detected before any write; a rejected request leaves no
// persisted record.
var (
	// ErrValidation indicates a malformed or incomplete request. The caller
	// fixes the input.
	ErrValidation = errors.New("invalid transaction request")

	// ErrReferenceNotFound indicates a referenced account, loan or customer
	// does not exist.
	ErrReferenceNotFound = errors.New("referenced entity not found")

	// ErrInactiveAccount indicates the operation targets a deactivated
	// account.
	ErrInactiveAccount = errors.New("account is inactive")

	// ErrInsufficientFunds indicates the source account balance does not
	// cover the requested amount.
	ErrInsufficientFunds = errors.New("insufficient account balance")

	// ErrOverpayment indicates a collection exceeds what is owed.
	ErrOverpayment = errors.New("payment exceeds outstanding amount")

	// ErrSameAccount indicates a transfer names the same account on both
	// sides.
	ErrSameAccount = errors.New("source and target accounts must differ")

	// ErrInvalidAmount indicates an amount that violates a rule-specific
	// bound, e.g. a corporation distribution whose total receivable does not
	// exceed the amount given.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrImbalancedEntries indicates the double-entry balance law was
	// violated. Correct rule code never produces this; if it surfaces it is
	// a programming error, not caller input.
	ErrImbalancedEntries = errors.New("entries do not balance")

	// ErrStoreConflict indicates the store-level retry budget was exhausted
	// on serialization conflicts.
	ErrStoreConflict = errors.New("transaction conflict, retries exhausted")
)
