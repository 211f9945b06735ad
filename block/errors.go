package block

import "fmt"

type ErrorCode string

const (
	ErrEmptyBlock              ErrorCode = "BLOCK_ERR_EMPTY_BLOCK"
	ErrTooManyBatches          ErrorCode = "BLOCK_ERR_TOO_MANY_BATCHES"
	ErrTimestampNotIncreasing  ErrorCode = "BLOCK_ERR_TIMESTAMP_NOT_INCREASING"
	ErrDuplicateNullifier      ErrorCode = "BLOCK_ERR_DUPLICATE_NULLIFIER"
	ErrDuplicateOutputNote     ErrorCode = "BLOCK_ERR_DUPLICATE_OUTPUT_NOTE"
	ErrAccountChainMismatch    ErrorCode = "BLOCK_ERR_ACCOUNT_CHAIN_MISMATCH"
	ErrAccountIdPrefixDup      ErrorCode = "BLOCK_ERR_ACCOUNT_ID_PREFIX_DUPLICATE"
	ErrMissingAccountWitness   ErrorCode = "BLOCK_ERR_MISSING_ACCOUNT_WITNESS"
	ErrStaleAccountWitness     ErrorCode = "BLOCK_ERR_STALE_ACCOUNT_WITNESS"
	ErrMissingNullifierWitness ErrorCode = "BLOCK_ERR_MISSING_NULLIFIER_WITNESS"
	ErrStaleNullifierWitness   ErrorCode = "BLOCK_ERR_STALE_NULLIFIER_WITNESS"
	ErrNullifierAlreadySpent   ErrorCode = "BLOCK_ERR_NULLIFIER_ALREADY_SPENT"
	ErrUnresolvedNote          ErrorCode = "BLOCK_ERR_UNRESOLVED_NOTE"
)

type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}
