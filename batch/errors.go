package batch

import "fmt"

type ErrorCode string

const (
	ErrEmptyBatch              ErrorCode = "BATCH_ERR_EMPTY_BATCH"
	ErrTooManyTransactions     ErrorCode = "BATCH_ERR_TOO_MANY_TRANSACTIONS"
	ErrTooManyInputNotes       ErrorCode = "BATCH_ERR_TOO_MANY_INPUT_NOTES"
	ErrTooManyOutputNotes      ErrorCode = "BATCH_ERR_TOO_MANY_OUTPUT_NOTES"
	ErrTooManyAccounts         ErrorCode = "BATCH_ERR_TOO_MANY_ACCOUNTS"
	ErrDuplicateTransaction    ErrorCode = "BATCH_ERR_DUPLICATE_TRANSACTION"
	ErrDuplicateNullifier      ErrorCode = "BATCH_ERR_DUPLICATE_NULLIFIER"
	ErrDuplicateOutputNote     ErrorCode = "BATCH_ERR_DUPLICATE_OUTPUT_NOTE"
	ErrExpiredTransaction      ErrorCode = "BATCH_ERR_EXPIRED_TRANSACTION"
	ErrAccountChainMismatch    ErrorCode = "BATCH_ERR_ACCOUNT_CHAIN_MISMATCH"
	ErrInputNoteWitnessInvalid ErrorCode = "BATCH_ERR_INPUT_NOTE_WITNESS_INVALID"
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
