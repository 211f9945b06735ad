package txoutput

import "fmt"

type ErrorCode string

const (
	ErrStackLayoutMismatch     ErrorCode = "TXOUTPUT_ERR_STACK_LAYOUT_MISMATCH"
	ErrOutputNotesCommitment   ErrorCode = "TXOUTPUT_ERR_OUTPUT_NOTES_COMMITMENT_MISMATCH"
	ErrDeltaCommitmentMismatch ErrorCode = "TXOUTPUT_ERR_DELTA_COMMITMENT_MISMATCH"
	ErrAccountUpdateMismatch   ErrorCode = "TXOUTPUT_ERR_ACCOUNT_UPDATE_COMMITMENT_MISMATCH"
	ErrAccountIdChanged        ErrorCode = "TXOUTPUT_ERR_ACCOUNT_ID_CHANGED"
	ErrNonceDeltaMismatch      ErrorCode = "TXOUTPUT_ERR_NONCE_DELTA_MISMATCH"
	ErrFeeAssetMismatch        ErrorCode = "TXOUTPUT_ERR_FEE_ASSET_MISMATCH"
	ErrFeeAmountMismatch       ErrorCode = "TXOUTPUT_ERR_FEE_AMOUNT_MISMATCH"
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
