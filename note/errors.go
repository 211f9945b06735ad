package note

import "fmt"

type ErrorCode string

const (
	ErrTooManyAssets       ErrorCode = "NOTE_ERR_TOO_MANY_ASSETS"
	ErrTooManyInputs       ErrorCode = "NOTE_ERR_TOO_MANY_INPUTS"
	ErrInconsistentTagType ErrorCode = "NOTE_ERR_INCONSISTENT_TAG_TYPE"
	ErrDuplicateAsset      ErrorCode = "NOTE_ERR_DUPLICATE_ASSET"
	ErrInputsCommitMismatch ErrorCode = "NOTE_ERR_INPUTS_COMMITMENT_MISMATCH"
	ErrInvalidExecutionHint ErrorCode = "NOTE_ERR_INVALID_EXECUTION_HINT"
	ErrInvalidNetworkTag    ErrorCode = "NOTE_ERR_INVALID_NETWORK_TAG"
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
