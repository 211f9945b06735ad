package asset

import "fmt"

type ErrorCode string

const (
	ErrOverflow           ErrorCode = "ASSET_ERR_OVERFLOW"
	ErrUnderflow          ErrorCode = "ASSET_ERR_UNDERFLOW"
	ErrNotFound           ErrorCode = "ASSET_ERR_NOT_FOUND"
	ErrDuplicateNonFung   ErrorCode = "ASSET_ERR_DUPLICATE_NON_FUNGIBLE"
	ErrMaxLeafExceeded    ErrorCode = "ASSET_ERR_MAX_LEAF_ENTRIES_EXCEEDED"
	ErrInvalidFaucetID    ErrorCode = "ASSET_ERR_INVALID_FAUCET_ID"
	ErrAmountExceedsMax   ErrorCode = "ASSET_ERR_AMOUNT_EXCEEDS_MAX"
	ErrMismatchedIssuer   ErrorCode = "ASSET_ERR_MISMATCHED_ISSUER"
	ErrInvalidAssetFormat ErrorCode = "ASSET_ERR_INVALID_FORMAT"
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
