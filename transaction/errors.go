package transaction

import "fmt"

type ErrorCode string

const (
	ErrConflictingAdviceEntry ErrorCode = "TX_ERR_CONFLICTING_ADVICE_MAP_ENTRY"
)

// Error is the kernel's typed transaction-input error.
type Error struct {
	Code ErrorCode
	Msg  string
	Key  [32]byte // advice-map key in conflict, zero otherwise
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
