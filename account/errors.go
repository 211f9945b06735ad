package account

import "fmt"

type ErrorCode string

const (
	ErrInvalidSuffix          ErrorCode = "ACCOUNT_ERR_INVALID_SUFFIX"
	ErrInvalidVersion         ErrorCode = "ACCOUNT_ERR_INVALID_VERSION"
	ErrInvalidStorageMode     ErrorCode = "ACCOUNT_ERR_INVALID_STORAGE_MODE"
	ErrSeedGrindInsufficient  ErrorCode = "ACCOUNT_ERR_SEED_GRIND_INSUFFICIENT"
	ErrSeedNonceMismatch      ErrorCode = "ACCOUNT_ERR_SEED_NONCE_MISMATCH"
	ErrSeedIdMismatch         ErrorCode = "ACCOUNT_ERR_SEED_ID_MISMATCH"
	ErrNonceOverflow          ErrorCode = "ACCOUNT_ERR_NONCE_OVERFLOW"
	ErrNonceNotIncreasing     ErrorCode = "ACCOUNT_ERR_NONCE_NOT_INCREASING"
	ErrNoAuthProcedure        ErrorCode = "ACCOUNT_ERR_NO_AUTH_PROCEDURE"
	ErrMultipleAuthProcedures ErrorCode = "ACCOUNT_ERR_MULTIPLE_AUTH_PROCEDURES"
	ErrUnexpectedAuthProc     ErrorCode = "ACCOUNT_ERR_UNEXPECTED_AUTH_PROCEDURE"
	ErrProcedureCountOOB      ErrorCode = "ACCOUNT_ERR_PROCEDURE_COUNT_OUT_OF_BOUNDS"
	ErrDuplicateMastRoot      ErrorCode = "ACCOUNT_ERR_DUPLICATE_MAST_ROOT"
	ErrSlotCountOOB           ErrorCode = "ACCOUNT_ERR_SLOT_COUNT_OUT_OF_BOUNDS"
	ErrComponentTypeMismatch  ErrorCode = "ACCOUNT_ERR_COMPONENT_TYPE_MISMATCH"
	ErrStorageOutOfBounds     ErrorCode = "ACCOUNT_ERR_STORAGE_OUT_OF_BOUNDS"
	ErrFaucetReservedSlot     ErrorCode = "ACCOUNT_ERR_FAUCET_RESERVED_SLOT"
	ErrUnknownProcedure       ErrorCode = "ACCOUNT_ERR_UNKNOWN_PROCEDURE"
	ErrVaultOverflow          ErrorCode = "ACCOUNT_ERR_VAULT_OVERFLOW"
	ErrVaultUnderflow         ErrorCode = "ACCOUNT_ERR_VAULT_UNDERFLOW"
	ErrVaultDuplicateAsset    ErrorCode = "ACCOUNT_ERR_VAULT_DUPLICATE_ASSET"
	ErrVaultAssetNotFound     ErrorCode = "ACCOUNT_ERR_VAULT_ASSET_NOT_FOUND"
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
