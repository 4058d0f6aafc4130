package service

import (
	"errors"
	"fmt"
)

// 领域错误：直接返回给调用方用于提示，不自动重试
var (
	ErrConfirmTextMismatch       = errors.New("bugie: confirmation text does not match")
	ErrHasOwnedLedgers           = errors.New("bugie: account still owns active ledgers")
	ErrUnauthorized              = errors.New("bugie: unauthorized")
	ErrInsufficientRole          = errors.New("bugie: insufficient role")
	ErrAlreadyMember             = fmt.Errorf("%w: target already has an active membership", ErrInsufficientRole)
	ErrCannotDemoteOwner         = errors.New("bugie: cannot demote the ledger owner")
	ErrCannotRemoveSoleOwner     = errors.New("bugie: cannot remove the ledger owner")
	ErrCannotLeaveAsSoleOwner    = errors.New("bugie: owner cannot leave the ledger")
	ErrAccountPermanentlyDeleted = errors.New("bugie: account permanently deleted")
	ErrAccountNotActive          = errors.New("bugie: account is not active")
	ErrNotFound                  = errors.New("bugie: not found")
	ErrInvalidInput              = errors.New("bugie: invalid input")
)

// ErrInfrastructure 存储或外部服务故障，调用方可退避重试
var ErrInfrastructure = errors.New("bugie: infrastructure failure")

var domainErrors = []error{
	ErrConfirmTextMismatch,
	ErrHasOwnedLedgers,
	ErrUnauthorized,
	ErrInsufficientRole,
	ErrCannotDemoteOwner,
	ErrCannotRemoveSoleOwner,
	ErrCannotLeaveAsSoleOwner,
	ErrAccountPermanentlyDeleted,
	ErrAccountNotActive,
	ErrNotFound,
	ErrInvalidInput,
}

// HasOwnedLedgersError 注销被拥有的账本阻止，携带账本数量
type HasOwnedLedgersError struct {
	Count int64
}

func (e *HasOwnedLedgersError) Error() string {
	return fmt.Sprintf("%s (%d)", ErrHasOwnedLedgers.Error(), e.Count)
}

func (e *HasOwnedLedgersError) Is(target error) bool {
	return target == ErrHasOwnedLedgers
}

// InfrastructureError 包装底层存储错误
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrInfrastructure.Error(), e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func (e *InfrastructureError) Is(target error) bool {
	return target == ErrInfrastructure
}

func infraError(op string, err error) error {
	var infra *InfrastructureError
	if errors.As(err, &infra) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// IsDomainError 是否为业务规则错误
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable 是否可由调用方重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}
