package retry

import (
	"errors"
	"fmt"

	"github.com/atlasprotocol/deposit-relayer/internal/ledger"
)

var (
	// ErrInvalidSignature is deliberately opaque: it must not reveal whether
	// the deposit exists.
	ErrInvalidSignature = errors.New("invalid signature")

	ErrDepositNotFound = errors.New("deposit not found")
)

// SenderMismatchError carries both addresses so the caller can see what went wrong.
type SenderMismatchError struct {
	Expected string
	Actual   string
}

func (e *SenderMismatchError) Error() string {
	return fmt.Sprintf("sender mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// NotRetryableError carries the deposit snapshot and both eligibility
// sub-conditions so the caller can tell "no error recorded" from "wrong status".
type NotRetryableError struct {
	Deposit       *ledger.Deposit
	HasError      bool
	InRetryStatus bool
	Reason        string
}

func (e *NotRetryableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("deposit not retryable: %s", e.Reason)
	}
	return fmt.Sprintf("deposit not retryable: has_error=%t, is_in_retry_status=%t", e.HasError, e.InRetryStatus)
}
