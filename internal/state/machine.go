package state

import (
	"github.com/atlasprotocol/deposit-relayer/internal/ledger"
)

// forwardEdges is the full set of legal forward transitions for a deposit.
// Rollback is handled separately and is the only backward edge.
var forwardEdges = map[string][]string{
	ledger.DEPOSIT_STATUS_PENDING_MEMPOOL:          {ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS},
	ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS:     {ledger.DEPOSIT_STATUS_PENDING_YIELD_PROVIDER},
	ledger.DEPOSIT_STATUS_PENDING_YIELD_PROVIDER:   {ledger.DEPOSIT_STATUS_YIELD_PROVIDER_DEPOSITED},
	ledger.DEPOSIT_STATUS_YIELD_PROVIDER_DEPOSITED: {},
}

// retryStatuses are the only statuses a recorded error can be rolled back from.
var retryStatuses = map[string]bool{
	ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS:   true,
	ledger.DEPOSIT_STATUS_PENDING_YIELD_PROVIDER: true,
}

// CanTransition reports whether a deposit may move from one status to another.
// Unknown statuses never transition.
func CanTransition(from, to string) bool {
	targets, ok := forwardEdges[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status is a fully-confirmed success state.
// A deposit never leaves a terminal status.
func IsTerminal(status string) bool {
	return status == ledger.DEPOSIT_STATUS_YIELD_PROVIDER_DEPOSITED
}

// RetryEligible evaluates the two retry sub-conditions for a deposit. Both must
// hold for a rollback: an error must be recorded and the status must be one the
// scanner can re-attempt from.
func RetryEligible(d *ledger.Deposit) (hasError bool, inRetryStatus bool) {
	hasError = d.Remarks != ""
	inRetryStatus = retryStatuses[d.Status]
	return hasError, inRetryStatus
}

// RollbackTarget returns the status a retry-eligible deposit rolls back to. A
// stall after minting re-attempts the yield-provider step from
// BTC_DEPOSITED_INTO_ATLAS; a stall in BTC_DEPOSITED_INTO_ATLAS itself only
// clears the error and stays put.
func RollbackTarget(status string) (string, bool) {
	switch status {
	case ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS:
		return ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS, true
	case ledger.DEPOSIT_STATUS_PENDING_YIELD_PROVIDER:
		return ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS, true
	default:
		return "", false
	}
}
