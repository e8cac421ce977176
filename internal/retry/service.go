package retry

import (
	"context"
	"fmt"

	"github.com/atlasprotocol/deposit-relayer/internal/ledger"
	"github.com/atlasprotocol/deposit-relayer/internal/params"
	"github.com/atlasprotocol/deposit-relayer/internal/state"
	log "github.com/sirupsen/logrus"
)

// Request is an externally submitted retry for a stalled deposit. The signed
// payload is the btc txn hash itself, which binds the signature to exactly one
// deposit.
type Request struct {
	BtcTxnHash string `json:"btc_txn_hash" binding:"required"`
	Address    string `json:"address" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

type Service struct {
	client   ledger.Client
	verifier SignatureVerifier
	params   *params.GlobalParamsCache
}

func NewService(client ledger.Client, verifier SignatureVerifier, paramsCache *params.GlobalParamsCache) *Service {
	return &Service{
		client:   client,
		verifier: verifier,
		params:   paramsCache,
	}
}

// Retry validates the request end-to-end and rolls the deposit back to its
// pre-error status. On success the single mutated deposit is re-fetched and
// returned; every failure leaves the deposit untouched.
func (s *Service) Retry(ctx context.Context, req Request) (*ledger.Deposit, error) {
	// signature first, before revealing whether the deposit exists
	if err := s.verifier.Verify(req.Address, req.BtcTxnHash, req.Signature); err != nil {
		log.Warnf("Retry signature verification failed for address %s: %v", req.Address, err)
		return nil, ErrInvalidSignature
	}

	deposit, err := s.client.GetDepositByBtcTxnHash(ctx, req.BtcTxnHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit %s: %w", req.BtcTxnHash, err)
	}
	if deposit == nil {
		return nil, ErrDepositNotFound
	}

	if deposit.BtcSenderAddress != req.Address {
		return nil, &SenderMismatchError{Expected: deposit.BtcSenderAddress, Actual: req.Address}
	}

	hasError, inRetryStatus := state.RetryEligible(deposit)
	if !hasError || !inRetryStatus {
		return nil, &NotRetryableError{Deposit: deposit, HasError: hasError, InRetryStatus: inRetryStatus}
	}

	if maxRetry := s.params.Current().MaxRetryCount; deposit.RetryCount >= maxRetry {
		return nil, &NotRetryableError{
			Deposit:       deposit,
			HasError:      hasError,
			InRetryStatus: inRetryStatus,
			Reason:        fmt.Sprintf("retry count %d reached max %d", deposit.RetryCount, maxRetry),
		}
	}

	// the contract re-checks eligibility before mutating, a losing concurrent
	// caller fails here instead of clobbering state
	if err := s.client.RollbackDepositStatusByBtcTxnHash(ctx, req.BtcTxnHash); err != nil {
		return nil, fmt.Errorf("failed to rollback deposit %s: %w", req.BtcTxnHash, err)
	}

	updated, err := s.client.GetDepositByBtcTxnHash(ctx, req.BtcTxnHash)
	if err != nil {
		return nil, fmt.Errorf("failed to re-fetch deposit %s after rollback: %w", req.BtcTxnHash, err)
	}
	if updated == nil {
		return nil, ErrDepositNotFound
	}

	log.Infof("Deposit %s rolled back to %s for retry", req.BtcTxnHash, updated.Status)
	return updated, nil
}
