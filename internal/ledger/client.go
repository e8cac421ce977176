package ledger

import (
	"context"
)

// Client is the read/write facade over the ledger-chain contract. The rollback
// call is conditional on the contract side: it fails when the deposit is not in
// a retry-eligible state, which is what makes concurrent retries safe.
type Client interface {
	GetDepositByBtcTxnHash(ctx context.Context, btcTxnHash string) (*Deposit, error)
	ListDeposits(ctx context.Context, filter DepositFilter) ([]*Deposit, error)
	InsertDepositBtc(ctx context.Context, deposit *Deposit) error
	UpdateDepositStatus(ctx context.Context, btcTxnHash, status string) error
	UpdateDepositRemarks(ctx context.Context, btcTxnHash, remarks string) error
	RollbackDepositStatusByBtcTxnHash(ctx context.Context, btcTxnHash string) error
	GetAllGlobalParams(ctx context.Context) (*GlobalParamsRecord, error)
	GetBitHiveSummary(ctx context.Context) (*BitHiveSummary, error)
}
