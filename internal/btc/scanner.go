package btc

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"

	"github.com/atlasprotocol/deposit-relayer/internal/db"
	"github.com/atlasprotocol/deposit-relayer/internal/ledger"
	"github.com/atlasprotocol/deposit-relayer/internal/params"
	"github.com/atlasprotocol/deposit-relayer/internal/state"
)

// maxBlocksPerScan bounds one height-scan iteration so a long catch-up cannot
// starve the confirmation sweep.
const maxBlocksPerScan = 100

// Bitcoin block timestamps are not monotonic across heights, a later block may
// carry a timestamp up to two hours earlier. The confirmed-time cursor trails
// the newest settled deposit by this margin so such deposits are never skipped.
const blockTimeSkewMs = int64(2 * time.Hour / time.Millisecond)

// ChainClient is the subset of the btcd rpc client the scanner uses.
type ChainClient interface {
	GetBlockCount() (int64, error)
	GetBlockHash(height int64) (*chainhash.Hash, error)
	GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error)
	GetRawTransactionVerbose(hash *chainhash.Hash) (*btcjson.TxRawResult, error)
}

type ScannerOptions struct {
	NetParams            *chaincfg.Params
	VaultAddress         string
	StartHeight          int64
	Confirmations        int64
	Interval             time.Duration
	ConfirmedTimeDefault int64
}

// DepositScanner advances the Bitcoin read cursor, discovers vault deposits,
// and drives their status on the ledger contract. It owns both scan cursors;
// nothing else writes them.
type DepositScanner struct {
	chain   ChainClient
	client  ledger.Client
	cursors db.CursorStore
	params  *params.GlobalParamsCache
	opts    ScannerOptions

	vaultScript      []byte
	heightKey        string
	confirmedTimeKey string
}

func NewDepositScanner(chain ChainClient, client ledger.Client, cursors db.CursorStore, paramsCache *params.GlobalParamsCache, opts ScannerOptions) (*DepositScanner, error) {
	addr, err := btcutil.DecodeAddress(opts.VaultAddress, opts.NetParams)
	if err != nil {
		return nil, fmt.Errorf("invalid vault address %q: %w", opts.VaultAddress, err)
	}
	vaultScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to build vault script: %w", err)
	}

	return &DepositScanner{
		chain:            chain,
		client:           client,
		cursors:          cursors,
		params:           paramsCache,
		opts:             opts,
		vaultScript:      vaultScript,
		heightKey:        db.StreamKey("BITCOIN", opts.NetParams.Name, db.CURSOR_KIND_SCANNED_HEIGHT),
		confirmedTimeKey: db.StreamKey("BITCOIN", opts.NetParams.Name, db.CURSOR_KIND_CONFIRMED_TIME),
	}, nil
}

// Run polls on a fixed interval until the context ends. A failed iteration is
// logged and redone on the next tick, never retried inline.
func (s *DepositScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping deposit scanner...")
			return
		case <-ticker.C:
			if err := s.ScanNewDeposits(ctx); err != nil {
				log.Errorf("Deposit height scan failed, will redo next tick: %v", err)
			}
			if err := s.SweepConfirmations(ctx); err != nil {
				log.Errorf("Confirmation sweep failed, will redo next tick: %v", err)
			}
		}
	}
}

// ScanNewDeposits walks blocks from the persisted height cursor to the node
// tip, inserting newly observed deposits at BTC_PENDING_DEPOSIT_MEMPOOL. The
// cursor only advances past a height after every deposit in it is applied;
// re-scanning an applied range is a no-op because the apply is keyed by txn hash.
func (s *DepositScanner) ScanNewDeposits(ctx context.Context) error {
	best, err := s.chain.GetBlockCount()
	if err != nil {
		return fmt.Errorf("failed to get block count: %w", err)
	}

	last, err := s.cursors.GetCursor(s.heightKey)
	if err != nil {
		return fmt.Errorf("failed to read height cursor: %w", err)
	}
	start := last + 1
	if start < s.opts.StartHeight {
		start = s.opts.StartHeight
	}
	if start > best {
		return nil
	}
	end := best
	if end-start+1 > maxBlocksPerScan {
		end = start + maxBlocksPerScan - 1
	}
	log.Infof("Btc deposit scan fired, from %d to %d, tip %d", start, end, best)

	for height := start; height <= end; height++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		blockHash, err := s.chain.GetBlockHash(height)
		if err != nil {
			return fmt.Errorf("failed to get block hash at %d: %w", height, err)
		}
		block, err := s.chain.GetBlock(blockHash)
		if err != nil {
			return fmt.Errorf("failed to get block at %d: %w", height, err)
		}

		for _, depositTx := range ExtractDeposits(block, s.vaultScript) {
			if err := s.applyDeposit(ctx, depositTx); err != nil {
				return fmt.Errorf("failed to apply deposit %s at height %d: %w", depositTx.TxnHash, height, err)
			}
		}

		// durable cursor write before the in-memory loop moves on, a failed
		// write aborts the iteration so the block is redone next tick
		if err := s.cursors.SetCursor(s.heightKey, height); err != nil {
			return err
		}
	}
	return nil
}

func (s *DepositScanner) applyDeposit(ctx context.Context, depositTx *DepositTx) error {
	existing, err := s.client.GetDepositByBtcTxnHash(ctx, depositTx.TxnHash)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Debugf("Deposit %s already recorded with status %s", depositTx.TxnHash, existing.Status)
		return nil
	}

	globals := s.params.Current()
	if globals.MinStakingAmountSat > 0 && depositTx.AmountSat < globals.MinStakingAmountSat {
		log.Warnf("Deposit %s amount %d below min staking amount %d, skipping",
			depositTx.TxnHash, depositTx.AmountSat, globals.MinStakingAmountSat)
		return nil
	}

	sender, err := s.resolveSender(depositTx)
	if err != nil {
		return err
	}

	deposit := &ledger.Deposit{
		BtcTxnHash:       depositTx.TxnHash,
		BtcSenderAddress: sender,
		ReceivingChainID: depositTx.ReceivingChainID,
		ReceivingAddress: depositTx.ReceivingAddress,
		AmountSat:        depositTx.AmountSat,
		Status:           ledger.DEPOSIT_STATUS_PENDING_MEMPOOL,
		ProtocolFeeSat:   int64(float64(depositTx.AmountSat) * globals.DepositFeeRate),
		BridgingFeeSat:   int64(float64(depositTx.AmountSat) * globals.BridgingFeeRate),
		DateCreated:      depositTx.BlockTimeMs,
	}
	if err := s.client.InsertDepositBtc(ctx, deposit); err != nil {
		return err
	}
	log.Infof("New deposit %s recorded, %d sat from %s to chain %s",
		deposit.BtcTxnHash, deposit.AmountSat, sender, deposit.ReceivingChainID)
	return nil
}

// resolveSender reads the first input's previous output to find who funded the
// deposit.
func (s *DepositScanner) resolveSender(depositTx *DepositTx) (string, error) {
	prevHash, err := chainhash.NewHashFromStr(depositTx.PrevTxnHash)
	if err != nil {
		return "", fmt.Errorf("invalid prev txn hash %s: %w", depositTx.PrevTxnHash, err)
	}
	prevTx, err := s.chain.GetRawTransactionVerbose(prevHash)
	if err != nil {
		return "", fmt.Errorf("failed to get prev tx %s: %w", depositTx.PrevTxnHash, err)
	}
	if int(depositTx.PrevOutIndex) >= len(prevTx.Vout) {
		return "", fmt.Errorf("prev tx %s has no output %d", depositTx.PrevTxnHash, depositTx.PrevOutIndex)
	}
	spk := prevTx.Vout[depositTx.PrevOutIndex].ScriptPubKey
	if spk.Address != "" {
		return spk.Address, nil
	}
	if len(spk.Addresses) > 0 {
		return spk.Addresses[0], nil
	}
	return "", fmt.Errorf("prev tx %s output %d has no address", depositTx.PrevTxnHash, depositTx.PrevOutIndex)
}

// SweepConfirmations is the reconciliation pass: it re-checks mempool-stage
// deposits created after the confirmed-time cursor against the chain's
// confirmation depth and advances them to BTC_DEPOSITED_INTO_ATLAS. The cursor
// never moves past a deposit that is still unconfirmed.
func (s *DepositScanner) SweepConfirmations(ctx context.Context) error {
	lastTime, err := s.cursors.GetCursor(s.confirmedTimeKey)
	if err != nil {
		return fmt.Errorf("failed to read confirmed-time cursor: %w", err)
	}
	if lastTime == 0 {
		lastTime = s.opts.ConfirmedTimeDefault
	}

	// the cursor bounds the query: anything at or before it was settled by a
	// prior sweep
	pending, err := s.client.ListDeposits(ctx, ledger.DepositFilter{
		Status:         ledger.DEPOSIT_STATUS_PENDING_MEMPOOL,
		AfterTimestamp: lastTime,
	})
	if err != nil {
		return fmt.Errorf("failed to list pending deposits: %w", err)
	}

	var minUnresolved, maxSettled int64
	for _, deposit := range pending {
		confirmed, err := s.checkConfirmed(ctx, deposit)
		if err != nil {
			return err
		}
		if confirmed {
			if deposit.DateCreated > maxSettled {
				maxSettled = deposit.DateCreated
			}
		} else if minUnresolved == 0 || deposit.DateCreated < minUnresolved {
			minUnresolved = deposit.DateCreated
		}
	}

	// advance only off observed deposit timestamps, never wall clock: the
	// height scan keeps inserting deposits whose block times lag real time
	base := maxSettled
	if minUnresolved > 0 {
		base = minUnresolved - 1
	}
	newCursor := base - blockTimeSkewMs
	if newCursor <= lastTime {
		return nil
	}
	return s.cursors.SetCursor(s.confirmedTimeKey, newCursor)
}

func (s *DepositScanner) checkConfirmed(ctx context.Context, deposit *ledger.Deposit) (bool, error) {
	txHash, err := chainhash.NewHashFromStr(deposit.BtcTxnHash)
	if err != nil {
		return false, fmt.Errorf("invalid deposit txn hash %s: %w", deposit.BtcTxnHash, err)
	}
	rawTx, err := s.chain.GetRawTransactionVerbose(txHash)
	if err != nil {
		return false, fmt.Errorf("failed to get tx %s: %w", deposit.BtcTxnHash, err)
	}
	if int64(rawTx.Confirmations) < s.opts.Confirmations {
		log.Debugf("Deposit %s has %d of %d confirmations", deposit.BtcTxnHash, rawTx.Confirmations, s.opts.Confirmations)
		return false, nil
	}

	if !state.CanTransition(deposit.Status, ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS) {
		log.Warnf("Deposit %s in status %s cannot advance to %s, skipping",
			deposit.BtcTxnHash, deposit.Status, ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS)
		return true, nil
	}
	if err := s.client.UpdateDepositStatus(ctx, deposit.BtcTxnHash, ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS); err != nil {
		// leave a trail on the record so operators and the retry flow can see
		// where the deposit halted
		if remarksErr := s.client.UpdateDepositRemarks(ctx, deposit.BtcTxnHash,
			fmt.Sprintf("failed to advance to %s: %v", ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS, err)); remarksErr != nil {
			log.Errorf("Failed to record remarks for deposit %s: %v", deposit.BtcTxnHash, remarksErr)
		}
		return false, fmt.Errorf("failed to advance deposit %s: %w", deposit.BtcTxnHash, err)
	}
	if deposit.Remarks != "" {
		if err := s.client.UpdateDepositRemarks(ctx, deposit.BtcTxnHash, ""); err != nil {
			log.Errorf("Failed to clear remarks for deposit %s: %v", deposit.BtcTxnHash, err)
		}
	}
	log.Infof("Deposit %s confirmed at depth %d, advanced to %s",
		deposit.BtcTxnHash, rawTx.Confirmations, ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS)
	return true, nil
}
