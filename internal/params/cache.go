package params

import (
	"context"
	"sync"
	"time"

	"github.com/atlasprotocol/deposit-relayer/internal/ledger"
	log "github.com/sirupsen/logrus"
)

// feeRateDivisor converts contract basis points to a ratio. Fixed at 10000.
const feeRateDivisor = 10000.0

// GlobalParams is the process-wide snapshot of protocol economics. Fee rates
// are ratios (bps / 10000), amounts are satoshis.
type GlobalParams struct {
	MpcContract                 string
	StakingCapSat               int64
	MaxStakingAmountSat         int64
	MinStakingAmountSat         int64
	RedemptionFeeRate           float64
	DepositFeeRate              float64
	YieldProviderRewardsFeeRate float64
	BridgingFeeRate             float64
	TreasuryAddress             string
	MaxRetryCount               int64
}

// GlobalParamsCache holds the latest snapshot, refreshed by one background
// loop and read by everyone else. The swap is all-or-nothing: a failed refresh
// leaves the previous snapshot untouched.
type GlobalParamsCache struct {
	client   ledger.Client
	interval time.Duration

	mu      sync.RWMutex
	current GlobalParams
}

func NewGlobalParamsCache(client ledger.Client, interval time.Duration) *GlobalParamsCache {
	return &GlobalParamsCache{
		client:   client,
		interval: interval,
		current: GlobalParams{
			// retries must always be possible at least once, even before
			// the first successful refresh
			MaxRetryCount: 1,
		},
	}
}

// Current returns the latest snapshot. Never blocks on network I/O.
func (c *GlobalParamsCache) Current() GlobalParams {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current
}

// Refresh reads the parameters from the contract and atomically replaces the
// snapshot. On failure the old snapshot stays in place and the error is returned
// for the caller's loop to log.
func (c *GlobalParamsCache) Refresh(ctx context.Context) error {
	record, err := c.client.GetAllGlobalParams(ctx)
	if err != nil {
		return err
	}

	next := GlobalParams{
		MpcContract:                 record.MpcContract,
		StakingCapSat:               record.BtcStakingCapSat,
		MaxStakingAmountSat:         record.BtcMaxStakingAmountSat,
		MinStakingAmountSat:         record.BtcMinStakingAmountSat,
		RedemptionFeeRate:           float64(record.FeeRedemptionBps) / feeRateDivisor,
		DepositFeeRate:              float64(record.FeeDepositBps) / feeRateDivisor,
		YieldProviderRewardsFeeRate: float64(record.FeeYieldProviderRewardsBps) / feeRateDivisor,
		BridgingFeeRate:             float64(record.FeeBridgingBps) / feeRateDivisor,
		TreasuryAddress:             record.TreasuryAddress,
		MaxRetryCount:               record.MaxRetryCount,
	}
	if next.MaxRetryCount == 0 {
		next.MaxRetryCount = 1
	}

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()

	log.Debugf("Global params refreshed, staking cap %d sat, max retry %d", next.StakingCapSat, next.MaxRetryCount)
	return nil
}

// Run refreshes once immediately, then on every tick until the context ends.
func (c *GlobalParamsCache) Run(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		log.Errorf("Initial global params refresh failed: %v", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping global params refresh loop...")
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				log.Errorf("Global params refresh failed, keeping previous snapshot: %v", err)
			}
		}
	}
}
