package params

import (
	"context"
	"time"

	"github.com/atlasprotocol/deposit-relayer/internal/ledger"
	log "github.com/sirupsen/logrus"
)

const (
	fallbackUnstakingPeriodTestMs = int64(5 * time.Minute / time.Millisecond)
	fallbackUnstakingPeriodProdMs = int64(48 * time.Hour / time.Millisecond)
)

// UnstakingPeriodResolver resolves the withdrawal waiting time from the yield
// provider contract summary. The production flag is injected so both fallback
// branches are testable; the fallback only seeds new computations and never
// shortens a wait a user has already started.
type UnstakingPeriodResolver struct {
	client     ledger.Client
	production bool
}

func NewUnstakingPeriodResolver(client ledger.Client, production bool) *UnstakingPeriodResolver {
	return &UnstakingPeriodResolver{client: client, production: production}
}

// GetUnstakingPeriod returns the current withdrawal waiting time in milliseconds.
func (r *UnstakingPeriodResolver) GetUnstakingPeriod(ctx context.Context) int64 {
	summary, err := r.client.GetBitHiveSummary(ctx)
	if err != nil {
		fallback := r.fallbackMs()
		log.Warnf("Failed to get bithive summary, using fallback unstaking period %d ms: %v", fallback, err)
		return fallback
	}
	if summary.WithdrawalWaitingTimeMs <= 0 {
		fallback := r.fallbackMs()
		log.Warnf("Bithive summary reported waiting time %d ms, using fallback %d ms", summary.WithdrawalWaitingTimeMs, fallback)
		return fallback
	}
	return summary.WithdrawalWaitingTimeMs
}

func (r *UnstakingPeriodResolver) fallbackMs() int64 {
	if r.production {
		return fallbackUnstakingPeriodProdMs
	}
	return fallbackUnstakingPeriodTestMs
}
