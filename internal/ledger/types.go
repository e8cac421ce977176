package ledger

const (
	DEPOSIT_STATUS_PENDING_MEMPOOL          = "BTC_PENDING_DEPOSIT_MEMPOOL"
	DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS     = "BTC_DEPOSITED_INTO_ATLAS"
	DEPOSIT_STATUS_PENDING_YIELD_PROVIDER   = "BTC_PENDING_YIELD_PROVIDER_DEPOSIT"
	DEPOSIT_STATUS_YIELD_PROVIDER_DEPOSITED = "BTC_YIELD_PROVIDER_DEPOSITED"
)

// Deposit is the contract-side record tracking one Bitcoin deposit transaction.
// BtcTxnHash is the sole correlation key; records are never deleted.
type Deposit struct {
	BtcTxnHash             string `json:"btc_txn_hash"`
	BtcSenderAddress       string `json:"btc_sender_address"`
	ReceivingChainID       string `json:"receiving_chain_id"`
	ReceivingAddress       string `json:"receiving_address"`
	AmountSat              int64  `json:"btc_amount"`
	Status                 string `json:"status"`
	Remarks                string `json:"remarks"`
	RetryCount             int64  `json:"retry_count"`
	ProtocolFeeSat         int64  `json:"protocol_fee"`
	MintingFeeSat          int64  `json:"minting_fee"`
	BridgingFeeSat         int64  `json:"bridging_fee"`
	YieldProviderGasFeeSat int64  `json:"yield_provider_gas_fee"`
	DateCreated            int64  `json:"date_created"`
	VerifiedCount          int64  `json:"verified_count"`
}

// GlobalParamsRecord is the raw parameter set as the contract returns it,
// fee rates in basis points.
type GlobalParamsRecord struct {
	MpcContract                string `json:"mpc_contract"`
	BtcStakingCapSat           int64  `json:"btc_staking_cap"`
	BtcMaxStakingAmountSat     int64  `json:"btc_max_staking_amount"`
	BtcMinStakingAmountSat     int64  `json:"btc_min_staking_amount"`
	FeeRedemptionBps           int64  `json:"fee_redemption_bps"`
	FeeDepositBps              int64  `json:"fee_deposit_bps"`
	FeeYieldProviderRewardsBps int64  `json:"fee_yield_provider_rewards_bps"`
	FeeBridgingBps             int64  `json:"fee_bridging_bps"`
	TreasuryAddress            string `json:"treasury_address"`
	MaxRetryCount              int64  `json:"max_retry_count"`
}

// BitHiveSummary is the subset of the yield provider contract summary the relayer reads.
type BitHiveSummary struct {
	WithdrawalWaitingTimeMs int64 `json:"withdrawal_waiting_time_ms"`
}

// DepositFilter narrows ListDeposits on the contract side. AfterTimestamp
// excludes deposits created at or before the given time.
type DepositFilter struct {
	Status         string `json:"status,omitempty"`
	AfterTimestamp int64  `json:"after_timestamp,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}
