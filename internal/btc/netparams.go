package btc

import (
	"github.com/btcsuite/btcd/chaincfg"
)

// GetBTCNetwork maps the configured network type onto chain params, defaulting
// to mainnet.
func GetBTCNetwork(networkType string) *chaincfg.Params {
	switch networkType {
	case "", "mainnet":
		return &chaincfg.MainNetParams
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params
	case "regtest":
		return &chaincfg.RegressionNetParams
	case "signet":
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.MainNetParams
	}
}
