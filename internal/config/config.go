package config

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var AppConfig Config

func InitConfig() {
	viper.AutomaticEnv()

	// Default config
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("BTC_RPC", "http://localhost:8332")
	viper.SetDefault("BTC_RPC_USER", "")
	viper.SetDefault("BTC_RPC_PASS", "")
	viper.SetDefault("BTC_CONFIRMATIONS", 6)
	viper.SetDefault("BTC_START_HEIGHT", 0)
	viper.SetDefault("BTC_NETWORK_TYPE", "")
	viper.SetDefault("BTC_VAULT_ADDRESS", "")
	viper.SetDefault("SCAN_INTERVAL", "30s")
	viper.SetDefault("PARAMS_REFRESH_INTERVAL", "60s")
	viper.SetDefault("LEDGER_RPC", "http://localhost:3030")
	viper.SetDefault("LEDGER_CONTRACT", "atlas.testnet")
	viper.SetDefault("BITHIVE_CONTRACT", "bithive.testnet")
	viper.SetDefault("LEDGER_TIMEOUT", "15s")
	viper.SetDefault("DB_DIR", "/app/db")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("RELAYER_ENV", "testnet")
	viper.SetDefault("LAST_PROCESSED_TIME_DEFAULT", 0)

	logLevel, err := logrus.ParseLevel(strings.ToLower(viper.GetString("LOG_LEVEL")))
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}

	AppConfig = Config{
		HTTPPort:                 viper.GetString("HTTP_PORT"),
		BTCRPC:                   viper.GetString("BTC_RPC"),
		BTCRPC_USER:              viper.GetString("BTC_RPC_USER"),
		BTCRPC_PASS:              viper.GetString("BTC_RPC_PASS"),
		BTCStartHeight:           viper.GetInt("BTC_START_HEIGHT"),
		BTCConfirmations:         viper.GetInt("BTC_CONFIRMATIONS"),
		BTCNetworkType:           viper.GetString("BTC_NETWORK_TYPE"),
		BTCVaultAddress:          viper.GetString("BTC_VAULT_ADDRESS"),
		ScanInterval:             viper.GetDuration("SCAN_INTERVAL"),
		ParamsRefreshInterval:    viper.GetDuration("PARAMS_REFRESH_INTERVAL"),
		LedgerRPC:                viper.GetString("LEDGER_RPC"),
		LedgerContract:           viper.GetString("LEDGER_CONTRACT"),
		BitHiveContract:          viper.GetString("BITHIVE_CONTRACT"),
		LedgerTimeout:            viper.GetDuration("LEDGER_TIMEOUT"),
		DbDir:                    viper.GetString("DB_DIR"),
		LogLevel:                 logLevel,
		RelayerEnv:               viper.GetString("RELAYER_ENV"),
		LastProcessedTimeDefault: viper.GetInt64("LAST_PROCESSED_TIME_DEFAULT"),
	}

	if (AppConfig.BTCNetworkType == "" || AppConfig.BTCNetworkType == "mainnet") && AppConfig.BTCConfirmations < 6 {
		logrus.Warnf("BTC mainnet confirmations is too low, set to 6")
		AppConfig.BTCConfirmations = 6
	}

	logrus.Infof("Init config, ScanInterval %v, ParamsRefreshInterval %v, LedgerContract %s, env %s",
		AppConfig.ScanInterval, AppConfig.ParamsRefreshInterval, AppConfig.LedgerContract, AppConfig.RelayerEnv)

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(AppConfig.LogLevel)
}

type Config struct {
	HTTPPort                 string
	BTCRPC                   string
	BTCRPC_USER              string
	BTCRPC_PASS              string
	BTCStartHeight           int
	BTCConfirmations         int
	BTCNetworkType           string
	BTCVaultAddress          string
	ScanInterval             time.Duration
	ParamsRefreshInterval    time.Duration
	LedgerRPC                string
	LedgerContract           string
	BitHiveContract          string
	LedgerTimeout            time.Duration
	DbDir                    string
	LogLevel                 logrus.Level
	RelayerEnv               string
	LastProcessedTimeDefault int64
}

// IsProduction reports whether the relayer runs against mainnet infrastructure.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.RelayerEnv, "production") || strings.EqualFold(c.RelayerEnv, "mainnet")
}
