package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/atlasprotocol/deposit-relayer/internal/btc"
	"github.com/atlasprotocol/deposit-relayer/internal/config"
	"github.com/atlasprotocol/deposit-relayer/internal/db"
	"github.com/atlasprotocol/deposit-relayer/internal/http"
	"github.com/atlasprotocol/deposit-relayer/internal/ledger"
	"github.com/atlasprotocol/deposit-relayer/internal/params"
	"github.com/atlasprotocol/deposit-relayer/internal/retry"
)

type Application struct {
	DatabaseManager *db.DatabaseManager
	ParamsCache     *params.GlobalParamsCache
	Scanner         *btc.DepositScanner
	HTTPServer      *http.HTTPServer
}

func NewApplication() *Application {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}
	config.InitConfig()

	connConfig := &rpcclient.ConnConfig{
		Host:         config.AppConfig.BTCRPC,
		User:         config.AppConfig.BTCRPC_USER,
		Pass:         config.AppConfig.BTCRPC_PASS,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	btcClient, err := rpcclient.New(connConfig, nil)
	if err != nil {
		log.Fatalf("Failed to start bitcoin client: %v", err)
	}

	dbm := db.NewDatabaseManager()
	cursorStore := db.NewScanCursorStore(dbm)

	ledgerClient := ledger.NewRPCClient(
		config.AppConfig.LedgerRPC,
		config.AppConfig.LedgerContract,
		config.AppConfig.BitHiveContract,
		config.AppConfig.LedgerTimeout,
	)

	paramsCache := params.NewGlobalParamsCache(ledgerClient, config.AppConfig.ParamsRefreshInterval)

	netParams := btc.GetBTCNetwork(config.AppConfig.BTCNetworkType)
	scanner, err := btc.NewDepositScanner(btcClient, ledgerClient, cursorStore, paramsCache, btc.ScannerOptions{
		NetParams:            netParams,
		VaultAddress:         config.AppConfig.BTCVaultAddress,
		StartHeight:          int64(config.AppConfig.BTCStartHeight),
		Confirmations:        int64(config.AppConfig.BTCConfirmations),
		Interval:             config.AppConfig.ScanInterval,
		ConfirmedTimeDefault: config.AppConfig.LastProcessedTimeDefault,
	})
	if err != nil {
		log.Fatalf("Failed to create deposit scanner: %v", err)
	}

	verifier := retry.NewMessageVerifier(netParams)
	retryService := retry.NewService(ledgerClient, verifier, paramsCache)
	unstakingResolver := params.NewUnstakingPeriodResolver(ledgerClient, config.AppConfig.IsProduction())
	httpServer := http.NewHTTPServer(retryService, unstakingResolver)

	return &Application{
		DatabaseManager: dbm,
		ParamsCache:     paramsCache,
		Scanner:         scanner,
		HTTPServer:      httpServer,
	}
}

func (app *Application) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.ParamsCache.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Scanner.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.HTTPServer.Start(ctx)
	}()

	<-stop
	log.Info("Receiving exit signal...")

	cancel()

	wg.Wait()
	log.Info("Server stopped")
}

func main() {
	app := NewApplication()
	app.Run()
}
