package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayServer(t *testing.T, handler func(method string, params rpcParams) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JsonRPC)

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"id": req.ID, "jsonrpc": "2.0"}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetDepositByBtcTxnHash(t *testing.T) {
	server := newGatewayServer(t, func(method string, params rpcParams) (interface{}, *rpcError) {
		assert.Equal(t, "get_deposit_by_btc_txn_hash", method)
		assert.Equal(t, "atlas.testnet", params.Contract)
		return &Deposit{BtcTxnHash: "d1hash", Status: DEPOSIT_STATUS_PENDING_MEMPOOL, AmountSat: 250_000}, nil
	})
	defer server.Close()

	client := NewRPCClient(server.URL, "atlas.testnet", "bithive.testnet", 5*time.Second)
	deposit, err := client.GetDepositByBtcTxnHash(context.Background(), "d1hash")
	require.NoError(t, err)
	require.NotNil(t, deposit)
	assert.Equal(t, "d1hash", deposit.BtcTxnHash)
	assert.Equal(t, int64(250_000), deposit.AmountSat)
}

func TestGetDepositByBtcTxnHashNullResult(t *testing.T) {
	server := newGatewayServer(t, func(_ string, _ rpcParams) (interface{}, *rpcError) {
		return nil, nil
	})
	defer server.Close()

	client := NewRPCClient(server.URL, "atlas.testnet", "bithive.testnet", 5*time.Second)
	deposit, err := client.GetDepositByBtcTxnHash(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, deposit)
}

func TestContractErrorSurfaces(t *testing.T) {
	server := newGatewayServer(t, func(_ string, _ rpcParams) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "deposit state is not retry-eligible"}
	})
	defer server.Close()

	client := NewRPCClient(server.URL, "atlas.testnet", "bithive.testnet", 5*time.Second)
	err := client.RollbackDepositStatusByBtcTxnHash(context.Background(), "d1hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not retry-eligible")
}

func TestGetAllGlobalParamsRoutesToAtlasContract(t *testing.T) {
	server := newGatewayServer(t, func(method string, params rpcParams) (interface{}, *rpcError) {
		assert.Equal(t, "get_all_global_params", method)
		assert.Equal(t, "atlas.testnet", params.Contract)
		return &GlobalParamsRecord{MaxRetryCount: 2, TreasuryAddress: "treasury.testnet"}, nil
	})
	defer server.Close()

	client := NewRPCClient(server.URL, "atlas.testnet", "bithive.testnet", 5*time.Second)
	record, err := client.GetAllGlobalParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), record.MaxRetryCount)
	assert.Equal(t, "treasury.testnet", record.TreasuryAddress)
}

func TestGetBitHiveSummaryRoutesToBitHiveContract(t *testing.T) {
	server := newGatewayServer(t, func(method string, params rpcParams) (interface{}, *rpcError) {
		assert.Equal(t, "get_summary", method)
		assert.Equal(t, "bithive.testnet", params.Contract)
		return &BitHiveSummary{WithdrawalWaitingTimeMs: 604_800_000}, nil
	})
	defer server.Close()

	client := NewRPCClient(server.URL, "atlas.testnet", "bithive.testnet", 5*time.Second)
	summary, err := client.GetBitHiveSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(604_800_000), summary.WithdrawalWaitingTimeMs)
}

func TestHTTPStatusErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewRPCClient(server.URL, "atlas.testnet", "bithive.testnet", 5*time.Second)
	_, err := client.GetAllGlobalParams(context.Background())
	assert.Error(t, err)
}
