package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

// RPCClient talks to the contract gateway over JSON-RPC 2.0. View and change
// methods map one-to-one onto the contract's function names.
type RPCClient struct {
	url             string
	atlasContract   string
	bitHiveContract string
	timeout         time.Duration
	httpClient      *http.Client
	nextID          atomic.Uint64
}

var _ Client = (*RPCClient)(nil)

func NewRPCClient(url, atlasContract, bitHiveContract string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RPCClient{
		url:             url,
		atlasContract:   atlasContract,
		bitHiveContract: bitHiveContract,
		timeout:         timeout,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JsonRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Contract string      `json:"contract"`
	Args     interface{} `json:"args"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, contract, method string, args interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody, err := json.Marshal(rpcRequest{
		JsonRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  rpcParams{Contract: contract, Args: args},
	})
	if err != nil {
		return errors.Errorf("failed to marshal %s request: %v", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return errors.Errorf("failed to build %s request: %v", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Errorf("ledger rpc %s failed: %v", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("failed to read %s response: %v", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("ledger rpc %s returned status %d: %s", method, resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return errors.Errorf("failed to decode %s response: %v", method, err)
	}
	if rpcResp.Error != nil {
		return errors.Errorf("ledger rpc %s contract error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if out != nil && len(rpcResp.Result) > 0 && string(rpcResp.Result) != "null" {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return errors.Errorf("failed to decode %s result: %v", method, err)
		}
	}
	log.Debugf("Ledger rpc %s on %s ok", method, contract)
	return nil
}

// GetDepositByBtcTxnHash returns nil without error when the contract has no record.
func (c *RPCClient) GetDepositByBtcTxnHash(ctx context.Context, btcTxnHash string) (*Deposit, error) {
	var deposit *Deposit
	err := c.call(ctx, c.atlasContract, "get_deposit_by_btc_txn_hash", map[string]string{
		"btc_txn_hash": btcTxnHash,
	}, &deposit)
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

func (c *RPCClient) ListDeposits(ctx context.Context, filter DepositFilter) ([]*Deposit, error) {
	var deposits []*Deposit
	err := c.call(ctx, c.atlasContract, "get_deposits", filter, &deposits)
	if err != nil {
		return nil, err
	}
	return deposits, nil
}

func (c *RPCClient) InsertDepositBtc(ctx context.Context, deposit *Deposit) error {
	return c.call(ctx, c.atlasContract, "insert_deposit_btc", deposit, nil)
}

func (c *RPCClient) UpdateDepositStatus(ctx context.Context, btcTxnHash, status string) error {
	return c.call(ctx, c.atlasContract, "update_deposit_status", map[string]string{
		"btc_txn_hash": btcTxnHash,
		"status":       status,
	}, nil)
}

func (c *RPCClient) UpdateDepositRemarks(ctx context.Context, btcTxnHash, remarks string) error {
	return c.call(ctx, c.atlasContract, "update_deposit_remarks", map[string]string{
		"btc_txn_hash": btcTxnHash,
		"remarks":      remarks,
	}, nil)
}

// RollbackDepositStatusByBtcTxnHash is conditional on the contract side: it
// fails unless the deposit currently satisfies the retry-eligibility predicate,
// so a losing concurrent caller cannot clobber state.
func (c *RPCClient) RollbackDepositStatusByBtcTxnHash(ctx context.Context, btcTxnHash string) error {
	return c.call(ctx, c.atlasContract, "rollback_deposit_status_by_btc_txn_hash", map[string]string{
		"btc_txn_hash": btcTxnHash,
	}, nil)
}

func (c *RPCClient) GetAllGlobalParams(ctx context.Context) (*GlobalParamsRecord, error) {
	var params GlobalParamsRecord
	err := c.call(ctx, c.atlasContract, "get_all_global_params", map[string]string{}, &params)
	if err != nil {
		return nil, err
	}
	return &params, nil
}

func (c *RPCClient) GetBitHiveSummary(ctx context.Context) (*BitHiveSummary, error) {
	var summary BitHiveSummary
	err := c.call(ctx, c.bitHiveContract, "get_summary", map[string]string{}, &summary)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
