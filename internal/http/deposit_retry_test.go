package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasprotocol/deposit-relayer/internal/ledger"
	"github.com/atlasprotocol/deposit-relayer/internal/params"
	"github.com/atlasprotocol/deposit-relayer/internal/retry"
	"github.com/atlasprotocol/deposit-relayer/internal/state"
)

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) Verify(_, _, _ string) error { return f.err }

type fakeLedger struct {
	deposits  map[string]*ledger.Deposit
	summaryMs int64
}

func (f *fakeLedger) GetDepositByBtcTxnHash(_ context.Context, hash string) (*ledger.Deposit, error) {
	d, ok := f.deposits[hash]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (f *fakeLedger) ListDeposits(_ context.Context, _ ledger.DepositFilter) ([]*ledger.Deposit, error) {
	return nil, nil
}
func (f *fakeLedger) InsertDepositBtc(_ context.Context, _ *ledger.Deposit) error { return nil }
func (f *fakeLedger) UpdateDepositStatus(_ context.Context, _, _ string) error    { return nil }
func (f *fakeLedger) UpdateDepositRemarks(_ context.Context, _, _ string) error   { return nil }

func (f *fakeLedger) RollbackDepositStatusByBtcTxnHash(_ context.Context, hash string) error {
	d, ok := f.deposits[hash]
	if !ok {
		return errors.New("deposit not found")
	}
	hasError, inRetryStatus := state.RetryEligible(d)
	if !hasError || !inRetryStatus {
		return errors.New("deposit state is not retry-eligible")
	}
	target, _ := state.RollbackTarget(d.Status)
	d.Status = target
	d.Remarks = ""
	d.RetryCount++
	return nil
}

func (f *fakeLedger) GetAllGlobalParams(_ context.Context) (*ledger.GlobalParamsRecord, error) {
	return &ledger.GlobalParamsRecord{MaxRetryCount: 3}, nil
}
func (f *fakeLedger) GetBitHiveSummary(_ context.Context) (*ledger.BitHiveSummary, error) {
	if f.summaryMs == 0 {
		return nil, errors.New("gateway down")
	}
	return &ledger.BitHiveSummary{WithdrawalWaitingTimeMs: f.summaryMs}, nil
}

func newTestRouter(t *testing.T, client *fakeLedger, verifier retry.SignatureVerifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache := params.NewGlobalParamsCache(client, time.Minute)
	require.NoError(t, cache.Refresh(context.Background()))
	resolver := params.NewUnstakingPeriodResolver(client, false)
	hs := NewHTTPServer(retry.NewService(client, verifier, cache), resolver)

	r := gin.New()
	r.GET("/api/v1/status", hs.handleStatus)
	r.POST("/api/v1/deposit/retry", hs.handleDepositRetry)
	return r
}

func getStatus(t *testing.T, r *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusEndpointReportsUnstakingPeriod(t *testing.T) {
	client := &fakeLedger{summaryMs: 7_200_000}
	r := newTestRouter(t, client, &fakeVerifier{})

	w := getStatus(t, r)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(7_200_000), body["unstaking_period_ms"])
}

func TestStatusEndpointFallsBackWhenSummaryUnavailable(t *testing.T) {
	client := &fakeLedger{}
	r := newTestRouter(t, client, &fakeVerifier{})

	w := getStatus(t, r)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(5*60*1000), body["unstaking_period_ms"])
}

func postRetry(t *testing.T, r *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposit/retry", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func stalledDeposit() *ledger.Deposit {
	return &ledger.Deposit{
		BtcTxnHash:       "d1hash",
		BtcSenderAddress: "addrA",
		Status:           ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS,
		Remarks:          "yield provider timeout",
	}
}

func TestRetryEndpointSuccess(t *testing.T) {
	client := &fakeLedger{deposits: map[string]*ledger.Deposit{"d1hash": stalledDeposit()}}
	r := newTestRouter(t, client, &fakeVerifier{})

	w := postRetry(t, r, retry.Request{BtcTxnHash: "d1hash", Address: "addrA", Signature: "sig"})
	require.Equal(t, http.StatusOK, w.Code)

	var deposit ledger.Deposit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deposit))
	assert.Equal(t, ledger.DEPOSIT_STATUS_DEPOSITED_INTO_ATLAS, deposit.Status)
	assert.Equal(t, "", deposit.Remarks)
}

func TestRetryEndpointSenderMismatch(t *testing.T) {
	client := &fakeLedger{deposits: map[string]*ledger.Deposit{"d1hash": stalledDeposit()}}
	r := newTestRouter(t, client, &fakeVerifier{})

	w := postRetry(t, r, retry.Request{BtcTxnHash: "d1hash", Address: "addrB", Signature: "sig"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "addrA", body["expected"])
	assert.Equal(t, "addrB", body["actual"])
	// no state mutation
	assert.Equal(t, "yield provider timeout", client.deposits["d1hash"].Remarks)
}

func TestRetryEndpointNotRetryable(t *testing.T) {
	terminal := &ledger.Deposit{
		BtcTxnHash:       "d2hash",
		BtcSenderAddress: "addrA",
		Status:           ledger.DEPOSIT_STATUS_YIELD_PROVIDER_DEPOSITED,
	}
	client := &fakeLedger{deposits: map[string]*ledger.Deposit{"d2hash": terminal}}
	r := newTestRouter(t, client, &fakeVerifier{})

	w := postRetry(t, r, retry.Request{BtcTxnHash: "d2hash", Address: "addrA", Signature: "sig"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["has_error"])
	assert.Equal(t, false, body["is_in_retry_status"])
	assert.NotNil(t, body["deposit"])
	assert.Equal(t, ledger.DEPOSIT_STATUS_YIELD_PROVIDER_DEPOSITED, client.deposits["d2hash"].Status)
}

func TestRetryEndpointUnknownDeposit(t *testing.T) {
	client := &fakeLedger{deposits: map[string]*ledger.Deposit{}}
	r := newTestRouter(t, client, &fakeVerifier{})

	w := postRetry(t, r, retry.Request{BtcTxnHash: "unknown", Address: "addrA", Signature: "sig"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRetryEndpointBadSignature(t *testing.T) {
	client := &fakeLedger{deposits: map[string]*ledger.Deposit{"d1hash": stalledDeposit()}}
	r := newTestRouter(t, client, &fakeVerifier{err: errors.New("bad sig")})

	w := postRetry(t, r, retry.Request{BtcTxnHash: "d1hash", Address: "addrA", Signature: "sig"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid signature", body["error"])
	// the opaque response does not leak the deposit
	assert.NotContains(t, body, "deposit")
}

func TestRetryEndpointMalformedBody(t *testing.T) {
	client := &fakeLedger{deposits: map[string]*ledger.Deposit{}}
	r := newTestRouter(t, client, &fakeVerifier{})

	// missing required fields
	w := postRetry(t, r, map[string]string{"btc_txn_hash": "d1hash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
