package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"stakeforge/core"
	"stakeforge/native/assets"
	"stakeforge/storage"
)

const (
	approverHex = "0x00000000000000000000000000000000000000A1"
	proposerHex = "0x00000000000000000000000000000000000000B2"
	stakerHex   = "0x00000000000000000000000000000000000000C3"
)

type testHarness struct {
	ts     *httptest.Server
	ledger *assets.MemoryLedger
	clock  *uint64
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	ledger := assets.NewMemoryLedger()
	approver, err := parseAddress(approverHex)
	require.NoError(t, err)
	node := core.NewNode(storage.NewMemDB(), ledger, approver)

	clock := uint64(500)
	harness := &testHarness{ledger: ledger, clock: &clock}
	node.SetNowFunc(func() uint64 { return clock })

	server := NewServer(node, slog.New(slog.NewTextHandler(io.Discard, nil)), 1_000, 1_000)
	server.SetNowFunc(func() uint64 { return clock })
	harness.ts = httptest.NewServer(server.Router())
	t.Cleanup(harness.ts.Close)
	return harness
}

func (h *testHarness) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, h.ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func tokens(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return scale.Mul(scale, big.NewInt(n))
}

func submitPayload() submitRequestPayload {
	return submitRequestPayload{
		Proposer: proposerHex,
		Tag:      "0xdeadbeef",
		Config: poolConfigPayload{
			StakeToken:      "STK",
			RewardToken:     "RWD",
			AssetKind:       "fungible",
			StartTime:       1_000,
			EndTime:         2_000,
			RewardPerSecond: tokens(1).String(),
			Policy:          policyPayload{Kind: "none"},
		},
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	var body map[string]string
	status := h.do(t, http.MethodGet, "/healthz", nil, &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ledger.Mint("RWD", mustAddr(t, proposerHex), tokens(1_000)))
	require.NoError(t, h.ledger.Mint("STK", mustAddr(t, stakerHex), tokens(100)))

	var submitted submitResponse
	status := h.do(t, http.MethodPost, "/v1/requests", submitPayload(), &submitted)
	require.Equal(t, http.StatusCreated, status)

	// The approver role is enforced over the wire.
	var failure errorResponse
	status = h.do(t, http.MethodPost, "/v1/requests/0/approve", actionPayload{Caller: stakerHex}, &failure)
	require.Equal(t, http.StatusForbidden, status)

	var approved requestView
	status = h.do(t, http.MethodPost, "/v1/requests/0/approve", actionPayload{Caller: approverHex}, &approved)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "approved", approved.Status)

	var deployed deployResponse
	status = h.do(t, http.MethodPost, "/v1/requests/0/deploy", actionPayload{Caller: proposerHex}, &deployed)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, deployed.PoolID)

	var pools []poolView
	status = h.do(t, http.MethodGet, "/v1/pools", nil, &pools)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, pools, 1)
	require.Equal(t, "not_started", pools[0].Phase)

	poolPath := "/v1/pools/" + deployed.PoolID

	*h.clock = 1_100
	var account accountView
	status = h.do(t, http.MethodPost, poolPath+"/stake", stakePayload{Caller: stakerHex, Amount: tokens(100).String()}, &account)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, tokens(100).String(), account.Weight)

	*h.clock = 1_140
	var pending pendingView
	status = h.do(t, http.MethodGet, poolPath+"/accounts/"+stakerHex+"/pending", nil, &pending)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, tokens(40).String(), pending.Pending)

	status = h.do(t, http.MethodPost, poolPath+"/claim", actionPayload{Caller: stakerHex}, &account)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, tokens(40).String(), account.Claimed)
	require.Equal(t, "0", account.Pending)

	got := h.ledger.BalanceOf("RWD", mustAddr(t, stakerHex))
	require.Zero(t, got.Cmp(tokens(40)))

	var recorded []map[string]any
	status = h.do(t, http.MethodGet, "/v1/events", nil, &recorded)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, recorded)
}

func TestDeployWithoutApprovalConflicts(t *testing.T) {
	h := newHarness(t)
	var submitted submitResponse
	status := h.do(t, http.MethodPost, "/v1/requests", submitPayload(), &submitted)
	require.Equal(t, http.StatusCreated, status)

	var failure errorResponse
	status = h.do(t, http.MethodPost, "/v1/requests/0/deploy", actionPayload{Caller: proposerHex}, &failure)
	require.Equal(t, http.StatusConflict, status)
	require.NotEmpty(t, failure.Error)
}

func TestUnknownResources(t *testing.T) {
	h := newHarness(t)

	var failure errorResponse
	status := h.do(t, http.MethodGet, "/v1/requests/42", nil, &failure)
	require.Equal(t, http.StatusNotFound, status)

	poolID := "0x" + string(bytes.Repeat([]byte("0"), 64))
	status = h.do(t, http.MethodGet, "/v1/pools/"+poolID, nil, &failure)
	require.Equal(t, http.StatusNotFound, status)

	status = h.do(t, http.MethodGet, "/v1/pools/not-hex", nil, &failure)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t)

	payload := submitPayload()
	payload.Config.RewardPerSecond = "0"
	var failure errorResponse
	status := h.do(t, http.MethodPost, "/v1/requests", payload, &failure)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	payload = submitPayload()
	payload.Proposer = "nope"
	status = h.do(t, http.MethodPost, "/v1/requests", payload, &failure)
	require.Equal(t, http.StatusBadRequest, status)

	payload = submitPayload()
	payload.Config.AssetKind = "bonds"
	status = h.do(t, http.MethodPost, "/v1/requests", payload, &failure)
	require.Equal(t, http.StatusBadRequest, status)
}

func mustAddr(t *testing.T, raw string) [20]byte {
	t.Helper()
	addr, err := parseAddress(raw)
	require.NoError(t, err)
	return addr
}
