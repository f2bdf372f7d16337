package core

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"stakeforge/native/assets"
	"stakeforge/native/factory"
	"stakeforge/native/stakepool"
	"stakeforge/storage"
)

var (
	nodeApprover = [20]byte{0xA1}
	nodeProposer = [20]byte{0xB2}
	nodeStaker   = [20]byte{0xC3}
)

func nodeTokens(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return scale.Mul(scale, big.NewInt(n))
}

func newTestNode(t *testing.T) (*Node, *assets.MemoryLedger, *uint64) {
	t.Helper()
	ledger := assets.NewMemoryLedger()
	node := NewNode(storage.NewMemDB(), ledger, nodeApprover)
	clock := uint64(500)
	node.SetNowFunc(func() uint64 { return clock })
	return node, ledger, &clock
}

func TestNodeFullLifecycle(t *testing.T) {
	node, ledger, clock := newTestNode(t)
	require.NoError(t, ledger.Mint("RWD", nodeProposer, nodeTokens(1_000)))
	require.NoError(t, ledger.Mint("STK", nodeStaker, nodeTokens(100)))

	cfg := stakepool.PoolConfig{
		StakeToken:      "STK",
		RewardToken:     "RWD",
		AssetKind:       stakepool.AssetFungible,
		StartTime:       1_000,
		EndTime:         2_000,
		RewardPerSecond: nodeTokens(1),
	}
	id, err := node.SubmitRequest(nodeProposer, [32]byte{0xEE}, cfg)
	require.NoError(t, err)
	require.NoError(t, node.ApproveRequest(nodeApprover, id))

	poolID, err := node.DeployPool(nodeProposer, id)
	require.NoError(t, err)

	// The deployment-request registry and the pool index agree.
	request, err := node.GetRequest(id)
	require.NoError(t, err)
	require.Equal(t, factory.RequestStatusDeployed, request.Status)
	pools, err := node.GetPools()
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, poolID, pools[0].ID)

	*clock = 1_100
	require.NoError(t, node.Stake(poolID, nodeStaker, stakepool.Selection{Amount: nodeTokens(100)}))

	*clock = 1_140
	pending, err := node.PendingRewards(poolID, nodeStaker)
	require.NoError(t, err)
	require.Zero(t, pending.Cmp(nodeTokens(40)))

	require.NoError(t, node.Claim(poolID, nodeStaker))
	require.Zero(t, ledger.BalanceOf("RWD", nodeStaker).Cmp(nodeTokens(40)))

	require.NoError(t, node.Unstake(poolID, nodeStaker, stakepool.Selection{Amount: nodeTokens(100)}))
	require.Zero(t, ledger.BalanceOf("STK", nodeStaker).Cmp(nodeTokens(100)))

	recorded := node.RecentEvents()
	require.NotEmpty(t, recorded)
	require.Equal(t, factory.EventTypeRequestSubmitted, recorded[0].Type)
}

func TestNodeStateSurvivesReopen(t *testing.T) {
	db := storage.NewMemDB()
	ledger := assets.NewMemoryLedger()
	require.NoError(t, ledger.Mint("RWD", nodeProposer, nodeTokens(1_000)))

	node := NewNode(db, ledger, nodeApprover)
	clock := uint64(500)
	node.SetNowFunc(func() uint64 { return clock })

	cfg := stakepool.PoolConfig{
		StakeToken:      "STK",
		RewardToken:     "RWD",
		StartTime:       1_000,
		EndTime:         2_000,
		RewardPerSecond: nodeTokens(1),
	}
	id, err := node.SubmitRequest(nodeProposer, [32]byte{}, cfg)
	require.NoError(t, err)
	require.NoError(t, node.ApproveRequest(nodeApprover, id))
	poolID, err := node.DeployPool(nodeProposer, id)
	require.NoError(t, err)

	// A second node over the same database sees the deployed pool.
	reopened := NewNode(db, ledger, nodeApprover)
	pool, err := reopened.GetPool(poolID)
	require.NoError(t, err)
	require.Equal(t, "STK", pool.Config.StakeToken)
	requests, err := reopened.GetRequests()
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, factory.RequestStatusDeployed, requests[0].Status)
}
