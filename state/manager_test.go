package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"stakeforge/native/factory"
	"stakeforge/native/stakepool"
	"stakeforge/storage"
)

func testPool(id byte) *stakepool.Pool {
	return &stakepool.Pool{
		ID:    [32]byte{id},
		Vault: [20]byte{0xAA},
		Config: stakepool.PoolConfig{
			StakeToken:      "STK",
			RewardToken:     "RWD",
			StartTime:       1_000,
			EndTime:         2_000,
			RewardPerSecond: big.NewInt(7),
		},
		TotalStaked:      big.NewInt(500),
		AccRewardPerUnit: big.NewInt(123_456),
		LastRefresh:      1_234,
		TotalRewardPaid:  big.NewInt(9),
	}
}

func TestPoolRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	_, ok, err := manager.PoolGet([32]byte{0x01})
	require.NoError(t, err)
	require.False(t, ok)

	stored := testPool(0x01)
	require.NoError(t, manager.PoolPut(stored))

	loaded, ok, err := manager.PoolGet([32]byte{0x01})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, stored.Config.StakeToken, loaded.Config.StakeToken)
	require.Zero(t, loaded.TotalStaked.Cmp(stored.TotalStaked))
	require.Zero(t, loaded.AccRewardPerUnit.Cmp(stored.AccRewardPerUnit))
	require.Equal(t, stored.LastRefresh, loaded.LastRefresh)
}

func TestAccountRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	poolID := [32]byte{0x01}
	addr := [20]byte{0x0A}

	_, ok, err := manager.AccountGet(poolID, addr)
	require.NoError(t, err)
	require.False(t, ok)

	account := &stakepool.Account{
		Weight:        big.NewInt(42),
		RewardDebt:    big.NewInt(7),
		Pending:       big.NewInt(3),
		Claimed:       big.NewInt(1),
		LastDepositAt: 1_500,
		StakedItems:   []uint64{2, 5},
	}
	require.NoError(t, manager.AccountPut(poolID, addr, account))

	loaded, ok, err := manager.AccountGet(poolID, addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, loaded.Weight.Cmp(account.Weight))
	require.Equal(t, account.StakedItems, loaded.StakedItems)
	require.Equal(t, account.LastDepositAt, loaded.LastDepositAt)

	// Accounts are scoped per pool.
	_, ok, err = manager.AccountGet([32]byte{0x02}, addr)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRequestSequence(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	count, err := manager.RequestCount()
	require.NoError(t, err)
	require.Zero(t, count)

	request := &factory.DeploymentRequest{
		Proposer: [20]byte{0x0B},
		Config: stakepool.PoolConfig{
			StakeToken:      "STK",
			RewardToken:     "RWD",
			StartTime:       1_000,
			EndTime:         2_000,
			RewardPerSecond: big.NewInt(1),
		},
		Status: factory.RequestStatusSubmitted,
	}
	first, err := manager.RequestAppend(request)
	require.NoError(t, err)
	second, err := manager.RequestAppend(request)
	require.NoError(t, err)
	require.Equal(t, uint64(0), first)
	require.Equal(t, uint64(1), second)

	count, err = manager.RequestCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	loaded, ok, err := manager.RequestGet(first)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, loaded.ID)
	require.Equal(t, factory.RequestStatusSubmitted, loaded.Status)

	loaded.Status = factory.RequestStatusApproved
	require.NoError(t, manager.RequestPut(loaded))
	reloaded, ok, err := manager.RequestGet(first)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, factory.RequestStatusApproved, reloaded.Status)

	// Put must not mint records outside the appended range.
	loaded.ID = 99
	require.Error(t, manager.RequestPut(loaded))
}

func TestPoolIndexKeepsDeploymentOrder(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	ids, err := manager.PoolList()
	require.NoError(t, err)
	require.Empty(t, ids)

	first := [32]byte{0x01}
	second := [32]byte{0x02}
	require.NoError(t, manager.PoolAppend(first))
	require.NoError(t, manager.PoolAppend(second))

	ids, err = manager.PoolList()
	require.NoError(t, err)
	require.Equal(t, [][32]byte{first, second}, ids)
}
