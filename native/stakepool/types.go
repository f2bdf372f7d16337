package stakepool

import (
	"math/big"
	"sort"
)

// PrecisionFactor scales the accumulated reward per staked unit so integer
// division keeps sub-unit precision. The reference deployments use 10^19 and
// both the accrual and settlement paths must use the same constant, so it
// lives here rather than as a literal at the call sites.
var PrecisionFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(19), nil)

// AssetKind selects how a pool measures stake weight.
type AssetKind uint8

const (
	// AssetFungible weighs participants by the token amount they deposit.
	AssetFungible AssetKind = iota
	// AssetItems weighs participants by the count of discrete items they
	// deposit (each item contributes weight one).
	AssetItems
)

// PolicyKind tags the withdrawal policy variant applied at the unstake and
// claim gates. All variants share the same accrual core.
type PolicyKind uint8

const (
	// PolicyNone places no restriction beyond the pool time window.
	PolicyNone PolicyKind = iota
	// PolicyLockUp blocks unstaking and claiming outright before the
	// configured timestamps.
	PolicyLockUp
	// PolicyPenalty always permits exit but deducts a share of the settled
	// reward while the participant is inside the penalty window of their
	// most recent deposit.
	PolicyPenalty
)

// WithdrawPolicy carries the variant tag plus the parameters of whichever
// variant is active. Zero lockup timestamps disable that gate.
type WithdrawPolicy struct {
	Kind              PolicyKind `json:"kind"`
	UnstakeLockUpTime uint64     `json:"unstakeLockUpTime,omitempty"`
	ClaimLockUpTime   uint64     `json:"claimLockUpTime,omitempty"`
	PenaltyPeriod     uint64     `json:"penaltyPeriod,omitempty"`
	PenaltyBps        uint32     `json:"penaltyBps,omitempty"`
}

// PoolConfig is immutable once a pool is deployed.
type PoolConfig struct {
	StakeToken      string         `json:"stakeToken"`
	RewardToken     string         `json:"rewardToken"`
	AssetKind       AssetKind      `json:"assetKind"`
	StartTime       uint64         `json:"startTime"`
	EndTime         uint64         `json:"endTime"`
	RewardPerSecond *big.Int       `json:"rewardPerSecond"`
	Policy          WithdrawPolicy `json:"policy"`
}

// ValidateTokens checks the request-time invariants: both asset identifiers
// must be set and the emission rate positive. Schedule checks happen at
// deploy time because wall-clock time moves between request and deploy.
func (c PoolConfig) ValidateTokens() error {
	if c.StakeToken == "" || c.RewardToken == "" {
		return ErrInvalidTokenAddress
	}
	if c.RewardPerSecond == nil || c.RewardPerSecond.Sign() <= 0 {
		return ErrInvalidRewardRate
	}
	return nil
}

// ValidateSchedule re-checks the timing parameters against the current time.
// Lockup and penalty boundaries must fall strictly inside the staking window;
// zero lockup values mean the gate is disabled.
func (c PoolConfig) ValidateSchedule(now uint64) error {
	if c.StartTime < now {
		return ErrInvalidStartTime
	}
	if c.EndTime <= c.StartTime {
		return ErrInvalidStakingPeriod
	}
	switch c.Policy.Kind {
	case PolicyLockUp:
		for _, ts := range []uint64{c.Policy.UnstakeLockUpTime, c.Policy.ClaimLockUpTime} {
			if ts == 0 {
				continue
			}
			if ts <= c.StartTime || ts >= c.EndTime {
				return ErrInvalidLockUpTime
			}
		}
	case PolicyPenalty:
		if c.Policy.PenaltyPeriod == 0 || c.StartTime+c.Policy.PenaltyPeriod >= c.EndTime {
			return ErrInvalidLockUpTime
		}
		if c.Policy.PenaltyBps > 10_000 {
			return ErrInvalidLockUpTime
		}
	}
	return nil
}

// TotalReward returns the funding required to run the pool for its whole
// window at the configured rate.
func (c PoolConfig) TotalReward() *big.Int {
	if c.RewardPerSecond == nil || c.EndTime <= c.StartTime {
		return big.NewInt(0)
	}
	duration := new(big.Int).SetUint64(c.EndTime - c.StartTime)
	return duration.Mul(duration, c.RewardPerSecond)
}

// Phase describes where a pool sits in its lifetime.
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseActive
	PhaseEnded
)

// String implements fmt.Stringer for logs and API payloads.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "not_started"
	}
}

// Pool bundles the immutable config with the mutable accrual state. The
// accumulated reward per unit is scaled by PrecisionFactor and never
// decreases; LastRefresh is clamped to EndTime.
type Pool struct {
	ID               [32]byte   `json:"id"`
	Vault            [20]byte   `json:"vault"`
	Config           PoolConfig `json:"config"`
	TotalStaked      *big.Int   `json:"totalStaked"`
	AccRewardPerUnit *big.Int   `json:"accRewardPerUnit"`
	LastRefresh      uint64     `json:"lastRefresh"`
	TotalRewardPaid  *big.Int   `json:"totalRewardPaid"`
}

// Phase reports the pool lifecycle phase at the supplied time.
func (p *Pool) Phase(now uint64) Phase {
	switch {
	case now < p.Config.StartTime:
		return PhaseNotStarted
	case now >= p.Config.EndTime:
		return PhaseEnded
	default:
		return PhaseActive
	}
}

// Clone returns a deep copy so callers can hand pools across boundaries
// without aliasing engine state.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TotalStaked = cloneBigInt(p.TotalStaked)
	clone.AccRewardPerUnit = cloneBigInt(p.AccRewardPerUnit)
	clone.TotalRewardPaid = cloneBigInt(p.TotalRewardPaid)
	if p.Config.RewardPerSecond != nil {
		clone.Config.RewardPerSecond = new(big.Int).Set(p.Config.RewardPerSecond)
	}
	return &clone
}

// Account is the per-pool, per-participant stake ledger entry, created
// lazily on first deposit. RewardDebt snapshots weight × accRewardPerUnit at
// the last settlement; Pending is reward settled but not yet claimed.
type Account struct {
	Weight        *big.Int `json:"weight"`
	RewardDebt    *big.Int `json:"rewardDebt"`
	Pending       *big.Int `json:"pending"`
	Claimed       *big.Int `json:"claimed"`
	LastDepositAt uint64   `json:"lastDepositAt,omitempty"`
	StakedItems   []uint64 `json:"stakedItems,omitempty"`
}

func newAccount() *Account {
	return &Account{
		Weight:     big.NewInt(0),
		RewardDebt: big.NewInt(0),
		Pending:    big.NewInt(0),
		Claimed:    big.NewInt(0),
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Weight = cloneBigInt(a.Weight)
	clone.RewardDebt = cloneBigInt(a.RewardDebt)
	clone.Pending = cloneBigInt(a.Pending)
	clone.Claimed = cloneBigInt(a.Claimed)
	clone.StakedItems = append([]uint64(nil), a.StakedItems...)
	return &clone
}

func (a *Account) normalize() {
	if a.Weight == nil {
		a.Weight = big.NewInt(0)
	}
	if a.RewardDebt == nil {
		a.RewardDebt = big.NewInt(0)
	}
	if a.Pending == nil {
		a.Pending = big.NewInt(0)
	}
	if a.Claimed == nil {
		a.Claimed = big.NewInt(0)
	}
}

// holdsItems reports whether every id is currently staked by this account.
func (a *Account) holdsItems(ids []uint64) bool {
	staked := make(map[uint64]struct{}, len(a.StakedItems))
	for _, id := range a.StakedItems {
		staked[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := staked[id]; !ok {
			return false
		}
	}
	return true
}

func (a *Account) addItems(ids []uint64) {
	a.StakedItems = append(a.StakedItems, ids...)
	sort.Slice(a.StakedItems, func(i, j int) bool { return a.StakedItems[i] < a.StakedItems[j] })
}

func (a *Account) removeItems(ids []uint64) {
	drop := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := a.StakedItems[:0]
	for _, id := range a.StakedItems {
		if _, ok := drop[id]; ok {
			delete(drop, id)
			continue
		}
		kept = append(kept, id)
	}
	a.StakedItems = kept
}

// Selection names what a participant moves in or out of a pool: a fungible
// amount for amount-weighted pools, or a set of item ids for count-weighted
// pools. Exactly one side is consulted, chosen by the pool's asset kind.
type Selection struct {
	Amount  *big.Int `json:"amount,omitempty"`
	ItemIDs []uint64 `json:"itemIds,omitempty"`
}

// WeightFor converts the selection to a stake weight under the given asset
// kind. Invalid selections (non-positive amount, empty or duplicated id set)
// return ErrInvalidAmount.
func (s Selection) WeightFor(kind AssetKind) (*big.Int, error) {
	switch kind {
	case AssetItems:
		if len(s.ItemIDs) == 0 {
			return nil, ErrInvalidAmount
		}
		seen := make(map[uint64]struct{}, len(s.ItemIDs))
		for _, id := range s.ItemIDs {
			if _, dup := seen[id]; dup {
				return nil, ErrInvalidAmount
			}
			seen[id] = struct{}{}
		}
		return big.NewInt(int64(len(s.ItemIDs))), nil
	default:
		if s.Amount == nil || s.Amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		return new(big.Int).Set(s.Amount), nil
	}
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
