package stakepool

import (
	"math/big"
	"time"

	"stakeforge/core/events"
	"stakeforge/native/assets"
)

type engineState interface {
	PoolGet(id [32]byte) (*Pool, bool, error)
	PoolPut(*Pool) error
	AccountGet(poolID [32]byte, addr [20]byte) (*Account, bool, error)
	AccountPut(poolID [32]byte, addr [20]byte, account *Account) error
}

// PenaltyFn computes the reward deduction applied when a participant exits or
// claims inside the penalty window. The deduction schedule is deliberately
// pluggable; the default takes a flat PenaltyBps share of the settled reward.
type PenaltyFn func(policy WithdrawPolicy, pending *big.Int, now, lastDeposit uint64) *big.Int

// FlatPenalty is the default deduction schedule: PenaltyBps basis points of
// the settled reward while inside the window, nothing afterwards.
func FlatPenalty(policy WithdrawPolicy, pending *big.Int, now, lastDeposit uint64) *big.Int {
	if pending == nil || pending.Sign() <= 0 {
		return big.NewInt(0)
	}
	if now >= lastDeposit+policy.PenaltyPeriod {
		return big.NewInt(0)
	}
	cut := new(big.Int).Mul(pending, big.NewInt(int64(policy.PenaltyBps)))
	return cut.Quo(cut, big.NewInt(10_000))
}

// Engine executes pool operations over the state backend. It performs no
// locking of its own: the hosting node serializes every externally observable
// operation, matching the all-or-nothing semantics the accrual math assumes.
type Engine struct {
	state     engineState
	ledger    assets.Ledger
	emitter   events.Emitter
	nowFn     func() uint64
	penaltyFn PenaltyFn
}

// NewEngine constructs a pool engine with no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		nowFn:     func() uint64 { return uint64(time.Now().Unix()) },
		penaltyFn: FlatPenalty,
	}
}

// SetState wires the persistence backend.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the transferable-asset collaborator.
func (e *Engine) SetLedger(ledger assets.Ledger) { e.ledger = ledger }

// SetEmitter configures event emission. Nil restores the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock, primarily for deterministic tests. Nil
// restores the wall clock.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

// SetPenaltyFn overrides the penalty deduction schedule. Nil restores the
// flat-bps default.
func (e *Engine) SetPenaltyFn(fn PenaltyFn) {
	if fn == nil {
		e.penaltyFn = FlatPenalty
		return
	}
	e.penaltyFn = fn
}

func (e *Engine) emit(evt *events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if e.ledger == nil {
		return errLedgerNotConfigured
	}
	return nil
}

func (e *Engine) loadPool(id [32]byte) (*Pool, error) {
	pool, ok, err := e.state.PoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

func (e *Engine) loadAccount(poolID [32]byte, addr [20]byte) (*Account, bool, error) {
	account, ok, err := e.state.AccountGet(poolID, addr)
	if err != nil {
		return nil, false, err
	}
	if !ok || account == nil {
		return newAccount(), false, nil
	}
	account.normalize()
	return account, true, nil
}

// CreatePool registers a freshly deployed pool. The factory engine is the
// only caller; it has already collected the reward funding into the vault.
func (e *Engine) CreatePool(id [32]byte, vault [20]byte, cfg PoolConfig) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	if err := cfg.ValidateTokens(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.PoolGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrPoolExists
	}
	pool := &Pool{
		ID:               id,
		Vault:            vault,
		Config:           cfg,
		TotalStaked:      big.NewInt(0),
		AccRewardPerUnit: big.NewInt(0),
		LastRefresh:      cfg.StartTime,
		TotalRewardPaid:  big.NewInt(0),
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// Stake deposits the selection into the pool for the caller. Rejected outside
// the active window; the first deposit creates the participant account.
func (e *Engine) Stake(poolID [32]byte, caller [20]byte, sel Selection) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	now := e.now()
	switch pool.Phase(now) {
	case PhaseNotStarted:
		return ErrPoolNotStarted
	case PhaseEnded:
		return ErrPoolHasEnded
	}
	weight, err := sel.WeightFor(pool.Config.AssetKind)
	if err != nil {
		return err
	}
	account, _, err := e.loadAccount(poolID, caller)
	if err != nil {
		return err
	}

	refresh(pool, now)
	settle(pool, account)
	account.Weight.Add(account.Weight, weight)
	pool.TotalStaked.Add(pool.TotalStaked, weight)
	stampDebt(pool, account)
	account.LastDepositAt = now
	if pool.Config.AssetKind == AssetItems {
		account.addItems(sel.ItemIDs)
	}

	if err := e.transferIn(pool, caller, sel, weight); err != nil {
		return err
	}
	if err := e.state.AccountPut(poolID, caller, account); err != nil {
		return err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return err
	}
	e.emit(newStakedEvent(poolID, caller, weight, sel.ItemIDs))
	return nil
}

// Unstake withdraws the selection. The lockup policy gates on the unstake
// timestamp; the penalty policy always permits exit but deducts from the
// settled reward while inside the penalty window.
func (e *Engine) Unstake(poolID [32]byte, caller [20]byte, sel Selection) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	weight, err := sel.WeightFor(pool.Config.AssetKind)
	if err != nil {
		return err
	}
	account, ok, err := e.loadAccount(poolID, caller)
	if err != nil {
		return err
	}
	if !ok || account.Weight.Cmp(weight) < 0 {
		return ErrInsufficientAmount
	}
	if pool.Config.AssetKind == AssetItems && !account.holdsItems(sel.ItemIDs) {
		return ErrInsufficientAmount
	}
	now := e.now()
	if pool.Config.Policy.Kind == PolicyLockUp {
		if ts := pool.Config.Policy.UnstakeLockUpTime; ts != 0 && now < ts {
			return ErrTokensInLockUp
		}
	}

	refresh(pool, now)
	settle(pool, account)
	if pool.Config.Policy.Kind == PolicyPenalty {
		forfeit := e.penaltyFn(pool.Config.Policy, account.Pending, now, account.LastDepositAt)
		if forfeit != nil && forfeit.Sign() > 0 {
			account.Pending.Sub(account.Pending, forfeit)
		}
	}
	account.Weight.Sub(account.Weight, weight)
	pool.TotalStaked.Sub(pool.TotalStaked, weight)
	stampDebt(pool, account)
	if pool.Config.AssetKind == AssetItems {
		account.removeItems(sel.ItemIDs)
	}

	if err := e.transferOut(pool, caller, sel, weight); err != nil {
		return err
	}
	if err := e.state.AccountPut(poolID, caller, account); err != nil {
		return err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return err
	}
	e.emit(newUnstakedEvent(poolID, caller, weight, sel.ItemIDs))
	return nil
}

// Claim pays out the caller's settled reward from the pool vault.
func (e *Engine) Claim(poolID [32]byte, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	account, ok, err := e.loadAccount(poolID, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNothingToClaim
	}
	now := e.now()
	if pool.Config.Policy.Kind == PolicyLockUp {
		if ts := pool.Config.Policy.ClaimLockUpTime; ts != 0 && now < ts {
			return ErrTokensInLockUp
		}
	}

	refresh(pool, now)
	settle(pool, account)
	forfeited := big.NewInt(0)
	if pool.Config.Policy.Kind == PolicyPenalty {
		if cut := e.penaltyFn(pool.Config.Policy, account.Pending, now, account.LastDepositAt); cut != nil && cut.Sign() > 0 {
			forfeited = cut
			account.Pending.Sub(account.Pending, cut)
		}
	}
	if account.Pending.Sign() == 0 {
		return ErrNothingToClaim
	}
	amount := new(big.Int).Set(account.Pending)
	account.Claimed.Add(account.Claimed, amount)
	account.Pending = big.NewInt(0)
	stampDebt(pool, account)
	pool.TotalRewardPaid.Add(pool.TotalRewardPaid, amount)

	if err := e.ledger.Transfer(pool.Config.RewardToken, pool.Vault, caller, amount); err != nil {
		return err
	}
	if err := e.state.AccountPut(poolID, caller, account); err != nil {
		return err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return err
	}
	e.emit(newClaimedEvent(poolID, caller, amount, forfeited))
	return nil
}

// PendingRewards is a pure query: the reward the participant could claim at
// this instant, before any penalty deduction. Repeated calls at the same
// timestamp return identical values.
func (e *Engine) PendingRewards(poolID [32]byte, participant [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	account, ok, err := e.loadAccount(poolID, participant)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return pendingReward(pool, account, e.now()), nil
}

// GetPool returns a snapshot of the pool.
func (e *Engine) GetPool(poolID [32]byte) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// GetAccount returns a snapshot of the participant's ledger entry. A
// participant that never deposited reports zeroes.
func (e *Engine) GetAccount(poolID [32]byte, participant [20]byte) (*Account, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	if _, err := e.loadPool(poolID); err != nil {
		return nil, err
	}
	account, _, err := e.loadAccount(poolID, participant)
	if err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

func (e *Engine) transferIn(pool *Pool, from [20]byte, sel Selection, weight *big.Int) error {
	if pool.Config.AssetKind == AssetItems {
		return e.ledger.TransferItems(pool.Config.StakeToken, from, pool.Vault, sel.ItemIDs)
	}
	return e.ledger.Transfer(pool.Config.StakeToken, from, pool.Vault, weight)
}

func (e *Engine) transferOut(pool *Pool, to [20]byte, sel Selection, weight *big.Int) error {
	if pool.Config.AssetKind == AssetItems {
		return e.ledger.TransferItems(pool.Config.StakeToken, pool.Vault, to, sel.ItemIDs)
	}
	return e.ledger.Transfer(pool.Config.StakeToken, pool.Vault, to, weight)
}
