package stakepool

import "math/big"

// The accrual core is a share-based accumulator: accRewardPerUnit carries the
// reward owed per unit of stake weight since inception, scaled by
// PrecisionFactor. Every mutation of totalStaked or of a participant's weight
// must be preceded by a refresh and followed by a reward-debt re-stamp, which
// bounds truncation loss to under one precision unit per operation and keeps
// per-participant updates O(1).

// refresh folds the interval since the last refresh into the accumulator.
// Time past EndTime never accrues, and intervals where nothing is staked are
// forfeited: the timestamp still advances so they cannot be rewarded
// retroactively. Calling twice at the same instant is a no-op the second time.
func refresh(p *Pool, now uint64) {
	effective := now
	if effective > p.Config.EndTime {
		effective = p.Config.EndTime
	}
	if effective <= p.LastRefresh {
		return
	}
	if p.TotalStaked.Sign() > 0 {
		p.AccRewardPerUnit.Add(p.AccRewardPerUnit, accrualDelta(p, effective))
	}
	p.LastRefresh = effective
}

// projectedAcc returns what accRewardPerUnit would be after refresh(now),
// without mutating the pool. It backs the read-only pending query.
func projectedAcc(p *Pool, now uint64) *big.Int {
	acc := new(big.Int).Set(p.AccRewardPerUnit)
	effective := now
	if effective > p.Config.EndTime {
		effective = p.Config.EndTime
	}
	if effective > p.LastRefresh && p.TotalStaked.Sign() > 0 {
		acc.Add(acc, accrualDelta(p, effective))
	}
	return acc
}

func accrualDelta(p *Pool, effective uint64) *big.Int {
	elapsed := new(big.Int).SetUint64(effective - p.LastRefresh)
	delta := elapsed.Mul(elapsed, p.Config.RewardPerSecond)
	delta.Mul(delta, PrecisionFactor)
	return delta.Quo(delta, p.TotalStaked)
}

// entitlement computes weight × acc / PrecisionFactor, the gross reward a
// weight has earned under an accumulator value.
func entitlement(weight, acc *big.Int) *big.Int {
	owed := new(big.Int).Mul(weight, acc)
	return owed.Quo(owed, PrecisionFactor)
}

// settle moves the reward accrued since the account's last settlement into
// its pending balance. The pool must already be refreshed.
func settle(p *Pool, a *Account) {
	if a.Weight.Sign() <= 0 {
		return
	}
	earned := entitlement(a.Weight, p.AccRewardPerUnit)
	earned.Sub(earned, a.RewardDebt)
	if earned.Sign() > 0 {
		a.Pending.Add(a.Pending, earned)
	}
}

// stampDebt re-anchors the account's reward debt to the current accumulator,
// so already-settled reward is never counted twice.
func stampDebt(p *Pool, a *Account) {
	a.RewardDebt = entitlement(a.Weight, p.AccRewardPerUnit)
}

// pendingReward is the read-only counterpart of settle+query: settled pending
// plus whatever a hypothetical refresh at now would add.
func pendingReward(p *Pool, a *Account, now uint64) *big.Int {
	if a == nil {
		return big.NewInt(0)
	}
	total := new(big.Int).Set(a.Pending)
	if a.Weight.Sign() > 0 {
		earned := entitlement(a.Weight, projectedAcc(p, now))
		earned.Sub(earned, a.RewardDebt)
		if earned.Sign() > 0 {
			total.Add(total, earned)
		}
	}
	return total
}
