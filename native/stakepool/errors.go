package stakepool

import "errors"

var (
	ErrPoolNotStarted      = errors.New("stakepool: pool not started")
	ErrPoolHasEnded        = errors.New("stakepool: pool has ended")
	ErrTokensInLockUp      = errors.New("stakepool: tokens in lock-up")
	ErrInvalidAmount       = errors.New("stakepool: invalid amount")
	ErrInsufficientAmount  = errors.New("stakepool: insufficient staked amount")
	ErrNothingToClaim      = errors.New("stakepool: nothing to claim")
	ErrInvalidTokenAddress = errors.New("stakepool: invalid token identifier")
	ErrInvalidRewardRate   = errors.New("stakepool: invalid reward rate")
	ErrInvalidStartTime    = errors.New("stakepool: invalid start time")
	ErrInvalidStakingPeriod = errors.New("stakepool: invalid staking period")
	ErrInvalidLockUpTime   = errors.New("stakepool: invalid lock-up time")
	ErrPoolNotFound        = errors.New("stakepool: pool not found")
	ErrPoolExists          = errors.New("stakepool: pool already exists")

	errStateNotConfigured  = errors.New("stakepool: state not configured")
	errLedgerNotConfigured = errors.New("stakepool: ledger not configured")
)
