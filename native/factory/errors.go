package factory

import "errors"

var (
	ErrInvalidID            = errors.New("factory: invalid request id")
	ErrInvalidRequestStatus = errors.New("factory: invalid request status")
	ErrInvalidCaller        = errors.New("factory: caller is not the proposer")
	ErrNotAuthorized        = errors.New("factory: caller is not the approver")

	errStateNotConfigured    = errors.New("factory: state not configured")
	errDeployerNotConfigured = errors.New("factory: pool deployer not configured")
	errLedgerNotConfigured   = errors.New("factory: ledger not configured")
)
