package factory

import (
	"math/big"

	"stakeforge/native/stakepool"
)

// RequestStatus enumerates the deployment-request lifecycle. Denied,
// Deployed, and Canceled are terminal.
type RequestStatus uint8

const (
	// RequestStatusUnspecified marks an uninitialised request and never
	// appears in state.
	RequestStatusUnspecified RequestStatus = iota
	// RequestStatusSubmitted is the entry state of every request.
	RequestStatusSubmitted
	// RequestStatusDenied is set by the approver; terminal.
	RequestStatusDenied
	// RequestStatusApproved allows the proposer to deploy or cancel.
	RequestStatusApproved
	// RequestStatusDeployed records that the pool exists; terminal.
	RequestStatusDeployed
	// RequestStatusCanceled is set by the proposer after approval; terminal.
	RequestStatusCanceled
)

// StatusString provides the textual form used in events and API payloads.
func (s RequestStatus) StatusString() string {
	switch s {
	case RequestStatusSubmitted:
		return "submitted"
	case RequestStatusDenied:
		return "denied"
	case RequestStatusApproved:
		return "approved"
	case RequestStatusDeployed:
		return "deployed"
	case RequestStatusCanceled:
		return "canceled"
	default:
		return "unspecified"
	}
}

// DeploymentRequest is one entry in the registry's append-only sequence. The
// metadata tag is opaque to the factory (deployments typically put an IPFS
// hash there).
type DeploymentRequest struct {
	ID          uint64               `json:"id"`
	Proposer    [20]byte             `json:"proposer"`
	MetadataTag [32]byte             `json:"metadataTag"`
	Config      stakepool.PoolConfig `json:"config"`
	Status      RequestStatus        `json:"status"`
	SubmittedAt uint64               `json:"submittedAt"`
	UpdatedAt   uint64               `json:"updatedAt"`
	PoolID      [32]byte             `json:"poolId,omitempty"`
}

// Clone returns a deep copy of the request.
func (r *DeploymentRequest) Clone() *DeploymentRequest {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Config.RewardPerSecond != nil {
		clone.Config.RewardPerSecond = new(big.Int).Set(r.Config.RewardPerSecond)
	}
	return &clone
}
