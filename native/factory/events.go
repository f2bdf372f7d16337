package factory

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strconv"

	"stakeforge/core/events"
)

const (
	// EventTypeRequestSubmitted is emitted when a new deployment request
	// enters the registry. It carries the full config payload so observers
	// can reconstruct the proposal without re-reading storage.
	EventTypeRequestSubmitted = "factory.request_submitted"
	// EventTypeRequestStatusChanged is emitted on every lifecycle
	// transition after submission.
	EventTypeRequestStatusChanged = "factory.request_status_changed"
	// EventTypePoolDeployed is emitted when an approved request produces a
	// live pool.
	EventTypePoolDeployed = "factory.pool_deployed"
)

func newSubmittedEvent(r *DeploymentRequest) *events.Event {
	attrs := map[string]string{
		"id":       strconv.FormatUint(r.ID, 10),
		"proposer": hex.EncodeToString(r.Proposer[:]),
		"status":   r.Status.StatusString(),
		"tag":      hex.EncodeToString(r.MetadataTag[:]),
	}
	if payload, err := json.Marshal(r.Config); err == nil {
		attrs["config"] = string(payload)
	}
	return &events.Event{Type: EventTypeRequestSubmitted, Attributes: attrs}
}

func newStatusChangedEvent(r *DeploymentRequest) *events.Event {
	return &events.Event{
		Type: EventTypeRequestStatusChanged,
		Attributes: map[string]string{
			"id":     strconv.FormatUint(r.ID, 10),
			"status": r.Status.StatusString(),
		},
	}
}

func newPoolDeployedEvent(r *DeploymentRequest, funding *big.Int) *events.Event {
	attrs := map[string]string{
		"id":       strconv.FormatUint(r.ID, 10),
		"pool":     hex.EncodeToString(r.PoolID[:]),
		"proposer": hex.EncodeToString(r.Proposer[:]),
	}
	if funding != nil {
		attrs["funding"] = funding.String()
	}
	return &events.Event{Type: EventTypePoolDeployed, Attributes: attrs}
}
