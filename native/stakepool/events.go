package stakepool

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"stakeforge/core/events"
)

const (
	// EventTypeStaked is emitted when a participant deposits stake.
	EventTypeStaked = "stakepool.staked"
	// EventTypeUnstaked is emitted when a participant withdraws stake.
	EventTypeUnstaked = "stakepool.unstaked"
	// EventTypeClaimed is emitted when a participant is paid reward.
	EventTypeClaimed = "stakepool.claimed"
)

func baseAttributes(poolID [32]byte, participant [20]byte) map[string]string {
	return map[string]string{
		"pool":        hex.EncodeToString(poolID[:]),
		"participant": hex.EncodeToString(participant[:]),
	}
}

func itemsAttribute(ids []uint64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

func newStakedEvent(poolID [32]byte, participant [20]byte, weight *big.Int, ids []uint64) *events.Event {
	attrs := baseAttributes(poolID, participant)
	attrs["weight"] = weight.String()
	if items := itemsAttribute(ids); items != "" {
		attrs["items"] = items
	}
	return &events.Event{Type: EventTypeStaked, Attributes: attrs}
}

func newUnstakedEvent(poolID [32]byte, participant [20]byte, weight *big.Int, ids []uint64) *events.Event {
	attrs := baseAttributes(poolID, participant)
	attrs["weight"] = weight.String()
	if items := itemsAttribute(ids); items != "" {
		attrs["items"] = items
	}
	return &events.Event{Type: EventTypeUnstaked, Attributes: attrs}
}

func newClaimedEvent(poolID [32]byte, participant [20]byte, amount, forfeited *big.Int) *events.Event {
	attrs := baseAttributes(poolID, participant)
	attrs["amount"] = amount.String()
	if forfeited != nil && forfeited.Sign() > 0 {
		attrs["forfeited"] = forfeited.String()
	}
	return &events.Event{Type: EventTypeClaimed, Attributes: attrs}
}
