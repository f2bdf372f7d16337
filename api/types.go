package api

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakeforge/native/factory"
	"stakeforge/native/stakepool"
)

// Wire representations. Addresses are 0x-prefixed hex, pool ids are 32-byte
// hex strings, and token amounts travel as decimal strings so precision never
// depends on JSON number handling.

type policyPayload struct {
	Kind              string `json:"kind"`
	UnstakeLockUpTime uint64 `json:"unstakeLockUpTime,omitempty"`
	ClaimLockUpTime   uint64 `json:"claimLockUpTime,omitempty"`
	PenaltyPeriod     uint64 `json:"penaltyPeriod,omitempty"`
	PenaltyBps        uint32 `json:"penaltyBps,omitempty"`
}

type poolConfigPayload struct {
	StakeToken      string        `json:"stakeToken"`
	RewardToken     string        `json:"rewardToken"`
	AssetKind       string        `json:"assetKind"`
	StartTime       uint64        `json:"startTime"`
	EndTime         uint64        `json:"endTime"`
	RewardPerSecond string        `json:"rewardPerSecond"`
	Policy          policyPayload `json:"policy"`
}

type submitRequestPayload struct {
	Proposer string            `json:"proposer"`
	Tag      string            `json:"tag,omitempty"`
	Config   poolConfigPayload `json:"config"`
}

type actionPayload struct {
	Caller string `json:"caller"`
}

type stakePayload struct {
	Caller  string   `json:"caller"`
	Amount  string   `json:"amount,omitempty"`
	ItemIDs []uint64 `json:"itemIds,omitempty"`
}

type requestView struct {
	ID          uint64            `json:"id"`
	Proposer    string            `json:"proposer"`
	Tag         string            `json:"tag"`
	Status      string            `json:"status"`
	SubmittedAt uint64            `json:"submittedAt"`
	UpdatedAt   uint64            `json:"updatedAt"`
	PoolID      string            `json:"poolId,omitempty"`
	Config      poolConfigPayload `json:"config"`
}

type poolView struct {
	ID              string            `json:"id"`
	Vault           string            `json:"vault"`
	Phase           string            `json:"phase"`
	TotalStaked     string            `json:"totalStaked"`
	TotalRewardPaid string            `json:"totalRewardPaid"`
	Config          poolConfigPayload `json:"config"`
}

type accountView struct {
	Weight        string   `json:"weight"`
	Pending       string   `json:"pending"`
	Claimed       string   `json:"claimed"`
	LastDepositAt uint64   `json:"lastDepositAt"`
	StakedItems   []uint64 `json:"stakedItems,omitempty"`
}

type pendingView struct {
	Pending string `json:"pending"`
}

type submitResponse struct {
	ID uint64 `json:"id"`
}

type deployResponse struct {
	PoolID string `json:"poolId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func parseAddress(raw string) ([20]byte, error) {
	if !common.IsHexAddress(raw) {
		return [20]byte{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func parsePoolID(raw string) ([32]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != 32 {
		return [32]byte{}, fmt.Errorf("invalid pool id %q", raw)
	}
	var id [32]byte
	copy(id[:], decoded)
	return id, nil
}

func parseTag(raw string) ([32]byte, error) {
	var tag [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return tag, nil
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) > 32 {
		return tag, fmt.Errorf("invalid tag %q", raw)
	}
	copy(tag[:], decoded)
	return tag, nil
}

func parseAmount(raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func assetKindFromWire(raw string) (stakepool.AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "fungible":
		return stakepool.AssetFungible, nil
	case "items":
		return stakepool.AssetItems, nil
	default:
		return 0, fmt.Errorf("invalid asset kind %q", raw)
	}
}

func assetKindToWire(kind stakepool.AssetKind) string {
	if kind == stakepool.AssetItems {
		return "items"
	}
	return "fungible"
}

func policyKindFromWire(raw string) (stakepool.PolicyKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return stakepool.PolicyNone, nil
	case "lockup":
		return stakepool.PolicyLockUp, nil
	case "penalty":
		return stakepool.PolicyPenalty, nil
	default:
		return 0, fmt.Errorf("invalid policy kind %q", raw)
	}
}

func policyKindToWire(kind stakepool.PolicyKind) string {
	switch kind {
	case stakepool.PolicyLockUp:
		return "lockup"
	case stakepool.PolicyPenalty:
		return "penalty"
	default:
		return "none"
	}
}

func (p poolConfigPayload) toConfig() (stakepool.PoolConfig, error) {
	kind, err := assetKindFromWire(p.AssetKind)
	if err != nil {
		return stakepool.PoolConfig{}, err
	}
	policyKind, err := policyKindFromWire(p.Policy.Kind)
	if err != nil {
		return stakepool.PoolConfig{}, err
	}
	rate, err := parseAmount(p.RewardPerSecond)
	if err != nil {
		return stakepool.PoolConfig{}, err
	}
	return stakepool.PoolConfig{
		StakeToken:      p.StakeToken,
		RewardToken:     p.RewardToken,
		AssetKind:       kind,
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		RewardPerSecond: rate,
		Policy: stakepool.WithdrawPolicy{
			Kind:              policyKind,
			UnstakeLockUpTime: p.Policy.UnstakeLockUpTime,
			ClaimLockUpTime:   p.Policy.ClaimLockUpTime,
			PenaltyPeriod:     p.Policy.PenaltyPeriod,
			PenaltyBps:        p.Policy.PenaltyBps,
		},
	}, nil
}

func configToWire(cfg stakepool.PoolConfig) poolConfigPayload {
	rate := "0"
	if cfg.RewardPerSecond != nil {
		rate = cfg.RewardPerSecond.String()
	}
	return poolConfigPayload{
		StakeToken:      cfg.StakeToken,
		RewardToken:     cfg.RewardToken,
		AssetKind:       assetKindToWire(cfg.AssetKind),
		StartTime:       cfg.StartTime,
		EndTime:         cfg.EndTime,
		RewardPerSecond: rate,
		Policy: policyPayload{
			Kind:              policyKindToWire(cfg.Policy.Kind),
			UnstakeLockUpTime: cfg.Policy.UnstakeLockUpTime,
			ClaimLockUpTime:   cfg.Policy.ClaimLockUpTime,
			PenaltyPeriod:     cfg.Policy.PenaltyPeriod,
			PenaltyBps:        cfg.Policy.PenaltyBps,
		},
	}
}

func requestToWire(r *factory.DeploymentRequest) requestView {
	view := requestView{
		ID:          r.ID,
		Proposer:    common.Address(r.Proposer).Hex(),
		Tag:         "0x" + hex.EncodeToString(r.MetadataTag[:]),
		Status:      r.Status.StatusString(),
		SubmittedAt: r.SubmittedAt,
		UpdatedAt:   r.UpdatedAt,
		Config:      configToWire(r.Config),
	}
	if r.Status == factory.RequestStatusDeployed {
		view.PoolID = "0x" + hex.EncodeToString(r.PoolID[:])
	}
	return view
}

func poolToWire(p *stakepool.Pool, now uint64) poolView {
	return poolView{
		ID:              "0x" + hex.EncodeToString(p.ID[:]),
		Vault:           common.Address(p.Vault).Hex(),
		Phase:           p.Phase(now).String(),
		TotalStaked:     p.TotalStaked.String(),
		TotalRewardPaid: p.TotalRewardPaid.String(),
		Config:          configToWire(p.Config),
	}
}

func accountToWire(a *stakepool.Account) accountView {
	return accountView{
		Weight:        a.Weight.String(),
		Pending:       a.Pending.String(),
		Claimed:       a.Claimed.String(),
		LastDepositAt: a.LastDepositAt,
		StakedItems:   a.StakedItems,
	}
}
