package core

import (
	"math/big"
	"sync"
	"time"

	"stakeforge/core/events"
	"stakeforge/native/assets"
	"stakeforge/native/factory"
	"stakeforge/native/stakepool"
	"stakeforge/observability"
	"stakeforge/state"
	"stakeforge/storage"
)

// eventBufferLimit bounds the recent-events view served by the API.
const eventBufferLimit = 512

// Node owns the engines and their shared state. The engines are lock-free;
// the node serializes every externally visible operation behind one mutex so
// each operation observes and produces a consistent snapshot.
type Node struct {
	mu       sync.Mutex
	state    *state.Manager
	pools    *stakepool.Engine
	registry *factory.Engine
	ledger   assets.Ledger
	recorder *events.Recorder
}

// NewNode wires both engines over the given database and asset ledger. The
// approver address holds the request-review role.
func NewNode(db storage.Database, ledger assets.Ledger, approver [20]byte) *Node {
	manager := state.NewManager(db)
	recorder := events.NewRecorder(eventBufferLimit)

	poolEngine := stakepool.NewEngine()
	poolEngine.SetState(manager)
	poolEngine.SetLedger(ledger)
	poolEngine.SetEmitter(recorder)

	registry := factory.NewEngine()
	registry.SetState(manager)
	registry.SetDeployer(poolEngine)
	registry.SetLedger(ledger)
	registry.SetApprover(approver)
	registry.SetEmitter(recorder)

	return &Node{
		state:    manager,
		pools:    poolEngine,
		registry: registry,
		ledger:   ledger,
		recorder: recorder,
	}
}

// SetNowFunc overrides the clock of both engines, primarily for tests.
func (n *Node) SetNowFunc(now func() uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pools.SetNowFunc(now)
	n.registry.SetNowFunc(now)
}

// Ledger exposes the asset ledger for genesis funding and balance queries.
func (n *Node) Ledger() assets.Ledger { return n.ledger }

func (n *Node) instrument(op string, fn func() error) error {
	start := time.Now()
	n.mu.Lock()
	err := fn()
	n.mu.Unlock()
	observability.NodeMetrics().Observe(op, err, time.Since(start))
	return err
}

// SubmitRequest files a new deployment request.
func (n *Node) SubmitRequest(proposer [20]byte, tag [32]byte, cfg stakepool.PoolConfig) (uint64, error) {
	var id uint64
	err := n.instrument("submit_request", func() error {
		var inner error
		id, inner = n.registry.SubmitRequest(proposer, tag, cfg)
		return inner
	})
	return id, err
}

// ApproveRequest moves a submitted request to approved.
func (n *Node) ApproveRequest(caller [20]byte, id uint64) error {
	return n.instrument("approve_request", func() error {
		return n.registry.ApproveRequest(caller, id)
	})
}

// DenyRequest moves a submitted request to denied.
func (n *Node) DenyRequest(caller [20]byte, id uint64) error {
	return n.instrument("deny_request", func() error {
		return n.registry.DenyRequest(caller, id)
	})
}

// CancelRequest lets the proposer withdraw an approved request.
func (n *Node) CancelRequest(caller [20]byte, id uint64) error {
	return n.instrument("cancel_request", func() error {
		return n.registry.CancelRequest(caller, id)
	})
}

// DeployPool deploys the pool for an approved request and returns its id.
func (n *Node) DeployPool(caller [20]byte, id uint64) ([32]byte, error) {
	var poolID [32]byte
	err := n.instrument("deploy_pool", func() error {
		var inner error
		poolID, inner = n.registry.Deploy(caller, id)
		return inner
	})
	return poolID, err
}

// Stake deposits the selection into a pool for the caller.
func (n *Node) Stake(poolID [32]byte, caller [20]byte, sel stakepool.Selection) error {
	return n.instrument("stake", func() error {
		return n.pools.Stake(poolID, caller, sel)
	})
}

// Unstake withdraws the selection from a pool for the caller.
func (n *Node) Unstake(poolID [32]byte, caller [20]byte, sel stakepool.Selection) error {
	return n.instrument("unstake", func() error {
		return n.pools.Unstake(poolID, caller, sel)
	})
}

// Claim pays out the caller's settled reward.
func (n *Node) Claim(poolID [32]byte, caller [20]byte) error {
	return n.instrument("claim", func() error {
		return n.pools.Claim(poolID, caller)
	})
}

// PendingRewards reports the claimable reward before penalty deduction.
func (n *Node) PendingRewards(poolID [32]byte, participant [20]byte) (*big.Int, error) {
	var pending *big.Int
	err := n.instrument("pending_rewards", func() error {
		var inner error
		pending, inner = n.pools.PendingRewards(poolID, participant)
		return inner
	})
	return pending, err
}

// GetPool returns a snapshot of one pool.
func (n *Node) GetPool(poolID [32]byte) (*stakepool.Pool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pools.GetPool(poolID)
}

// GetAccount returns a participant's ledger entry for a pool.
func (n *Node) GetAccount(poolID [32]byte, participant [20]byte) (*stakepool.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pools.GetAccount(poolID, participant)
}

// GetRequest returns one deployment request.
func (n *Node) GetRequest(id uint64) (*factory.DeploymentRequest, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.GetRequest(id)
}

// GetRequests lists every deployment request in submission order.
func (n *Node) GetRequests() ([]*factory.DeploymentRequest, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.GetRequests()
}

// GetPools returns a snapshot of every deployed pool in deployment order.
func (n *Node) GetPools() ([]*stakepool.Pool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids, err := n.registry.GetPools()
	if err != nil {
		return nil, err
	}
	out := make([]*stakepool.Pool, 0, len(ids))
	for _, id := range ids {
		pool, err := n.pools.GetPool(id)
		if err != nil {
			return nil, err
		}
		out = append(out, pool)
	}
	return out, nil
}

// RecentEvents returns the buffered engine events, oldest first.
func (n *Node) RecentEvents() []*events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.recorder.Events()
}
