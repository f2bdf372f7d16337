package factory

import (
	"encoding/binary"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stakeforge/core/events"
	"stakeforge/native/assets"
	"stakeforge/native/stakepool"
)

type registryState interface {
	RequestCount() (uint64, error)
	RequestGet(id uint64) (*DeploymentRequest, bool, error)
	RequestAppend(r *DeploymentRequest) (uint64, error)
	RequestPut(r *DeploymentRequest) error
	PoolAppend(id [32]byte) error
	PoolList() ([][32]byte, error)
}

// poolDeployer is the slice of the stakepool engine the factory needs to
// instantiate a pool from an approved request.
type poolDeployer interface {
	CreatePool(id [32]byte, vault [20]byte, cfg stakepool.PoolConfig) (*stakepool.Pool, error)
}

// Engine drives the deployment-request lifecycle: any caller may submit a
// request, the configured approver accepts or rejects it, and the original
// proposer deploys (or cancels) once approved. Deployment re-validates the
// schedule and collects the full reward funding up front, because parameters
// can go stale between approval and deploy.
type Engine struct {
	state    registryState
	deployer poolDeployer
	ledger   assets.Ledger
	emitter  events.Emitter
	nowFn    func() uint64
	approver [20]byte
}

// NewEngine constructs a factory engine with no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState wires the registry persistence backend.
func (e *Engine) SetState(state registryState) { e.state = state }

// SetDeployer wires the pool engine used to instantiate deployed pools.
func (e *Engine) SetDeployer(deployer poolDeployer) { e.deployer = deployer }

// SetLedger wires the asset collaborator used to collect reward funding.
func (e *Engine) SetLedger(ledger assets.Ledger) { e.ledger = ledger }

// SetApprover configures the address holding the approver role.
func (e *Engine) SetApprover(addr [20]byte) { e.approver = addr }

// SetEmitter configures event emission. Nil restores the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used for deploy-time validation. Nil
// restores the wall clock.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
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

func (e *Engine) loadRequest(id uint64) (*DeploymentRequest, error) {
	request, ok, err := e.state.RequestGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || request == nil {
		return nil, ErrInvalidID
	}
	return request, nil
}

// SubmitRequest validates the asset identifiers and emission rate, appends
// the request in Submitted, and returns its position in the sequence.
func (e *Engine) SubmitRequest(proposer [20]byte, tag [32]byte, cfg stakepool.PoolConfig) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errStateNotConfigured
	}
	if err := cfg.ValidateTokens(); err != nil {
		return 0, err
	}
	now := e.now()
	request := &DeploymentRequest{
		Proposer:    proposer,
		MetadataTag: tag,
		Config:      cfg,
		Status:      RequestStatusSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	id, err := e.state.RequestAppend(request)
	if err != nil {
		return 0, err
	}
	request.ID = id
	e.emit(newSubmittedEvent(request))
	return id, nil
}

// ApproveRequest moves a submitted request to Approved. Approver role only.
func (e *Engine) ApproveRequest(caller [20]byte, id uint64) error {
	return e.review(caller, id, RequestStatusApproved)
}

// DenyRequest moves a submitted request to Denied. Approver role only.
func (e *Engine) DenyRequest(caller [20]byte, id uint64) error {
	return e.review(caller, id, RequestStatusDenied)
}

func (e *Engine) review(caller [20]byte, id uint64, status RequestStatus) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if caller != e.approver {
		return ErrNotAuthorized
	}
	request, err := e.loadRequest(id)
	if err != nil {
		return err
	}
	if request.Status != RequestStatusSubmitted {
		return ErrInvalidRequestStatus
	}
	request.Status = status
	request.UpdatedAt = e.now()
	if err := e.state.RequestPut(request); err != nil {
		return err
	}
	e.emit(newStatusChangedEvent(request))
	return nil
}

// CancelRequest lets the proposer withdraw an approved request before
// deployment. Submitted requests cannot be canceled; they are denied by the
// approver instead.
func (e *Engine) CancelRequest(caller [20]byte, id uint64) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	request, err := e.loadRequest(id)
	if err != nil {
		return err
	}
	if caller != request.Proposer {
		return ErrInvalidCaller
	}
	if request.Status != RequestStatusApproved {
		return ErrInvalidRequestStatus
	}
	request.Status = RequestStatusCanceled
	request.UpdatedAt = e.now()
	if err := e.state.RequestPut(request); err != nil {
		return err
	}
	e.emit(newStatusChangedEvent(request))
	return nil
}

// Deploy instantiates the pool for an approved request. Only the proposer
// may deploy, the schedule is validated against the current clock, and the
// proposer funds the pool vault with rate × duration of the reward asset
// before the pool goes live.
func (e *Engine) Deploy(caller [20]byte, id uint64) ([32]byte, error) {
	if e == nil || e.state == nil {
		return [32]byte{}, errStateNotConfigured
	}
	if e.deployer == nil {
		return [32]byte{}, errDeployerNotConfigured
	}
	if e.ledger == nil {
		return [32]byte{}, errLedgerNotConfigured
	}
	request, err := e.loadRequest(id)
	if err != nil {
		return [32]byte{}, err
	}
	if caller != request.Proposer {
		return [32]byte{}, ErrInvalidCaller
	}
	if request.Status != RequestStatusApproved {
		return [32]byte{}, ErrInvalidRequestStatus
	}
	now := e.now()
	if err := request.Config.ValidateSchedule(now); err != nil {
		return [32]byte{}, err
	}

	poolID := derivePoolID(request)
	var vault [20]byte
	copy(vault[:], poolID[:20])

	funding := request.Config.TotalReward()
	if err := e.ledger.Transfer(request.Config.RewardToken, request.Proposer, vault, funding); err != nil {
		return [32]byte{}, err
	}
	if _, err := e.deployer.CreatePool(poolID, vault, request.Config); err != nil {
		return [32]byte{}, err
	}

	request.Status = RequestStatusDeployed
	request.PoolID = poolID
	request.UpdatedAt = now
	if err := e.state.RequestPut(request); err != nil {
		return [32]byte{}, err
	}
	if err := e.state.PoolAppend(poolID); err != nil {
		return [32]byte{}, err
	}
	e.emit(newStatusChangedEvent(request))
	e.emit(newPoolDeployedEvent(request, funding))
	return poolID, nil
}

// GetRequest returns a snapshot of one request.
func (e *Engine) GetRequest(id uint64) (*DeploymentRequest, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	request, err := e.loadRequest(id)
	if err != nil {
		return nil, err
	}
	return request.Clone(), nil
}

// GetRequests lists every request in submission order.
func (e *Engine) GetRequests() ([]*DeploymentRequest, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	count, err := e.state.RequestCount()
	if err != nil {
		return nil, err
	}
	out := make([]*DeploymentRequest, 0, count)
	for id := uint64(0); id < count; id++ {
		request, err := e.loadRequest(id)
		if err != nil {
			return nil, err
		}
		out = append(out, request.Clone())
	}
	return out, nil
}

// GetPools lists the ids of every deployed pool in deployment order.
func (e *Engine) GetPools() ([][32]byte, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	return e.state.PoolList()
}

// derivePoolID produces a stable pool identity from the request contents.
// The vault address is the first 20 bytes of this hash.
func derivePoolID(r *DeploymentRequest) [32]byte {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], r.ID)
	return ethcrypto.Keccak256Hash(
		r.Proposer[:],
		[]byte(r.Config.StakeToken),
		[]byte(r.Config.RewardToken),
		seq[:],
	)
}
