package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"stakeforge/native/factory"
	"stakeforge/native/stakepool"
	"stakeforge/storage"
)

// Key layout. Requests and the pool index are append-only sequences with an
// explicit count key; pools and accounts are addressed records.
var (
	keyRequestCount = []byte("factory/request-count")
	keyPoolCount    = []byte("factory/pool-count")
)

func requestKey(id uint64) []byte {
	key := make([]byte, 0, 24)
	key = append(key, []byte("factory/request/")...)
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], id)
	return append(key, seq[:]...)
}

func poolIndexKey(seq uint64) []byte {
	key := make([]byte, 0, 21)
	key = append(key, []byte("factory/pool/")...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}

func poolKey(id [32]byte) []byte {
	return append([]byte("stakepool/pool/"), id[:]...)
}

func accountKey(poolID [32]byte, addr [20]byte) []byte {
	key := append([]byte("stakepool/account/"), poolID[:]...)
	return append(key, addr[:]...)
}

// Manager persists engine records as JSON documents in a key-value store. It
// serves as the state backend for both the pool and factory engines; the
// hosting node serializes access, so the manager itself holds no lock.
type Manager struct {
	db storage.Database
}

// NewManager wraps the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) getJSON(key []byte, out any) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

func (m *Manager) counter(key []byte) (uint64, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: corrupt counter %q", key)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (m *Manager) setCounter(key []byte, value uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return m.db.Put(key, buf[:])
}

// PoolGet loads a pool record.
func (m *Manager) PoolGet(id [32]byte) (*stakepool.Pool, bool, error) {
	pool := new(stakepool.Pool)
	ok, err := m.getJSON(poolKey(id), pool)
	if err != nil || !ok {
		return nil, false, err
	}
	return pool, true, nil
}

// PoolPut stores a pool record.
func (m *Manager) PoolPut(pool *stakepool.Pool) error {
	return m.putJSON(poolKey(pool.ID), pool)
}

// AccountGet loads a participant's ledger entry for a pool.
func (m *Manager) AccountGet(poolID [32]byte, addr [20]byte) (*stakepool.Account, bool, error) {
	account := new(stakepool.Account)
	ok, err := m.getJSON(accountKey(poolID, addr), account)
	if err != nil || !ok {
		return nil, false, err
	}
	return account, true, nil
}

// AccountPut stores a participant's ledger entry for a pool.
func (m *Manager) AccountPut(poolID [32]byte, addr [20]byte, account *stakepool.Account) error {
	return m.putJSON(accountKey(poolID, addr), account)
}

// RequestCount reports how many deployment requests exist.
func (m *Manager) RequestCount() (uint64, error) {
	return m.counter(keyRequestCount)
}

// RequestGet loads one deployment request by sequence id.
func (m *Manager) RequestGet(id uint64) (*factory.DeploymentRequest, bool, error) {
	request := new(factory.DeploymentRequest)
	ok, err := m.getJSON(requestKey(id), request)
	if err != nil || !ok {
		return nil, false, err
	}
	return request, true, nil
}

// RequestAppend assigns the next sequence id and stores the request under it.
func (m *Manager) RequestAppend(request *factory.DeploymentRequest) (uint64, error) {
	id, err := m.counter(keyRequestCount)
	if err != nil {
		return 0, err
	}
	stored := request.Clone()
	stored.ID = id
	if err := m.putJSON(requestKey(id), stored); err != nil {
		return 0, err
	}
	if err := m.setCounter(keyRequestCount, id+1); err != nil {
		return 0, err
	}
	return id, nil
}

// RequestPut overwrites an existing request record.
func (m *Manager) RequestPut(request *factory.DeploymentRequest) error {
	count, err := m.counter(keyRequestCount)
	if err != nil {
		return err
	}
	if request.ID >= count {
		return fmt.Errorf("state: request %d out of range", request.ID)
	}
	return m.putJSON(requestKey(request.ID), request)
}

// PoolAppend records a deployed pool id in the deployment-order index.
func (m *Manager) PoolAppend(id [32]byte) error {
	seq, err := m.counter(keyPoolCount)
	if err != nil {
		return err
	}
	if err := m.db.Put(poolIndexKey(seq), id[:]); err != nil {
		return err
	}
	return m.setCounter(keyPoolCount, seq+1)
}

// PoolList returns every deployed pool id in deployment order.
func (m *Manager) PoolList() ([][32]byte, error) {
	count, err := m.counter(keyPoolCount)
	if err != nil {
		return nil, err
	}
	out := make([][32]byte, 0, count)
	for seq := uint64(0); seq < count; seq++ {
		raw, err := m.db.Get(poolIndexKey(seq))
		if err != nil {
			return nil, err
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("state: corrupt pool index entry %d", seq)
		}
		var id [32]byte
		copy(id[:], raw)
		out = append(out, id)
	}
	return out, nil
}
