package assets

import (
	"fmt"
	"math/big"
	"sync"
)

type itemKey struct {
	collection string
	id         uint64
}

// MemoryLedger is an in-process Ledger holding fungible balances and discrete
// item ownership. It backs the daemon and the engine tests; a deployment that
// settles against an external chain would substitute its own Ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]map[[20]byte]*big.Int
	items    map[itemKey][20]byte
}

// NewMemoryLedger constructs an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]map[[20]byte]*big.Int),
		items:    make(map[itemKey][20]byte),
	}
}

// Mint credits a fungible balance out of thin air. Used for genesis funding
// and tests.
func (l *MemoryLedger) Mint(token string, owner [20]byte, amount *big.Int) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("assets: mint amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(normalized, owner, amount)
	return nil
}

// MintItem assigns a fresh discrete item to owner.
func (l *MemoryLedger) MintItem(collection string, owner [20]byte, id uint64) error {
	normalized, err := NormalizeToken(collection)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := itemKey{collection: normalized, id: id}
	if _, exists := l.items[key]; exists {
		return ErrDuplicateItem
	}
	l.items[key] = owner
	return nil
}

// Transfer implements the Ledger interface.
func (l *MemoryLedger) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("assets: negative transfer amount")
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balance(normalized, from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	balance.Sub(balance, amount)
	l.credit(normalized, to, amount)
	return nil
}

// TransferItems implements the Ledger interface.
func (l *MemoryLedger) TransferItems(collection string, from, to [20]byte, ids []uint64) error {
	normalized, err := NormalizeToken(collection)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		owner, ok := l.items[itemKey{collection: normalized, id: id}]
		if !ok || owner != from {
			return ErrNotItemOwner
		}
	}
	for _, id := range ids {
		l.items[itemKey{collection: normalized, id: id}] = to
	}
	return nil
}

// BalanceOf implements the Ledger interface.
func (l *MemoryLedger) BalanceOf(token string, owner [20]byte) *big.Int {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return big.NewInt(0)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(normalized, owner))
}

// OwnerOf implements the Ledger interface.
func (l *MemoryLedger) OwnerOf(collection string, id uint64) ([20]byte, bool) {
	normalized, err := NormalizeToken(collection)
	if err != nil {
		return [20]byte{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.items[itemKey{collection: normalized, id: id}]
	return owner, ok
}

func (l *MemoryLedger) balance(token string, owner [20]byte) *big.Int {
	owners, ok := l.balances[token]
	if !ok {
		owners = make(map[[20]byte]*big.Int)
		l.balances[token] = owners
	}
	balance, ok := owners[owner]
	if !ok {
		balance = big.NewInt(0)
		owners[owner] = balance
	}
	return balance
}

func (l *MemoryLedger) credit(token string, owner [20]byte, amount *big.Int) {
	balance := l.balance(token, owner)
	balance.Add(balance, amount)
}
