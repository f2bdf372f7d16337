package assets

import (
	"errors"
	"math/big"
	"strings"
)

var (
	ErrEmptyToken          = errors.New("assets: empty token identifier")
	ErrInsufficientBalance = errors.New("assets: insufficient balance")
	ErrNotItemOwner        = errors.New("assets: caller does not own item")
	ErrDuplicateItem       = errors.New("assets: duplicate item id")
)

// Ledger is the transferable-asset primitive consumed by the engines. Every
// call either fully succeeds or fully fails with no balance mutation, which
// lets the engines treat a transfer as a single atomic step.
type Ledger interface {
	// Transfer moves a fungible amount between owners.
	Transfer(token string, from, to [20]byte, amount *big.Int) error
	// TransferItems moves discrete items of a collection between owners.
	// All ids must currently belong to from or the call fails whole.
	TransferItems(collection string, from, to [20]byte, ids []uint64) error
	// BalanceOf reports the fungible balance held by owner.
	BalanceOf(token string, owner [20]byte) *big.Int
	// OwnerOf resolves the current owner of a discrete item.
	OwnerOf(collection string, id uint64) ([20]byte, bool)
}

// NormalizeToken canonicalises a token identifier. Identifiers are opaque
// symbols; the only invalid identifier is the empty one.
func NormalizeToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", ErrEmptyToken
	}
	return strings.ToUpper(trimmed), nil
}
