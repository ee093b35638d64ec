package ledger

import (
	"errors"
	"sync"
)

var (
	ErrUnknownItem  = errors.New("ledger: unknown item")
	ErrNotCustodian = errors.New("ledger: transfer from non-custodian")
)

// Registry is an in-process non-fungible ledger. Identifiers are assigned
// sequentially starting at 1 and are never reused, including after a burn.
type Registry struct {
	mu     sync.RWMutex
	nextID uint64
	owners map[uint64][20]byte
	uris   map[uint64]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nextID: 1,
		owners: make(map[uint64][20]byte),
		uris:   make(map[uint64]string),
	}
}

// Mint records a new item owned by the recipient and returns its identifier.
func (r *Registry) Mint(to [20]byte, uri string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.owners[id] = to
	r.uris[id] = uri
	return id, nil
}

// TransferCustody moves the item between accounts. The from account must be
// the current custodian.
func (r *Registry) TransferCustody(from, to [20]byte, itemID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[itemID]
	if !ok {
		return ErrUnknownItem
	}
	if owner != from {
		return ErrNotCustodian
	}
	r.owners[itemID] = to
	return nil
}

// Burn destroys the item. Its identifier is retired.
func (r *Registry) Burn(itemID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[itemID]; !ok {
		return ErrUnknownItem
	}
	delete(r.owners, itemID)
	delete(r.uris, itemID)
	return nil
}

// OwnerOf returns the current custodian of the item.
func (r *Registry) OwnerOf(itemID uint64) ([20]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[itemID]
	if !ok {
		return [20]byte{}, ErrUnknownItem
	}
	return owner, nil
}

// URIOf returns the metadata URI recorded at mint time.
func (r *Registry) URIOf(itemID uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uri, ok := r.uris[itemID]
	if !ok {
		return "", ErrUnknownItem
	}
	return uri, nil
}
