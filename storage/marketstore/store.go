package marketstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"nftmarket/native/market"
	"nftmarket/storage"
)

const (
	itemPrefix    = "market/items/"
	salePrefix    = "market/sales/"
	auctionPrefix = "market/auctions/"
	counterPrefix = "market/counters/"
	paramsKey     = "market/params"
)

// Store persists marketplace state in a key-value database using RLP
// encoding. It backs the market engine's state interface.
type Store struct {
	db storage.Database
}

// New creates a store on top of the given database.
func New(db storage.Database) *Store {
	return &Store{db: db}
}

// Stored records mirror the domain types with RLP-friendly field types;
// RLP has no signed integer encoding, so timestamps travel as uint64.

type storedItem struct {
	ID     uint64
	Owner  [20]byte
	URI    string
	Status uint8
}

type storedSaleOrder struct {
	Seller    [20]byte
	Initiator [20]byte
	Price     *big.Int
	Status    uint8
}

type storedAuctionOrder struct {
	StartPrice *big.Int
	StartTime  uint64
	CurrentBid *big.Int
	BidCount   uint64
	Seller     [20]byte
	Initiator  [20]byte
	LastBidder [20]byte
	Status     uint8
}

type storedParams struct {
	MintPrice       *big.Int
	AuctionDuration uint64
	MinBidAmount    *big.Int
}

func itemKey(id uint64) []byte    { return idKey(itemPrefix, id) }
func saleKey(id uint64) []byte    { return idKey(salePrefix, id) }
func auctionKey(id uint64) []byte { return idKey(auctionPrefix, id) }

func idKey(prefix string, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)
	return key
}

// ItemPut stores an item record keyed by its identifier.
func (s *Store) ItemPut(item *market.Item) error {
	if item == nil {
		return fmt.Errorf("marketstore: nil item")
	}
	encoded, err := rlp.EncodeToBytes(&storedItem{
		ID:     item.ID,
		Owner:  item.Owner,
		URI:    item.URI,
		Status: uint8(item.Status),
	})
	if err != nil {
		return fmt.Errorf("marketstore: encode item %d: %w", item.ID, err)
	}
	return s.db.Put(itemKey(item.ID), encoded)
}

// ItemGet loads an item record. The second return value reports whether the
// item exists.
func (s *Store) ItemGet(id uint64) (*market.Item, bool) {
	raw, err := s.db.Get(itemKey(id))
	if err != nil {
		return nil, false
	}
	var stored storedItem
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false
	}
	return &market.Item{
		ID:     stored.ID,
		Owner:  stored.Owner,
		URI:    stored.URI,
		Status: market.ItemStatus(stored.Status),
	}, true
}

// Items returns every stored item in ascending identifier order.
func (s *Store) Items() ([]*market.Item, error) {
	var items []*market.Item
	err := s.db.IteratePrefix([]byte(itemPrefix), func(_, value []byte) (bool, error) {
		var stored storedItem
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return false, fmt.Errorf("marketstore: decode item: %w", err)
		}
		items = append(items, &market.Item{
			ID:     stored.ID,
			Owner:  stored.Owner,
			URI:    stored.URI,
			Status: market.ItemStatus(stored.Status),
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SaleOrderPut stores the sale order for the item.
func (s *Store) SaleOrderPut(itemID uint64, order *market.SaleOrder) error {
	if order == nil {
		return fmt.Errorf("marketstore: nil sale order")
	}
	encoded, err := rlp.EncodeToBytes(&storedSaleOrder{
		Seller:    order.Seller,
		Initiator: order.Initiator,
		Price:     order.Price,
		Status:    uint8(order.Status),
	})
	if err != nil {
		return fmt.Errorf("marketstore: encode sale order %d: %w", itemID, err)
	}
	return s.db.Put(saleKey(itemID), encoded)
}

// SaleOrderGet loads the sale order for the item.
func (s *Store) SaleOrderGet(itemID uint64) (*market.SaleOrder, bool) {
	raw, err := s.db.Get(saleKey(itemID))
	if err != nil {
		return nil, false
	}
	var stored storedSaleOrder
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false
	}
	return &market.SaleOrder{
		Seller:    stored.Seller,
		Initiator: stored.Initiator,
		Price:     stored.Price,
		Status:    market.SaleStatus(stored.Status),
	}, true
}

// SaleOrderDelete removes the sale order for the item.
func (s *Store) SaleOrderDelete(itemID uint64) error {
	return s.db.Delete(saleKey(itemID))
}

// AuctionOrderPut stores the auction order for the item.
func (s *Store) AuctionOrderPut(itemID uint64, order *market.AuctionOrder) error {
	if order == nil {
		return fmt.Errorf("marketstore: nil auction order")
	}
	if order.StartTime < 0 {
		return fmt.Errorf("marketstore: negative start time for item %d", itemID)
	}
	encoded, err := rlp.EncodeToBytes(&storedAuctionOrder{
		StartPrice: order.StartPrice,
		StartTime:  uint64(order.StartTime),
		CurrentBid: order.CurrentBid,
		BidCount:   order.BidCount,
		Seller:     order.Seller,
		Initiator:  order.Initiator,
		LastBidder: order.LastBidder,
		Status:     uint8(order.Status),
	})
	if err != nil {
		return fmt.Errorf("marketstore: encode auction order %d: %w", itemID, err)
	}
	return s.db.Put(auctionKey(itemID), encoded)
}

// AuctionOrderGet loads the auction order for the item.
func (s *Store) AuctionOrderGet(itemID uint64) (*market.AuctionOrder, bool) {
	raw, err := s.db.Get(auctionKey(itemID))
	if err != nil {
		return nil, false
	}
	var stored storedAuctionOrder
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false
	}
	return &market.AuctionOrder{
		StartPrice: stored.StartPrice,
		StartTime:  int64(stored.StartTime),
		CurrentBid: stored.CurrentBid,
		BidCount:   stored.BidCount,
		Seller:     stored.Seller,
		Initiator:  stored.Initiator,
		LastBidder: stored.LastBidder,
		Status:     market.AuctionStatus(stored.Status),
	}, true
}

// AuctionOrderDelete removes the auction order for the item.
func (s *Store) AuctionOrderDelete(itemID uint64) error {
	return s.db.Delete(auctionKey(itemID))
}

// ParamsPut stores the administrative parameter set.
func (s *Store) ParamsPut(params *market.Params) error {
	if params == nil {
		return fmt.Errorf("marketstore: nil params")
	}
	if params.AuctionDuration < 0 {
		return fmt.Errorf("marketstore: negative auction duration")
	}
	encoded, err := rlp.EncodeToBytes(&storedParams{
		MintPrice:       params.MintPrice,
		AuctionDuration: uint64(params.AuctionDuration),
		MinBidAmount:    params.MinBidAmount,
	})
	if err != nil {
		return fmt.Errorf("marketstore: encode params: %w", err)
	}
	return s.db.Put([]byte(paramsKey), encoded)
}

// ParamsGet loads the administrative parameter set.
func (s *Store) ParamsGet() (*market.Params, bool) {
	raw, err := s.db.Get([]byte(paramsKey))
	if err != nil {
		return nil, false
	}
	var stored storedParams
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false
	}
	return &market.Params{
		MintPrice:       stored.MintPrice,
		AuctionDuration: int64(stored.AuctionDuration),
		MinBidAmount:    stored.MinBidAmount,
	}, true
}

// CounterPut stores a named counter.
func (s *Store) CounterPut(name string, value uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return s.db.Put([]byte(counterPrefix+name), buf)
}

// CounterGet loads a named counter. Missing counters read as zero.
func (s *Store) CounterGet(name string) (uint64, error) {
	raw, err := s.db.Get([]byte(counterPrefix + name))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("marketstore: malformed counter %s", name)
	}
	return binary.BigEndian.Uint64(raw), nil
}
