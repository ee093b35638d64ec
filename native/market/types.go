package market

import (
	"fmt"
	"math/big"
)

// ItemStatus tracks the trading state of a single item. The zero value is
// reserved so an absent record never aliases a real status.
type ItemStatus uint8

const (
	ItemActive ItemStatus = iota + 1
	ItemOnSale
	ItemOnAuction
	ItemBurned
)

// SaleStatus is the lifecycle of a fixed-price sale order.
type SaleStatus uint8

const (
	SaleActive SaleStatus = iota + 1
	SaleSold
	SaleCancelled
)

// AuctionStatus is the lifecycle of an ascending-bid auction order. Both end
// states are terminal; cancellation reuses AuctionUnsuccessfullyEnded.
type AuctionStatus uint8

const (
	AuctionActive AuctionStatus = iota + 1
	AuctionSuccessfullyEnded
	AuctionUnsuccessfullyEnded
)

// Item mirrors the registry's view of a minted item together with the
// engine-owned trading status. Owner is refreshed on every transition that
// moves custody and is used for authorization checks only.
type Item struct {
	ID     uint64
	Owner  [20]byte
	URI    string
	Status ItemStatus
}

// SaleOrder is a fixed-price offer for one item. Initiator receives the
// proceeds and may differ from Seller in delegated listing flows.
type SaleOrder struct {
	Seller    [20]byte
	Initiator [20]byte
	Price     *big.Int
	Status    SaleStatus
}

// AuctionOrder is an ascending-bid offer for one item. CurrentBid is
// non-decreasing; LastBidder is the escrow creditor of CurrentBid whenever
// BidCount is positive.
type AuctionOrder struct {
	StartPrice *big.Int
	StartTime  int64
	CurrentBid *big.Int
	BidCount   uint64
	Seller     [20]byte
	Initiator  [20]byte
	LastBidder [20]byte
	Status     AuctionStatus
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

// Clone returns a deep copy of the sale order.
func (o *SaleOrder) Clone() *SaleOrder {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Price != nil {
		clone.Price = new(big.Int).Set(o.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Clone returns a deep copy of the auction order.
func (o *AuctionOrder) Clone() *AuctionOrder {
	if o == nil {
		return nil
	}
	clone := *o
	if o.StartPrice != nil {
		clone.StartPrice = new(big.Int).Set(o.StartPrice)
	} else {
		clone.StartPrice = big.NewInt(0)
	}
	if o.CurrentBid != nil {
		clone.CurrentBid = new(big.Int).Set(o.CurrentBid)
	} else {
		clone.CurrentBid = big.NewInt(0)
	}
	return &clone
}

// Valid reports whether the status value is within the supported range.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemActive, ItemOnSale, ItemOnAuction, ItemBurned:
		return true
	default:
		return false
	}
}

// Valid reports whether the status value is within the supported range.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleActive, SaleSold, SaleCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether the status value is within the supported range.
func (s AuctionStatus) Valid() bool {
	switch s {
	case AuctionActive, AuctionSuccessfullyEnded, AuctionUnsuccessfullyEnded:
		return true
	default:
		return false
	}
}

// SanitizeItem validates the supplied item and returns a clone with a valid
// status. The original value is not mutated.
func SanitizeItem(i *Item) (*Item, error) {
	if i == nil {
		return nil, fmt.Errorf("market: nil item")
	}
	if i.ID == 0 {
		return nil, fmt.Errorf("market: item id must be positive")
	}
	if !i.Status.Valid() {
		return nil, fmt.Errorf("market: invalid item status: %d", i.Status)
	}
	return i.Clone(), nil
}

// SanitizeSaleOrder validates the supplied order and returns a clone with a
// non-nil price.
func SanitizeSaleOrder(o *SaleOrder) (*SaleOrder, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil sale order")
	}
	clone := o.Clone()
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("market: sale price must be positive")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("market: invalid sale status: %d", clone.Status)
	}
	return clone, nil
}

// SanitizeAuctionOrder validates the supplied order and returns a clone with
// non-nil amounts. A zero CurrentBid is only legal while BidCount is zero.
func SanitizeAuctionOrder(o *AuctionOrder) (*AuctionOrder, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil auction order")
	}
	clone := o.Clone()
	if clone.StartPrice.Sign() <= 0 {
		return nil, fmt.Errorf("market: auction start price must be positive")
	}
	if clone.CurrentBid.Sign() < 0 {
		return nil, fmt.Errorf("market: auction bid must be non-negative")
	}
	if clone.BidCount > 0 && clone.CurrentBid.Sign() == 0 {
		return nil, fmt.Errorf("market: auction with bids requires a positive bid")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("market: invalid auction status: %d", clone.Status)
	}
	return clone, nil
}
