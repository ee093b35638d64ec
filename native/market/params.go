package market

import (
	"fmt"
	"math/big"
)

// Params holds the administrative configuration read by every order
// operation. It is seeded at construction and mutable only through the
// admin-gated setters on the engine.
type Params struct {
	// MintPrice is the creation fee collected from the caller of CreateItem.
	MintPrice *big.Int
	// AuctionDuration is the minimum number of seconds an auction must run
	// before it can be finished.
	AuctionDuration int64
	// MinBidAmount is the additive floor a new bid must clear above the
	// current price.
	MinBidAmount *big.Int
}

// Clone returns a deep copy of the parameter set.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	if p.MintPrice != nil {
		clone.MintPrice = new(big.Int).Set(p.MintPrice)
	} else {
		clone.MintPrice = big.NewInt(0)
	}
	if p.MinBidAmount != nil {
		clone.MinBidAmount = new(big.Int).Set(p.MinBidAmount)
	} else {
		clone.MinBidAmount = big.NewInt(0)
	}
	return &clone
}

// SanitizeParams validates the parameter set and returns a clone with non-nil
// amounts.
func SanitizeParams(p *Params) (*Params, error) {
	if p == nil {
		return nil, fmt.Errorf("market: nil params")
	}
	clone := p.Clone()
	if clone.MintPrice.Sign() < 0 {
		return nil, fmt.Errorf("market: mint price must be non-negative")
	}
	if clone.AuctionDuration <= 0 {
		return nil, fmt.Errorf("market: auction duration must be positive")
	}
	if clone.MinBidAmount.Sign() < 0 {
		return nil, fmt.Errorf("market: minimal bid amount must be non-negative")
	}
	return clone, nil
}
