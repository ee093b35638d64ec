package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"nftmarket/core/types"
)

// Event type names match the observable log records of the engine surface.
const (
	EventTypeSold               = "Sold"
	EventTypeCanceled           = "EventCanceled"
	EventTypeBidIsMade          = "BidIsMade"
	EventTypePositiveEndAuction = "PositiveEndAuction"
	EventTypeNegativeEndAuction = "NegativeEndAuction"
	EventTypeBurned             = "Burned"
)

// NewSoldEvent returns the canonical payload for a completed fixed-price
// sale.
func NewSoldEvent(itemID uint64, price *big.Int, ts int64, seller, buyer [20]byte) *types.Event {
	return &types.Event{Type: EventTypeSold, Attributes: map[string]string{
		"itemId":    formatItemID(itemID),
		"price":     formatAmount(price),
		"timestamp": strconv.FormatInt(ts, 10),
		"seller":    formatAddress(seller),
		"buyer":     formatAddress(buyer),
	}}
}

// NewCanceledEvent returns the canonical payload for a cancelled sale or
// auction listing.
func NewCanceledEvent(itemID uint64, seller [20]byte) *types.Event {
	return &types.Event{Type: EventTypeCanceled, Attributes: map[string]string{
		"itemId": formatItemID(itemID),
		"seller": formatAddress(seller),
	}}
}

// NewBidEvent returns the canonical payload for an accepted bid.
func NewBidEvent(itemID uint64, amount *big.Int, bidCount uint64, bidder [20]byte) *types.Event {
	return &types.Event{Type: EventTypeBidIsMade, Attributes: map[string]string{
		"itemId":   formatItemID(itemID),
		"bid":      formatAmount(amount),
		"bidCount": strconv.FormatUint(bidCount, 10),
		"bidder":   formatAddress(bidder),
	}}
}

// NewPositiveEndEvent returns the canonical payload for an auction resolved
// with a winner.
func NewPositiveEndEvent(itemID uint64, finalBid *big.Int, bidCount uint64, endTime int64, seller, winner [20]byte) *types.Event {
	return &types.Event{Type: EventTypePositiveEndAuction, Attributes: map[string]string{
		"itemId":   formatItemID(itemID),
		"finalBid": formatAmount(finalBid),
		"bidCount": strconv.FormatUint(bidCount, 10),
		"endTime":  strconv.FormatInt(endTime, 10),
		"seller":   formatAddress(seller),
		"winner":   formatAddress(winner),
	}}
}

// NewNegativeEndEvent returns the canonical payload for an auction that
// ended without a bid.
func NewNegativeEndEvent(itemID uint64, finalBid *big.Int, endTime int64) *types.Event {
	return &types.Event{Type: EventTypeNegativeEndAuction, Attributes: map[string]string{
		"itemId":   formatItemID(itemID),
		"finalBid": formatAmount(finalBid),
		"endTime":  strconv.FormatInt(endTime, 10),
	}}
}

// NewBurnedEvent returns the canonical payload for a destroyed item.
func NewBurnedEvent(itemID uint64, owner [20]byte, ts int64) *types.Event {
	return &types.Event{Type: EventTypeBurned, Attributes: map[string]string{
		"itemId":    formatItemID(itemID),
		"owner":     formatAddress(owner),
		"timestamp": strconv.FormatInt(ts, 10),
	}}
}

func formatItemID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}
