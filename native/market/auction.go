package market

import (
	"fmt"
	"math/big"

	nativecommon "nftmarket/native/common"
)

// ListItemOnAuction puts an Active item up for ascending-bid auction. The
// clock reading at listing time starts the minimum-duration window.
func (e *Engine) ListItemOnAuction(caller [20]byte, itemID uint64, startPrice *big.Int) error {
	if err := e.requireReady(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	item, err := e.loadItem(itemID)
	if err != nil {
		return err
	}
	if item.Status != ItemActive {
		return fmt.Errorf("market: item %d already listed or burned: %w", itemID, ErrInvalidState)
	}
	if item.Owner != caller {
		return ErrNotAuthorized
	}
	if startPrice == nil || startPrice.Sign() <= 0 {
		return ErrInvalidAmount
	}
	order, err := SanitizeAuctionOrder(&AuctionOrder{
		StartPrice: new(big.Int).Set(startPrice),
		StartTime:  e.now(),
		CurrentBid: big.NewInt(0),
		Seller:     caller,
		Initiator:  caller,
		Status:     AuctionActive,
	})
	if err != nil {
		return err
	}
	prevOrder, hadOrder := e.state.AuctionOrderGet(itemID)
	itemSnapshot := item.Clone()
	if err := e.state.AuctionOrderPut(itemID, order); err != nil {
		return err
	}
	item.Status = ItemOnAuction
	if err := e.state.ItemPut(item); err != nil {
		return err
	}
	if err := e.settle(nil, &custodyLeg{from: caller, to: e.escrow, itemID: itemID}); err != nil {
		if restoreErr := e.state.ItemPut(itemSnapshot); restoreErr == nil {
			if hadOrder {
				_ = e.state.AuctionOrderPut(itemID, prevOrder)
			} else {
				_ = e.state.AuctionOrderDelete(itemID)
			}
		}
		return err
	}
	return nil
}

// MakeBid escrows a challenger's bid and refunds the previous bidder in
// full. A bid is accepted only if it exceeds the effective floor (the
// current bid, or the start price while no bid exists) by more than the
// configured minimal bid amount.
func (e *Engine) MakeBid(bidder [20]byte, itemID uint64, amount *big.Int) error {
	if err := e.requireReady(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	order, ok := e.state.AuctionOrderGet(itemID)
	if !ok || order.Status != AuctionActive {
		return fmt.Errorf("market: auction for item %d already ended: %w", itemID, ErrInvalidState)
	}
	params, err := e.params()
	if err != nil {
		return err
	}
	floor := order.StartPrice
	if order.BidCount > 0 {
		floor = order.CurrentBid
	}
	required := new(big.Int).Add(floor, params.MinBidAmount)
	if amount == nil || amount.Cmp(required) <= 0 {
		return ErrBidTooLow
	}
	snapshot := order.Clone()
	prevBidder := order.LastBidder
	prevBid := new(big.Int).Set(order.CurrentBid)
	hadBid := order.BidCount > 0
	order.CurrentBid = new(big.Int).Set(amount)
	order.LastBidder = bidder
	order.BidCount++
	if err := e.state.AuctionOrderPut(itemID, order); err != nil {
		return err
	}
	if err := e.currency.TransferFrom(bidder, e.escrow, amount); err != nil {
		_ = e.state.AuctionOrderPut(itemID, snapshot)
		return fmt.Errorf("%w: %v", ErrLedgerFailure, err)
	}
	if hadBid {
		if err := e.currency.TransferFrom(e.escrow, prevBidder, prevBid); err != nil {
			_ = e.currency.TransferFrom(e.escrow, bidder, amount)
			_ = e.state.AuctionOrderPut(itemID, snapshot)
			return fmt.Errorf("%w: %v", ErrLedgerFailure, err)
		}
	}
	e.emit(NewBidEvent(itemID, amount, order.BidCount, bidder))
	return nil
}

// FinishAuction resolves an auction once the minimum duration has elapsed.
// With no bids the item returns to the seller and the auction ends
// unsuccessfully; otherwise the winning bid pays the initiator and custody
// is released to the last bidder.
func (e *Engine) FinishAuction(itemID uint64) error {
	if err := e.requireReady(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	order, ok := e.state.AuctionOrderGet(itemID)
	if !ok || order.Status != AuctionActive {
		return fmt.Errorf("market: auction for item %d already ended: %w", itemID, ErrInvalidState)
	}
	params, err := e.params()
	if err != nil {
		return err
	}
	now := e.now()
	if now-order.StartTime < params.AuctionDuration {
		return ErrAuctionNotComplete
	}
	item, err := e.loadItem(itemID)
	if err != nil {
		return err
	}
	orderSnapshot := order.Clone()
	itemSnapshot := item.Clone()
	if order.BidCount == 0 {
		order.Status = AuctionUnsuccessfullyEnded
		item.Status = ItemActive
		if err := e.state.AuctionOrderPut(itemID, order); err != nil {
			return err
		}
		if err := e.state.ItemPut(item); err != nil {
			return err
		}
		if err := e.settle(nil, &custodyLeg{from: e.escrow, to: order.Seller, itemID: itemID}); err != nil {
			if restoreErr := e.state.AuctionOrderPut(itemID, orderSnapshot); restoreErr == nil {
				_ = e.state.ItemPut(itemSnapshot)
			}
			return err
		}
		e.emit(NewNegativeEndEvent(itemID, order.CurrentBid, now))
		return nil
	}
	order.Status = AuctionSuccessfullyEnded
	item.Status = ItemActive
	item.Owner = order.LastBidder
	if err := e.state.AuctionOrderPut(itemID, order); err != nil {
		return err
	}
	if err := e.state.ItemPut(item); err != nil {
		return err
	}
	if err := e.counterAdd(counterItemsSold, 1); err != nil {
		return err
	}
	if err := e.settle(
		&currencyLeg{payer: e.escrow, payee: order.Initiator, amount: order.CurrentBid},
		&custodyLeg{from: e.escrow, to: order.LastBidder, itemID: itemID},
	); err != nil {
		if restoreErr := e.state.AuctionOrderPut(itemID, orderSnapshot); restoreErr == nil {
			_ = e.state.ItemPut(itemSnapshot)
			_ = e.counterAdd(counterItemsSold, -1)
		}
		return err
	}
	e.emit(NewPositiveEndEvent(itemID, order.CurrentBid, order.BidCount, now, order.Seller, order.LastBidder))
	return nil
}

// CancelAuction withdraws an auction before any capital is at risk. The
// terminal status mirrors an unsuccessful end; auctions with at least one
// escrowed bid cannot be cancelled.
func (e *Engine) CancelAuction(caller [20]byte, itemID uint64) error {
	if err := e.requireReady(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	order, ok := e.state.AuctionOrderGet(itemID)
	if !ok || order.Status != AuctionActive {
		return fmt.Errorf("market: auction for item %d already ended: %w", itemID, ErrInvalidState)
	}
	if caller != order.Seller && caller != order.Initiator {
		return ErrNotAuthorized
	}
	if order.BidCount > 0 {
		return ErrHasBidder
	}
	item, err := e.loadItem(itemID)
	if err != nil {
		return err
	}
	orderSnapshot := order.Clone()
	itemSnapshot := item.Clone()
	order.Status = AuctionUnsuccessfullyEnded
	item.Status = ItemActive
	if err := e.state.AuctionOrderPut(itemID, order); err != nil {
		return err
	}
	if err := e.state.ItemPut(item); err != nil {
		return err
	}
	if err := e.settle(nil, &custodyLeg{from: e.escrow, to: order.Seller, itemID: itemID}); err != nil {
		if restoreErr := e.state.AuctionOrderPut(itemID, orderSnapshot); restoreErr == nil {
			_ = e.state.ItemPut(itemSnapshot)
		}
		return err
	}
	e.emit(NewCanceledEvent(itemID, order.Seller))
	return nil
}
