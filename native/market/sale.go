package market

import (
	"fmt"
	"math/big"

	nativecommon "nftmarket/native/common"
)

// ListItem puts an Active item up for fixed-price sale. Custody moves into
// escrow; a fresh order overwrites any terminal order from an earlier
// episode.
func (e *Engine) ListItem(caller [20]byte, itemID uint64, price *big.Int) error {
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
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidAmount
	}
	order, err := SanitizeSaleOrder(&SaleOrder{
		Seller:    caller,
		Initiator: caller,
		Price:     new(big.Int).Set(price),
		Status:    SaleActive,
	})
	if err != nil {
		return err
	}
	prevOrder, hadOrder := e.state.SaleOrderGet(itemID)
	itemSnapshot := item.Clone()
	if err := e.state.SaleOrderPut(itemID, order); err != nil {
		return err
	}
	item.Status = ItemOnSale
	if err := e.state.ItemPut(item); err != nil {
		return err
	}
	if err := e.settle(nil, &custodyLeg{from: caller, to: e.escrow, itemID: itemID}); err != nil {
		e.restoreSale(itemID, itemSnapshot, prevOrder, hadOrder)
		return err
	}
	return nil
}

// BuyItem settles an active sale: price moves from the buyer to the order's
// initiator and custody is released to the buyer. The terminal order status
// is persisted before the ledger legs run so a nested call re-entering the
// engine observes the sale as already completed.
func (e *Engine) BuyItem(buyer [20]byte, itemID uint64) error {
	if err := e.requireReady(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	order, ok := e.state.SaleOrderGet(itemID)
	if !ok || order.Status != SaleActive {
		return fmt.Errorf("market: item %d is not on sale: %w", itemID, ErrInvalidState)
	}
	item, err := e.loadItem(itemID)
	if err != nil {
		return err
	}
	if item.Status != ItemOnSale {
		return fmt.Errorf("market: item %d is not on sale: %w", itemID, ErrInvalidState)
	}
	orderSnapshot := order.Clone()
	itemSnapshot := item.Clone()
	order.Status = SaleSold
	item.Status = ItemActive
	item.Owner = buyer
	if err := e.state.SaleOrderPut(itemID, order); err != nil {
		return err
	}
	if err := e.state.ItemPut(item); err != nil {
		return err
	}
	if err := e.counterAdd(counterItemsSold, 1); err != nil {
		return err
	}
	if err := e.settle(
		&currencyLeg{payer: buyer, payee: order.Initiator, amount: order.Price},
		&custodyLeg{from: e.escrow, to: buyer, itemID: itemID},
	); err != nil {
		if restoreErr := e.state.SaleOrderPut(itemID, orderSnapshot); restoreErr == nil {
			_ = e.state.ItemPut(itemSnapshot)
			_ = e.counterAdd(counterItemsSold, -1)
		}
		return err
	}
	e.emit(NewSoldEvent(itemID, order.Price, e.now(), order.Seller, buyer))
	return nil
}

// Cancel withdraws an active sale. Only the seller or initiator may cancel;
// custody returns to the seller and the order becomes terminal.
func (e *Engine) Cancel(caller [20]byte, itemID uint64) error {
	if err := e.requireReady(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	order, ok := e.state.SaleOrderGet(itemID)
	if !ok || order.Status != SaleActive {
		return fmt.Errorf("market: item %d was not on sale: %w", itemID, ErrInvalidState)
	}
	if caller != order.Seller && caller != order.Initiator {
		return ErrNotAuthorized
	}
	item, err := e.loadItem(itemID)
	if err != nil {
		return err
	}
	orderSnapshot := order.Clone()
	itemSnapshot := item.Clone()
	order.Status = SaleCancelled
	item.Status = ItemActive
	if err := e.state.SaleOrderPut(itemID, order); err != nil {
		return err
	}
	if err := e.state.ItemPut(item); err != nil {
		return err
	}
	if err := e.settle(nil, &custodyLeg{from: e.escrow, to: order.Seller, itemID: itemID}); err != nil {
		if restoreErr := e.state.SaleOrderPut(itemID, orderSnapshot); restoreErr == nil {
			_ = e.state.ItemPut(itemSnapshot)
		}
		return err
	}
	e.emit(NewCanceledEvent(itemID, order.Seller))
	return nil
}

func (e *Engine) restoreSale(itemID uint64, item *Item, prevOrder *SaleOrder, hadOrder bool) {
	if err := e.state.ItemPut(item); err != nil {
		return
	}
	if hadOrder {
		_ = e.state.SaleOrderPut(itemID, prevOrder)
		return
	}
	_ = e.state.SaleOrderDelete(itemID)
}
