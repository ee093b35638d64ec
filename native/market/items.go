package market

import (
	"fmt"

	nativecommon "nftmarket/native/common"
)

// CreateItem collects the creation fee from the caller, mints a fresh item to
// the owner through the registry and tracks it as Active. The registry
// assigns the identifier; callers learn it only from the returned item.
func (e *Engine) CreateItem(caller, owner [20]byte, uri string) (*Item, error) {
	if err := e.requireReady(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	feeCharged := params.MintPrice.Sign() > 0
	if feeCharged {
		if err := e.currency.TransferFrom(caller, e.escrow, params.MintPrice); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedgerFailure, err)
		}
	}
	id, err := e.registry.Mint(owner, uri)
	if err != nil {
		if feeCharged {
			// Return the fee so a failed mint has no observable effect.
			_ = e.currency.TransferFrom(e.escrow, caller, params.MintPrice)
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailure, err)
	}
	item, err := SanitizeItem(&Item{ID: id, Owner: owner, URI: uri, Status: ItemActive})
	if err != nil {
		return nil, err
	}
	if err := e.state.ItemPut(item); err != nil {
		return nil, err
	}
	if err := e.counterAdd(counterTotalItems, 1); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Burn destroys an Active item owned by the caller. Listed or already burned
// items are rejected; the status transition is committed before the registry
// burn so a re-entrant call cannot act on the item twice.
func (e *Engine) Burn(caller [20]byte, itemID uint64) error {
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
	if item.Owner != caller {
		return ErrNotAuthorized
	}
	if item.Status != ItemActive {
		return fmt.Errorf("market: item %d is listed or already burned: %w", itemID, ErrInvalidState)
	}
	snapshot := item.Clone()
	item.Status = ItemBurned
	if err := e.state.ItemPut(item); err != nil {
		return err
	}
	if err := e.counterAdd(counterTotalItems, -1); err != nil {
		return err
	}
	if err := e.registry.Burn(itemID); err != nil {
		if restoreErr := e.state.ItemPut(snapshot); restoreErr == nil {
			_ = e.counterAdd(counterTotalItems, 1)
		}
		return fmt.Errorf("%w: %v", ErrLedgerFailure, err)
	}
	e.emit(NewBurnedEvent(itemID, caller, e.now()))
	return nil
}
