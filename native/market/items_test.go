package market

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

func TestCreateItemChargesFeeAndMints(t *testing.T) {
	fx := newTestFixture(t, defaultParams())
	owner := newTestAddress(0x0A)
	fx.ledger.fund(owner, 1000)
	fx.ledger.approve(owner, 1000)

	item, err := fx.engine.CreateItem(owner, owner, "ipfs://one")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.ID != 1 {
		t.Fatalf("expected first item id 1, got %d", item.ID)
	}
	if item.Status != ItemActive {
		t.Fatalf("expected Active status, got %d", item.Status)
	}
	if got := fx.ledger.balance(owner); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected owner balance 500 after fee, got %s", got)
	}
	if got := fx.ledger.balance(fx.escrow); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected escrow fee balance 500, got %s", got)
	}
	total, err := fx.engine.TotalItems()
	if err != nil || total != 1 {
		t.Fatalf("expected total items 1, got %d err %v", total, err)
	}
	registryOwner, err := fx.registry.OwnerOf(item.ID)
	if err != nil || registryOwner != owner {
		t.Fatalf("registry owner mismatch: %v %v", registryOwner, err)
	}
}

func TestCreateItemDelegatedOwner(t *testing.T) {
	fx := newTestFixture(t, defaultParams())
	payer := newTestAddress(0x0A)
	recipient := newTestAddress(0x0B)
	fx.ledger.fund(payer, 1000)
	fx.ledger.approve(payer, 1000)

	item, err := fx.engine.CreateItem(payer, recipient, "ipfs://gift")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Owner != recipient {
		t.Fatalf("expected item owned by recipient")
	}
	if got := fx.ledger.balance(payer); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("fee must be charged to the caller, payer balance %s", got)
	}
}

func TestCreateItemWithoutAllowanceFails(t *testing.T) {
	fx := newTestFixture(t, defaultParams())
	owner := newTestAddress(0x0A)
	fx.ledger.fund(owner, 1000)

	_, err := fx.engine.CreateItem(owner, owner, "ipfs://one")
	if !errors.Is(err, ErrLedgerFailure) {
		t.Fatalf("expected ErrLedgerFailure, got %v", err)
	}
	total, _ := fx.engine.TotalItems()
	if total != 0 {
		t.Fatalf("expected no items after failed create, got %d", total)
	}
}

func TestCreateItemMintFailureRefundsFee(t *testing.T) {
	fx := newTestFixture(t, defaultParams())
	owner := newTestAddress(0x0A)
	fx.ledger.fund(owner, 1000)
	fx.ledger.approve(owner, 1000)
	fx.registry.mintErr = fmt.Errorf("registry offline")

	_, err := fx.engine.CreateItem(owner, owner, "ipfs://one")
	if !errors.Is(err, ErrLedgerFailure) {
		t.Fatalf("expected ErrLedgerFailure, got %v", err)
	}
	if got := fx.ledger.balance(owner); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected fee refunded, owner balance %s", got)
	}
	if got := fx.ledger.balance(fx.escrow); got.Sign() != 0 {
		t.Fatalf("expected empty escrow after refund, got %s", got)
	}
}

func TestBurnActiveItem(t *testing.T) {
	fx := newTestFixture(t, defaultParams())
	owner := newTestAddress(0x0A)
	id := fx.createItem(t, owner)

	if err := fx.engine.Burn(owner, id); err != nil {
		t.Fatalf("burn: %v", err)
	}
	status, err := fx.engine.ItemStatusOf(id)
	if err != nil || status != ItemBurned {
		t.Fatalf("expected Burned status, got %d err %v", status, err)
	}
	total, _ := fx.engine.TotalItems()
	if total != 0 {
		t.Fatalf("expected total items decremented, got %d", total)
	}
	evt := fx.emitter.last()
	if evt == nil || evt.Type != EventTypeBurned {
		t.Fatalf("expected Burned event, got %+v", evt)
	}
	if evt.Attributes["itemId"] != "1" || evt.Attributes["owner"] != formatAddress(owner) {
		t.Fatalf("unexpected Burned attributes: %v", evt.Attributes)
	}
}

func TestBurnRequiresOwner(t *testing.T) {
	fx := newTestFixture(t, defaultParams())
	owner := newTestAddress(0x0A)
	id := fx.createItem(t, owner)

	if err := fx.engine.Burn(newTestAddress(0x0B), id); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestBurnListedItemFails(t *testing.T) {
	fx := newTestFixture(t, defaultParams())
	owner := newTestAddress(0x0A)
	id := fx.createItem(t, owner)
	if err := fx.engine.ListItem(owner, id, big.NewInt(200)); err != nil {
		t.Fatalf("list item: %v", err)
	}

	if err := fx.engine.Burn(owner, id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for listed item, got %v", err)
	}

	auctionID := fx.createItem(t, owner)
	if err := fx.engine.ListItemOnAuction(owner, auctionID, big.NewInt(50)); err != nil {
		t.Fatalf("list on auction: %v", err)
	}
	if err := fx.engine.Burn(owner, auctionID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for auctioned item, got %v", err)
	}
}

func TestBurnedItemCannotBeRelisted(t *testing.T) {
	fx := newTestFixture(t, defaultParams())
	owner := newTestAddress(0x0A)
	id := fx.createItem(t, owner)
	if err := fx.engine.Burn(owner, id); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if err := fx.engine.ListItem(owner, id, big.NewInt(200)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState listing burned item, got %v", err)
	}
	if err := fx.engine.ListItemOnAuction(owner, id, big.NewInt(50)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState auctioning burned item, got %v", err)
	}
	if err := fx.engine.Burn(owner, id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState burning twice, got %v", err)
	}
}
