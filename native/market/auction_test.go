package market

import (
	"errors"
	"math/big"
	"testing"
)

func auctionParams() *Params {
	return &Params{
		MintPrice:       big.NewInt(500),
		AuctionDuration: 100,
		MinBidAmount:    big.NewInt(10),
	}
}

func (fx *testFixture) listOnAuction(t *testing.T, seller [20]byte, startPrice int64) uint64 {
	t.Helper()
	id := fx.createItem(t, seller)
	if err := fx.engine.ListItemOnAuction(seller, id, big.NewInt(startPrice)); err != nil {
		t.Fatalf("list on auction: %v", err)
	}
	return id
}

func TestListItemOnAuctionCreatesActiveOrder(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	id := fx.listOnAuction(t, seller, 50)

	order, err := fx.engine.AuctionOrder(id)
	if err != nil {
		t.Fatalf("auction order: %v", err)
	}
	if order.StartPrice.Cmp(big.NewInt(50)) != 0 || order.StartTime != fx.now {
		t.Fatalf("unexpected start price or time: %+v", order)
	}
	if order.CurrentBid.Sign() != 0 || order.BidCount != 0 || order.LastBidder != ([20]byte{}) {
		t.Fatalf("expected pristine bid state: %+v", order)
	}
	if order.Status != AuctionActive {
		t.Fatalf("expected Active auction, got %d", order.Status)
	}
	status, _ := fx.engine.ItemStatusOf(id)
	if status != ItemOnAuction {
		t.Fatalf("expected OnAuction item status, got %d", status)
	}
	custodian, _ := fx.registry.OwnerOf(id)
	if custodian != fx.escrow {
		t.Fatalf("expected escrow custody, got %v", custodian)
	}
}

// Acceptance scenario: startPrice 50, minBid 10. A first bid of 60 does not
// clear the floor, 70 does; a follow-up of 85 outbids and refunds 70 in full.
func TestMakeBidFloorRuleAndRefund(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	bidderB := newTestAddress(0x0B)
	bidderC := newTestAddress(0x0C)
	id := fx.listOnAuction(t, seller, 50)

	fx.ledger.fund(bidderB, 100)
	fx.ledger.approve(bidderB, 100)
	fx.ledger.fund(bidderC, 100)
	fx.ledger.approve(bidderC, 100)

	if err := fx.engine.MakeBid(bidderB, id, big.NewInt(60)); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("expected ErrBidTooLow for 60, got %v", err)
	}
	if err := fx.engine.MakeBid(bidderB, id, big.NewInt(70)); err != nil {
		t.Fatalf("bid 70: %v", err)
	}
	if err := fx.engine.MakeBid(bidderC, id, big.NewInt(80)); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("expected ErrBidTooLow for 80 over floor 70, got %v", err)
	}
	if err := fx.engine.MakeBid(bidderC, id, big.NewInt(85)); err != nil {
		t.Fatalf("bid 85: %v", err)
	}

	if got := fx.ledger.balance(bidderB); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected previous bidder refunded in full, got %s", got)
	}
	if got := fx.ledger.balance(bidderC); got.Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("expected bidder C charged 85, got %s", got)
	}
	order, _ := fx.engine.AuctionOrder(id)
	if order.CurrentBid.Cmp(big.NewInt(85)) != 0 || order.BidCount != 2 || order.LastBidder != bidderC {
		t.Fatalf("unexpected order after bids: %+v", order)
	}
	evt := fx.emitter.last()
	if evt == nil || evt.Type != EventTypeBidIsMade {
		t.Fatalf("expected BidIsMade event, got %+v", evt)
	}
	if evt.Attributes["bid"] != "85" || evt.Attributes["bidCount"] != "2" || evt.Attributes["bidder"] != formatAddress(bidderC) {
		t.Fatalf("unexpected BidIsMade attributes: %v", evt.Attributes)
	}
}

func TestMakeBidOnMissingOrEndedAuction(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	bidder := newTestAddress(0x0B)
	if err := fx.engine.MakeBid(bidder, 99, big.NewInt(100)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for unknown auction, got %v", err)
	}

	seller := newTestAddress(0x0A)
	id := fx.listOnAuction(t, seller, 50)
	fx.now += 200
	if err := fx.engine.FinishAuction(id); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := fx.engine.MakeBid(bidder, id, big.NewInt(100)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for ended auction, got %v", err)
	}
}

func TestMakeBidLedgerFailureRollsBack(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	bidder := newTestAddress(0x0B)
	id := fx.listOnAuction(t, seller, 50)
	fx.ledger.fund(bidder, 100) // no allowance granted

	if err := fx.engine.MakeBid(bidder, id, big.NewInt(70)); !errors.Is(err, ErrLedgerFailure) {
		t.Fatalf("expected ErrLedgerFailure, got %v", err)
	}
	order, _ := fx.engine.AuctionOrder(id)
	if order.BidCount != 0 || order.CurrentBid.Sign() != 0 {
		t.Fatalf("expected order rolled back, got %+v", order)
	}
}

func TestFinishAuctionBeforeDurationFails(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	id := fx.listOnAuction(t, seller, 50)

	fx.now += 99
	if err := fx.engine.FinishAuction(id); !errors.Is(err, ErrAuctionNotComplete) {
		t.Fatalf("expected ErrAuctionNotComplete, got %v", err)
	}
	order, _ := fx.engine.AuctionOrder(id)
	if order.Status != AuctionActive {
		t.Fatalf("expected auction unchanged, got %d", order.Status)
	}
	status, _ := fx.engine.ItemStatusOf(id)
	if status != ItemOnAuction {
		t.Fatalf("expected item unchanged, got %d", status)
	}
}

func TestFinishAuctionWithoutBids(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	id := fx.listOnAuction(t, seller, 50)
	escrowBalance := fx.ledger.balance(fx.escrow)

	fx.now += 100
	if err := fx.engine.FinishAuction(id); err != nil {
		t.Fatalf("finish: %v", err)
	}
	order, _ := fx.engine.AuctionOrder(id)
	if order.Status != AuctionUnsuccessfullyEnded {
		t.Fatalf("expected UnsuccessfullyEnded, got %d", order.Status)
	}
	status, _ := fx.engine.ItemStatusOf(id)
	if status != ItemActive {
		t.Fatalf("expected Active item, got %d", status)
	}
	custodian, _ := fx.registry.OwnerOf(id)
	if custodian != seller {
		t.Fatalf("expected custody back with seller, got %v", custodian)
	}
	if got := fx.ledger.balance(fx.escrow); got.Cmp(escrowBalance) != 0 {
		t.Fatalf("expected no currency movement, escrow %s", got)
	}
	sold, _ := fx.engine.ItemsSold()
	if sold != 0 {
		t.Fatalf("expected itemsSold unchanged, got %d", sold)
	}
	evt := fx.emitter.last()
	if evt == nil || evt.Type != EventTypeNegativeEndAuction {
		t.Fatalf("expected NegativeEndAuction, got %+v", evt)
	}
	if evt.Attributes["finalBid"] != "0" {
		t.Fatalf("expected finalBid 0, got %v", evt.Attributes)
	}
}

func TestFinishAuctionWithWinner(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	bidderB := newTestAddress(0x0B)
	bidderC := newTestAddress(0x0C)
	id := fx.listOnAuction(t, seller, 50)
	sellerBalance := fx.ledger.balance(seller)

	fx.ledger.fund(bidderB, 100)
	fx.ledger.approve(bidderB, 100)
	fx.ledger.fund(bidderC, 100)
	fx.ledger.approve(bidderC, 100)
	if err := fx.engine.MakeBid(bidderB, id, big.NewInt(70)); err != nil {
		t.Fatalf("bid 70: %v", err)
	}
	if err := fx.engine.MakeBid(bidderC, id, big.NewInt(85)); err != nil {
		t.Fatalf("bid 85: %v", err)
	}

	fx.now += 100
	if err := fx.engine.FinishAuction(id); err != nil {
		t.Fatalf("finish: %v", err)
	}
	custodian, _ := fx.registry.OwnerOf(id)
	if custodian != bidderC {
		t.Fatalf("expected winner custody, got %v", custodian)
	}
	expectedSeller := new(big.Int).Add(sellerBalance, big.NewInt(85))
	if got := fx.ledger.balance(seller); got.Cmp(expectedSeller) != 0 {
		t.Fatalf("expected seller paid 85, balance %s", got)
	}
	order, _ := fx.engine.AuctionOrder(id)
	if order.Status != AuctionSuccessfullyEnded {
		t.Fatalf("expected SuccessfullyEnded, got %d", order.Status)
	}
	sold, _ := fx.engine.ItemsSold()
	if sold != 1 {
		t.Fatalf("expected itemsSold 1, got %d", sold)
	}
	// No residual escrow: the 500 creation fee is the only balance left.
	if got := fx.ledger.balance(fx.escrow); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected only the creation fee in escrow, got %s", got)
	}
	evt := fx.emitter.last()
	if evt == nil || evt.Type != EventTypePositiveEndAuction {
		t.Fatalf("expected PositiveEndAuction, got %+v", evt)
	}
	attrs := evt.Attributes
	if attrs["finalBid"] != "85" || attrs["bidCount"] != "2" || attrs["winner"] != formatAddress(bidderC) || attrs["seller"] != formatAddress(seller) {
		t.Fatalf("unexpected PositiveEndAuction attributes: %v", attrs)
	}
	if err := fx.engine.FinishAuction(id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState finishing twice, got %v", err)
	}
}

func TestCancelAuction(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	id := fx.listOnAuction(t, seller, 50)

	if err := fx.engine.CancelAuction(newTestAddress(0x0B), id); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := fx.engine.CancelAuction(seller, id); err != nil {
		t.Fatalf("cancel auction: %v", err)
	}
	order, _ := fx.engine.AuctionOrder(id)
	if order.Status != AuctionUnsuccessfullyEnded {
		t.Fatalf("expected UnsuccessfullyEnded, got %d", order.Status)
	}
	custodian, _ := fx.registry.OwnerOf(id)
	if custodian != seller {
		t.Fatalf("expected seller custody, got %v", custodian)
	}
	evt := fx.emitter.last()
	if evt == nil || evt.Type != EventTypeCanceled {
		t.Fatalf("expected EventCanceled, got %+v", evt)
	}
}

func TestCancelAuctionWithBidderFails(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	bidder := newTestAddress(0x0B)
	id := fx.listOnAuction(t, seller, 50)
	fx.ledger.fund(bidder, 100)
	fx.ledger.approve(bidder, 100)
	if err := fx.engine.MakeBid(bidder, id, big.NewInt(70)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	escrowBalance := fx.ledger.balance(fx.escrow)

	if err := fx.engine.CancelAuction(seller, id); !errors.Is(err, ErrHasBidder) {
		t.Fatalf("expected ErrHasBidder, got %v", err)
	}
	if got := fx.ledger.balance(fx.escrow); got.Cmp(escrowBalance) != 0 {
		t.Fatalf("escrowed bid must be unaffected, got %s", got)
	}
	order, _ := fx.engine.AuctionOrder(id)
	if order.Status != AuctionActive || order.BidCount != 1 {
		t.Fatalf("expected auction unchanged, got %+v", order)
	}
}

func TestFinishAuctionReentrancyIsRejected(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	bidder := newTestAddress(0x0B)
	id := fx.listOnAuction(t, seller, 50)
	fx.ledger.fund(bidder, 100)
	fx.ledger.approve(bidder, 100)
	if err := fx.engine.MakeBid(bidder, id, big.NewInt(70)); err != nil {
		t.Fatalf("bid: %v", err)
	}

	fx.now += 100
	var nestedErr error
	hostile := &reentrantLedger{mockLedger: fx.ledger}
	hostile.hook = func() {
		nestedErr = fx.engine.FinishAuction(id)
	}
	if err := fx.engine.SetCurrency(fx.admin, hostile); err != nil {
		t.Fatalf("set currency: %v", err)
	}

	if err := fx.engine.FinishAuction(id); err != nil {
		t.Fatalf("outer finish: %v", err)
	}
	if !errors.Is(nestedErr, ErrInvalidState) {
		t.Fatalf("expected nested finish rejected with ErrInvalidState, got %v", nestedErr)
	}
	sold, _ := fx.engine.ItemsSold()
	if sold != 1 {
		t.Fatalf("expected a single settlement, itemsSold %d", sold)
	}
}

func TestItemStatusMirrorsOrderBooks(t *testing.T) {
	fx := newTestFixture(t, auctionParams())
	seller := newTestAddress(0x0A)
	saleID := fx.createItem(t, seller)
	auctionID := fx.createItem(t, seller)

	if err := fx.engine.ListItem(seller, saleID, big.NewInt(200)); err != nil {
		t.Fatalf("list item: %v", err)
	}
	if err := fx.engine.ListItemOnAuction(seller, auctionID, big.NewInt(50)); err != nil {
		t.Fatalf("list on auction: %v", err)
	}

	saleStatus, _ := fx.engine.ItemStatusOf(saleID)
	saleOrder, _ := fx.engine.SaleOrder(saleID)
	if saleStatus != ItemOnSale || saleOrder.Status != SaleActive {
		t.Fatalf("OnSale must pair with an active sale order: %d %d", saleStatus, saleOrder.Status)
	}
	auctionStatus, _ := fx.engine.ItemStatusOf(auctionID)
	auctionOrder, _ := fx.engine.AuctionOrder(auctionID)
	if auctionStatus != ItemOnAuction || auctionOrder.Status != AuctionActive {
		t.Fatalf("OnAuction must pair with an active auction order: %d %d", auctionStatus, auctionOrder.Status)
	}
}
