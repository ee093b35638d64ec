package market

import "errors"

var (
	// ErrNotAuthorized is returned when the caller is not the owner, seller,
	// initiator or administrator required by the operation.
	ErrNotAuthorized = errors.New("market: not authorized")
	// ErrInvalidState is returned when an item or order is not in the state
	// the operation requires (already listed, not listed, terminal, burned).
	ErrInvalidState = errors.New("market: invalid item or order state")
	// ErrInvalidAmount is returned for non-positive prices or withdrawal
	// amounts.
	ErrInvalidAmount = errors.New("market: amount must be positive")
	// ErrBidTooLow is returned when a bid fails the strict-increase-plus-floor
	// rule.
	ErrBidTooLow = errors.New("market: bid below required minimum")
	// ErrAuctionNotComplete is returned when finishing is attempted before the
	// minimum auction duration has elapsed.
	ErrAuctionNotComplete = errors.New("market: auction duration not complete")
	// ErrHasBidder is returned when auction cancellation is attempted after a
	// bid has been escrowed.
	ErrHasBidder = errors.New("market: auction already has a bidder")
	// ErrLedgerFailure wraps any failed registry or currency ledger call.
	ErrLedgerFailure = errors.New("market: external ledger call failed")

	// ErrItemNotFound is returned when no item exists under the identifier.
	ErrItemNotFound = errors.New("market: item not found")
	// ErrOrderNotFound is returned when no order exists for the item.
	ErrOrderNotFound = errors.New("market: order not found")
)
