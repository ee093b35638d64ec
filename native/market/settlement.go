package market

import (
	"fmt"
	"math/big"
)

// currencyLeg describes a fungible transfer executed through the currency
// ledger. A nil leg or zero amount is skipped.
type currencyLeg struct {
	payer  [20]byte
	payee  [20]byte
	amount *big.Int
}

// custodyLeg describes an ownership transfer executed through the registry.
type custodyLeg struct {
	from   [20]byte
	to     [20]byte
	itemID uint64
}

// settle is the single chokepoint for every currency and ownership movement.
// The currency leg runs first because it carries the legitimate failure modes
// (insufficient balance or allowance); the custody leg then moves an asset
// the engine already holds or is approved for. If the custody leg still
// fails, the completed currency leg is compensated before the error is
// surfaced so no partial movement survives the call.
func (e *Engine) settle(currency *currencyLeg, custody *custodyLeg) error {
	if err := e.requireReady(); err != nil {
		return err
	}
	if currency != nil && (currency.amount == nil || currency.amount.Sign() == 0) {
		currency = nil
	}
	if currency != nil {
		if currency.amount.Sign() < 0 {
			return fmt.Errorf("market: negative settlement amount")
		}
		if err := e.currency.TransferFrom(currency.payer, currency.payee, currency.amount); err != nil {
			return fmt.Errorf("%w: %v", ErrLedgerFailure, err)
		}
	}
	if custody != nil {
		if err := e.registry.TransferCustody(custody.from, custody.to, custody.itemID); err != nil {
			if currency != nil {
				// Best effort: the payee may not have granted the engine an
				// allowance, in which case the operator has to reconcile.
				_ = e.currency.TransferFrom(currency.payee, currency.payer, currency.amount)
			}
			return fmt.Errorf("%w: %v", ErrLedgerFailure, err)
		}
	}
	return nil
}
