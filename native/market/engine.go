package market

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"nftmarket/core/events"
	"nftmarket/core/types"
	nativecommon "nftmarket/native/common"
)

const moduleName = "market"

const (
	counterTotalItems = "market/totalItems"
	counterItemsSold  = "market/itemsSold"
)

var (
	errNilState    = errors.New("market engine: state not configured")
	errNilRegistry = errors.New("market engine: ownership registry not configured")
	errNilCurrency = errors.New("market engine: currency ledger not configured")
	errNilParams   = errors.New("market engine: params not configured")
)

// engineState is the narrow persistence surface the engine depends on. The
// concrete implementation lives in storage/marketstore; tests substitute an
// in-memory map.
type engineState interface {
	ItemPut(*Item) error
	ItemGet(id uint64) (*Item, bool)
	SaleOrderPut(itemID uint64, order *SaleOrder) error
	SaleOrderGet(itemID uint64) (*SaleOrder, bool)
	SaleOrderDelete(itemID uint64) error
	AuctionOrderPut(itemID uint64, order *AuctionOrder) error
	AuctionOrderGet(itemID uint64) (*AuctionOrder, bool)
	AuctionOrderDelete(itemID uint64) error
	ParamsPut(*Params) error
	ParamsGet() (*Params, bool)
	CounterPut(name string, value uint64) error
	CounterGet(name string) (uint64, error)
}

// OwnershipRegistry is the external non-fungible ledger. The engine must be
// approved as an operator for sellers before custody pulls succeed; granting
// that approval happens out-of-band.
type OwnershipRegistry interface {
	Mint(to [20]byte, uri string) (uint64, error)
	TransferCustody(from, to [20]byte, itemID uint64) error
	Burn(itemID uint64) error
	OwnerOf(itemID uint64) ([20]byte, error)
}

// CurrencyLedger is the external fungible ledger. Transfers initiated by the
// engine draw on allowances granted to the engine account out-of-band.
type CurrencyLedger interface {
	TransferFrom(payer, payee [20]byte, amount *big.Int) error
	BalanceOf(account [20]byte) (*big.Int, error)
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine is the order/auction state machine and escrow custodian. All
// mutating operations follow the same discipline: first-line status checks,
// persisted status transition, then the external ledger legs, with the
// pre-images restored if a leg fails.
type Engine struct {
	state    engineState
	registry OwnershipRegistry
	currency CurrencyLedger
	emitter  events.Emitter
	nowFn    func() int64
	pauses   nativecommon.PauseView
	escrow   [20]byte
	admin    [20]byte
}

// NewEngine creates a marketplace engine with a no-op emitter and the wall
// clock as its time source.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the ownership registry handle. Restricted to the
// administrator once one is set.
func (e *Engine) SetRegistry(caller [20]byte, registry OwnershipRegistry) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	e.registry = registry
	return nil
}

// SetCurrency configures the currency ledger handle. Restricted to the
// administrator once one is set.
func (e *Engine) SetCurrency(caller [20]byte, ledger CurrencyLedger) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	e.currency = ledger
	return nil
}

// SetEscrowAccount configures the account the engine holds custody and fees
// under.
func (e *Engine) SetEscrowAccount(addr [20]byte) { e.escrow = addr }

// SetAdmin configures the distinguished administrator account.
func (e *Engine) SetAdmin(addr [20]byte) { e.admin = addr }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used by tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses configures the module pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SeedParams persists the initial parameter set if none exists yet. Used at
// construction time; later changes go through the admin setters.
func (e *Engine) SeedParams(params *Params) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, ok := e.state.ParamsGet(); ok {
		return nil
	}
	sanitized, err := SanitizeParams(params)
	if err != nil {
		return err
	}
	return e.state.ParamsPut(sanitized)
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) requireReady() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.registry == nil:
		return errNilRegistry
	case e.currency == nil:
		return errNilCurrency
	default:
		return nil
	}
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e == nil {
		return errNilState
	}
	if e.admin == ([20]byte{}) || caller != e.admin {
		return ErrNotAuthorized
	}
	return nil
}

func (e *Engine) params() (*Params, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	params, ok := e.state.ParamsGet()
	if !ok {
		return nil, errNilParams
	}
	return params, nil
}

func (e *Engine) loadItem(id uint64) (*Item, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	item, ok := e.state.ItemGet(id)
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (e *Engine) counterAdd(name string, delta int64) error {
	current, err := e.state.CounterGet(name)
	if err != nil {
		return err
	}
	if delta < 0 && current < uint64(-delta) {
		return fmt.Errorf("market engine: counter %s underflow", name)
	}
	return e.state.CounterPut(name, uint64(int64(current)+delta))
}

// UpdateMintPrice changes the creation fee. Administrator only.
func (e *Engine) UpdateMintPrice(caller [20]byte, price *big.Int) error {
	return e.updateParams(caller, func(p *Params) {
		if price != nil {
			p.MintPrice = new(big.Int).Set(price)
		} else {
			p.MintPrice = big.NewInt(0)
		}
	})
}

// UpdateAuctionDuration changes the minimum auction duration in seconds.
// Administrator only.
func (e *Engine) UpdateAuctionDuration(caller [20]byte, seconds int64) error {
	return e.updateParams(caller, func(p *Params) {
		p.AuctionDuration = seconds
	})
}

// UpdateMinBidAmount changes the additive bid floor. Administrator only.
func (e *Engine) UpdateMinBidAmount(caller [20]byte, amount *big.Int) error {
	return e.updateParams(caller, func(p *Params) {
		if amount != nil {
			p.MinBidAmount = new(big.Int).Set(amount)
		} else {
			p.MinBidAmount = big.NewInt(0)
		}
	})
}

func (e *Engine) updateParams(caller [20]byte, mutate func(*Params)) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	params, err := e.params()
	if err != nil {
		return err
	}
	mutate(params)
	sanitized, err := SanitizeParams(params)
	if err != nil {
		return err
	}
	return e.state.ParamsPut(sanitized)
}

// WithdrawTokens sweeps accumulated creation fees from the engine account.
// Administrator only.
func (e *Engine) WithdrawTokens(caller, to [20]byte, amount *big.Int) error {
	if err := e.requireReady(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.currency.TransferFrom(e.escrow, to, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerFailure, err)
	}
	return nil
}

// Item returns a copy of the stored item record.
func (e *Engine) Item(id uint64) (*Item, error) {
	item, err := e.loadItem(id)
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// ItemStatusOf returns the trading status of the item.
func (e *Engine) ItemStatusOf(id uint64) (ItemStatus, error) {
	item, err := e.loadItem(id)
	if err != nil {
		return 0, err
	}
	return item.Status, nil
}

// SaleOrder returns a copy of the most recent sale order for the item,
// terminal or not.
func (e *Engine) SaleOrder(itemID uint64) (*SaleOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, ok := e.state.SaleOrderGet(itemID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

// AuctionOrder returns a copy of the most recent auction order for the item,
// terminal or not.
func (e *Engine) AuctionOrder(itemID uint64) (*AuctionOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, ok := e.state.AuctionOrderGet(itemID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

// Params returns a copy of the administrative parameter set.
func (e *Engine) Params() (*Params, error) {
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	return params.Clone(), nil
}

// TotalItems returns the count of live (created and not burned) items.
func (e *Engine) TotalItems() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.CounterGet(counterTotalItems)
}

// ItemsSold returns the count of completed sales and successful auctions.
func (e *Engine) ItemsSold() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.CounterGet(counterItemsSold)
}
