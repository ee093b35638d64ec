package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"nftmarket/core/events"
	"nftmarket/native/market"
	"nftmarket/storage/marketstore"
)

// MarketModule exposes the marketplace engine over JSON-RPC. A single mutex
// serializes every call, mutating or not, so engine operations always observe
// a quiescent state.
type MarketModule struct {
	mu     sync.Mutex
	engine *market.Engine
	store  *marketstore.Store
	events *events.Memory
}

// NewMarketModule constructs the marketplace RPC module.
func NewMarketModule(engine *market.Engine, store *marketstore.Store, evts *events.Memory) *MarketModule {
	return &MarketModule{engine: engine, store: store, events: evts}
}

type createItemParams struct {
	Caller string `json:"caller"`
	Owner  string `json:"owner,omitempty"`
	URI    string `json:"uri"`
}

type itemParams struct {
	ItemID uint64 `json:"itemId"`
}

type callerItemParams struct {
	Caller string `json:"caller"`
	ItemID uint64 `json:"itemId"`
}

type listItemParams struct {
	Caller string `json:"caller"`
	ItemID uint64 `json:"itemId"`
	Price  string `json:"price"`
}

type listAuctionParams struct {
	Caller     string `json:"caller"`
	ItemID     uint64 `json:"itemId"`
	StartPrice string `json:"startPrice"`
}

type makeBidParams struct {
	Caller string `json:"caller"`
	ItemID uint64 `json:"itemId"`
	Amount string `json:"amount"`
}

type amountParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type durationParams struct {
	Caller  string `json:"caller"`
	Seconds int64  `json:"seconds"`
}

type withdrawParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type listEventsParams struct {
	Type  string `json:"type,omitempty"`
	Limit *int   `json:"limit,omitempty"`
}

// ItemResult represents a stored item returned over RPC.
type ItemResult struct {
	ID     uint64 `json:"id"`
	Owner  string `json:"owner"`
	URI    string `json:"uri"`
	Status string `json:"status"`
}

// SaleOrderResult represents the latest sale order for an item.
type SaleOrderResult struct {
	ItemID    uint64 `json:"itemId"`
	Seller    string `json:"seller"`
	Initiator string `json:"initiator"`
	Price     string `json:"price"`
	Status    string `json:"status"`
}

// AuctionOrderResult represents the latest auction order for an item.
type AuctionOrderResult struct {
	ItemID     uint64 `json:"itemId"`
	Seller     string `json:"seller"`
	Initiator  string `json:"initiator"`
	StartPrice string `json:"startPrice"`
	StartTime  int64  `json:"startTime"`
	CurrentBid string `json:"currentBid"`
	BidCount   uint64 `json:"bidCount"`
	LastBidder string `json:"lastBidder,omitempty"`
	Status     string `json:"status"`
}

// ParamsResult represents the administrative parameter set.
type ParamsResult struct {
	MintPrice       string `json:"mintPrice"`
	AuctionDuration int64  `json:"auctionDuration"`
	MinBidAmount    string `json:"minBidAmount"`
}

// StatsResult carries the marketplace counters.
type StatsResult struct {
	TotalItems uint64 `json:"totalItems"`
	ItemsSold  uint64 `json:"itemsSold"`
}

// EventResult represents an emitted marketplace event.
type EventResult struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// AckResult is returned by mutating methods that have no richer payload.
type AckResult struct {
	ItemID uint64 `json:"itemId,omitempty"`
	OK     bool   `json:"ok"`
}

var errModuleOffline = &ModuleError{HTTPStatus: 503, Code: codeServerError, Message: "market module is not available"}

func (m *MarketModule) ready() *ModuleError {
	if m == nil || m.engine == nil {
		return errModuleOffline
	}
	return nil
}

// CreateItem mints a new item, charging the creation fee to the caller. The
// optional owner field mints on behalf of another account.
func (m *MarketModule) CreateItem(raw json.RawMessage) (*ItemResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params createItemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	owner := caller
	if strings.TrimSpace(params.Owner) != "" {
		if owner, err = parseAddress(params.Owner); err != nil {
			return nil, invalidParams(err.Error(), nil)
		}
	}
	if strings.TrimSpace(params.URI) == "" {
		return nil, invalidParams("uri is required", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, engineErr := m.engine.CreateItem(caller, owner, params.URI)
	if engineErr != nil {
		return nil, moduleError(engineErr)
	}
	result := formatItem(item)
	return &result, nil
}

// ListItem places an item on fixed-price sale.
func (m *MarketModule) ListItem(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params listItemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.ListItem(caller, params.ItemID, price); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{ItemID: params.ItemID, OK: true}, nil
}

// BuyItem purchases a listed item at its asking price.
func (m *MarketModule) BuyItem(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	params, caller, perr := decodeCallerItem(raw)
	if perr != nil {
		return nil, perr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.BuyItem(caller, params.ItemID); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{ItemID: params.ItemID, OK: true}, nil
}

// Cancel delists an item from fixed-price sale.
func (m *MarketModule) Cancel(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	params, caller, perr := decodeCallerItem(raw)
	if perr != nil {
		return nil, perr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.Cancel(caller, params.ItemID); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{ItemID: params.ItemID, OK: true}, nil
}

// ListItemOnAuction places an item on ascending-bid auction.
func (m *MarketModule) ListItemOnAuction(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params listAuctionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	startPrice, err := parseAmount(params.StartPrice)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.ListItemOnAuction(caller, params.ItemID, startPrice); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{ItemID: params.ItemID, OK: true}, nil
}

// MakeBid escrows a bid on a running auction.
func (m *MarketModule) MakeBid(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params makeBidParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.MakeBid(caller, params.ItemID, amount); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{ItemID: params.ItemID, OK: true}, nil
}

// FinishAuction settles an auction whose minimum duration has elapsed. Anyone
// may call it.
func (m *MarketModule) FinishAuction(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params itemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.FinishAuction(params.ItemID); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{ItemID: params.ItemID, OK: true}, nil
}

// CancelAuction withdraws a bidless auction.
func (m *MarketModule) CancelAuction(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	params, caller, perr := decodeCallerItem(raw)
	if perr != nil {
		return nil, perr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.CancelAuction(caller, params.ItemID); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{ItemID: params.ItemID, OK: true}, nil
}

// Burn destroys an item the caller owns.
func (m *MarketModule) Burn(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	params, caller, perr := decodeCallerItem(raw)
	if perr != nil {
		return nil, perr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.Burn(caller, params.ItemID); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{ItemID: params.ItemID, OK: true}, nil
}

// GetItem fetches a stored item record.
func (m *MarketModule) GetItem(raw json.RawMessage) (*ItemResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params itemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, engineErr := m.engine.Item(params.ItemID)
	if engineErr != nil {
		return nil, moduleError(engineErr)
	}
	result := formatItem(item)
	return &result, nil
}

// ListItems returns every stored item in ascending identifier order.
func (m *MarketModule) ListItems(json.RawMessage) ([]ItemResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if m.store == nil {
		return nil, errModuleOffline
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.store.Items()
	if err != nil {
		return nil, moduleError(err)
	}
	results := make([]ItemResult, 0, len(items))
	for _, item := range items {
		results = append(results, formatItem(item))
	}
	return results, nil
}

// GetSaleOrder fetches the latest sale order for an item, terminal or not.
func (m *MarketModule) GetSaleOrder(raw json.RawMessage) (*SaleOrderResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params itemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, engineErr := m.engine.SaleOrder(params.ItemID)
	if engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &SaleOrderResult{
		ItemID:    params.ItemID,
		Seller:    formatAddress(order.Seller),
		Initiator: formatAddress(order.Initiator),
		Price:     order.Price.String(),
		Status:    saleStatusLabel(order.Status),
	}, nil
}

// GetAuctionOrder fetches the latest auction order for an item, terminal or
// not.
func (m *MarketModule) GetAuctionOrder(raw json.RawMessage) (*AuctionOrderResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params itemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, engineErr := m.engine.AuctionOrder(params.ItemID)
	if engineErr != nil {
		return nil, moduleError(engineErr)
	}
	result := &AuctionOrderResult{
		ItemID:     params.ItemID,
		Seller:     formatAddress(order.Seller),
		Initiator:  formatAddress(order.Initiator),
		StartPrice: order.StartPrice.String(),
		StartTime:  order.StartTime,
		CurrentBid: order.CurrentBid.String(),
		BidCount:   order.BidCount,
		Status:     auctionStatusLabel(order.Status),
	}
	if order.LastBidder != ([20]byte{}) {
		result.LastBidder = formatAddress(order.LastBidder)
	}
	return result, nil
}

// GetParams returns the administrative parameter set.
func (m *MarketModule) GetParams(json.RawMessage) (*ParamsResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	params, engineErr := m.engine.Params()
	if engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &ParamsResult{
		MintPrice:       params.MintPrice.String(),
		AuctionDuration: params.AuctionDuration,
		MinBidAmount:    params.MinBidAmount.String(),
	}, nil
}

// UpdateMintPrice changes the creation fee. Administrator only.
func (m *MarketModule) UpdateMintPrice(raw json.RawMessage) (*AckResult, *ModuleError) {
	return m.updateAmountParam(raw, m.engineUpdateMintPrice)
}

// UpdateMinBidAmount changes the additive bid floor. Administrator only.
func (m *MarketModule) UpdateMinBidAmount(raw json.RawMessage) (*AckResult, *ModuleError) {
	return m.updateAmountParam(raw, m.engineUpdateMinBid)
}

func (m *MarketModule) engineUpdateMintPrice(caller [20]byte, amount *big.Int) error {
	return m.engine.UpdateMintPrice(caller, amount)
}

func (m *MarketModule) engineUpdateMinBid(caller [20]byte, amount *big.Int) error {
	return m.engine.UpdateMinBidAmount(caller, amount)
}

func (m *MarketModule) updateAmountParam(raw json.RawMessage, apply func([20]byte, *big.Int) error) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params amountParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := apply(caller, amount); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{OK: true}, nil
}

// UpdateAuctionDuration changes the minimum auction duration in seconds.
// Administrator only.
func (m *MarketModule) UpdateAuctionDuration(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params durationParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.UpdateAuctionDuration(caller, params.Seconds); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{OK: true}, nil
}

// WithdrawTokens sweeps accumulated creation fees to the given account.
// Administrator only.
func (m *MarketModule) WithdrawTokens(raw json.RawMessage) (*AckResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var params withdrawParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("invalid parameter object", err.Error())
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	to, err := parseAddress(params.To)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if engineErr := m.engine.WithdrawTokens(caller, to, amount); engineErr != nil {
		return nil, moduleError(engineErr)
	}
	return &AckResult{OK: true}, nil
}

// GetStats returns the marketplace counters.
func (m *MarketModule) GetStats(json.RawMessage) (*StatsResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	total, err := m.engine.TotalItems()
	if err != nil {
		return nil, moduleError(err)
	}
	sold, err := m.engine.ItemsSold()
	if err != nil {
		return nil, moduleError(err)
	}
	return &StatsResult{TotalItems: total, ItemsSold: sold}, nil
}

// TotalItems returns the count of live (created and not burned) items.
func (m *MarketModule) TotalItems(json.RawMessage) (uint64, *ModuleError) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	total, err := m.engine.TotalItems()
	if err != nil {
		return 0, moduleError(err)
	}
	return total, nil
}

// ItemsSold returns the count of completed sales and successful auctions.
func (m *MarketModule) ItemsSold(json.RawMessage) (uint64, *ModuleError) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sold, err := m.engine.ItemsSold()
	if err != nil {
		return 0, moduleError(err)
	}
	return sold, nil
}

// ListEvents returns recent marketplace events, optionally filtered by type.
func (m *MarketModule) ListEvents(raw json.RawMessage) ([]EventResult, *ModuleError) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if m.events == nil {
		return []EventResult{}, nil
	}
	var params listEventsParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, invalidParams("invalid parameter object", err.Error())
		}
	}
	wanted := strings.TrimSpace(params.Type)
	stored := m.events.List()
	results := make([]EventResult, 0, len(stored))
	for _, evt := range stored {
		if wanted != "" && evt.Type != wanted {
			continue
		}
		attrs := make(map[string]string, len(evt.Attributes))
		for k, v := range evt.Attributes {
			attrs[k] = v
		}
		results = append(results, EventResult{Type: evt.Type, Attributes: attrs})
	}
	if params.Limit != nil {
		limit := *params.Limit
		if limit >= 0 && limit < len(results) {
			results = results[len(results)-limit:]
		}
	}
	return results, nil
}

func decodeCallerItem(raw json.RawMessage) (callerItemParams, [20]byte, *ModuleError) {
	var params callerItemParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, [20]byte{}, invalidParams("invalid parameter object", err.Error())
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return params, [20]byte{}, invalidParams(err.Error(), nil)
	}
	return params, caller, nil
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return addr, fmt.Errorf("address is required")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q", value)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: expected %d bytes", value, len(addr))
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatItem(item *market.Item) ItemResult {
	return ItemResult{
		ID:     item.ID,
		Owner:  formatAddress(item.Owner),
		URI:    item.URI,
		Status: itemStatusLabel(item.Status),
	}
}

func itemStatusLabel(status market.ItemStatus) string {
	switch status {
	case market.ItemActive:
		return "active"
	case market.ItemOnSale:
		return "onSale"
	case market.ItemOnAuction:
		return "onAuction"
	case market.ItemBurned:
		return "burned"
	default:
		return "unknown"
	}
}

func saleStatusLabel(status market.SaleStatus) string {
	switch status {
	case market.SaleActive:
		return "active"
	case market.SaleSold:
		return "sold"
	case market.SaleCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func auctionStatusLabel(status market.AuctionStatus) string {
	switch status {
	case market.AuctionActive:
		return "active"
	case market.AuctionSuccessfullyEnded:
		return "successfullyEnded"
	case market.AuctionUnsuccessfullyEnded:
		return "unsuccessfullyEnded"
	default:
		return "unknown"
	}
}
