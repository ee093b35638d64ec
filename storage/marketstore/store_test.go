package marketstore

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/native/market"
	"nftmarket/storage"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestItemRoundTrip(t *testing.T) {
	store := New(storage.NewMemDB())
	item := &market.Item{
		ID:     7,
		Owner:  testAddr(0x0A),
		URI:    "ipfs://seven",
		Status: market.ItemOnSale,
	}
	require.NoError(t, store.ItemPut(item))

	loaded, ok := store.ItemGet(7)
	require.True(t, ok)
	require.Equal(t, item, loaded)

	_, ok = store.ItemGet(8)
	require.False(t, ok)
}

func TestItemsOrderedByID(t *testing.T) {
	store := New(storage.NewMemDB())
	for _, id := range []uint64{300, 2, 1, 256} {
		require.NoError(t, store.ItemPut(&market.Item{
			ID:     id,
			Owner:  testAddr(0x0A),
			URI:    "ipfs://x",
			Status: market.ItemActive,
		}))
	}
	items, err := store.Items()
	require.NoError(t, err)
	ids := make([]uint64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []uint64{1, 2, 256, 300}, ids)
}

func TestSaleOrderLifecycle(t *testing.T) {
	store := New(storage.NewMemDB())
	order := &market.SaleOrder{
		Seller:    testAddr(0x0A),
		Initiator: testAddr(0x0B),
		Price:     big.NewInt(200),
		Status:    market.SaleActive,
	}
	require.NoError(t, store.SaleOrderPut(1, order))

	loaded, ok := store.SaleOrderGet(1)
	require.True(t, ok)
	require.Equal(t, order, loaded)

	require.NoError(t, store.SaleOrderDelete(1))
	_, ok = store.SaleOrderGet(1)
	require.False(t, ok)
}

func TestAuctionOrderRoundTrip(t *testing.T) {
	store := New(storage.NewMemDB())
	order := &market.AuctionOrder{
		StartPrice: big.NewInt(50),
		StartTime:  1_700_000_000,
		CurrentBid: big.NewInt(85),
		BidCount:   2,
		Seller:     testAddr(0x0A),
		Initiator:  testAddr(0x0A),
		LastBidder: testAddr(0x0C),
		Status:     market.AuctionActive,
	}
	require.NoError(t, store.AuctionOrderPut(1, order))

	loaded, ok := store.AuctionOrderGet(1)
	require.True(t, ok)
	require.Equal(t, order, loaded)
}

func TestParamsRoundTrip(t *testing.T) {
	store := New(storage.NewMemDB())
	_, ok := store.ParamsGet()
	require.False(t, ok)

	params := &market.Params{
		MintPrice:       big.NewInt(500),
		AuctionDuration: 86400,
		MinBidAmount:    big.NewInt(10),
	}
	require.NoError(t, store.ParamsPut(params))

	loaded, ok := store.ParamsGet()
	require.True(t, ok)
	require.Equal(t, params, loaded)
}

func TestCountersDefaultToZero(t *testing.T) {
	store := New(storage.NewMemDB())
	value, err := store.CounterGet("market/totalItems")
	require.NoError(t, err)
	require.Zero(t, value)

	require.NoError(t, store.CounterPut("market/totalItems", 42))
	value, err = store.CounterGet("market/totalItems")
	require.NoError(t, err)
	require.Equal(t, uint64(42), value)
}

// The store must satisfy the persistence surface the engine configures.
func TestStoreBacksEngine(t *testing.T) {
	store := New(storage.NewMemDB())
	engine := market.NewEngine()
	engine.SetState(store)
	require.NoError(t, engine.SeedParams(&market.Params{
		MintPrice:       big.NewInt(0),
		AuctionDuration: 100,
		MinBidAmount:    big.NewInt(10),
	}))
	params, err := engine.Params()
	require.NoError(t, err)
	require.Equal(t, int64(100), params.AuctionDuration)
}
