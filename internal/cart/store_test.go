package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverItem struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

// fakeServer is an in-memory marketplace cart keyed by item id.
type fakeServer struct {
	mu      sync.Mutex
	items   map[int64]*serverItem
	nextID  int64
	prices  map[int64]int64
	wrap    func([]byte) []byte
	failGet error
	failAdd map[int64]error
	calls   []string
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		items:   map[int64]*serverItem{},
		nextID:  100,
		prices:  map[int64]int64{},
		wrap:    func(b []byte) []byte { return b },
		failAdd: map[int64]error{},
	}
}

func (f *fakeServer) record(c string) {
	f.calls = append(f.calls, c)
}

func (f *fakeServer) GetCart(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get")
	if f.failGet != nil {
		return nil, f.failGet
	}
	ids := make([]int64, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rows := make([]serverItem, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, *f.items[id])
	}
	b, _ := json.Marshal(rows)
	return f.wrap(b), nil
}

func (f *fakeServer) AddItem(_ context.Context, productID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("add %d x%d", productID, quantity))
	if err := f.failAdd[productID]; err != nil {
		return err
	}
	for _, it := range f.items {
		if it.ProductID == productID {
			it.Quantity += quantity
			return nil
		}
	}
	f.nextID++
	f.items[f.nextID] = &serverItem{ID: f.nextID, ProductID: productID, Quantity: quantity, Price: f.prices[productID]}
	return nil
}

func (f *fakeServer) UpdateItem(_ context.Context, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("update %d x%d", itemID, quantity))
	it, ok := f.items[itemID]
	if !ok {
		return &api.Error{Status: 404, Message: "cart item not found"}
	}
	it.Quantity = quantity
	return nil
}

func (f *fakeServer) RemoveItem(_ context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("remove %d", itemID))
	delete(f.items, itemID)
	return nil
}

func (f *fakeServer) ClearCart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clear")
	f.items = map[int64]*serverItem{}
	return nil
}

type fakeSession struct {
	authenticated bool
}

func (s *fakeSession) Authenticated(context.Context) bool {
	return s.authenticated
}

func newTestStore(t *testing.T, authenticated bool) (*Store, *fakeServer, *storage.Scoped, *fakeSession) {
	t.Helper()
	server := newFakeServer()
	pending := storage.NewScoped(storage.NewMemoryStorage(), "visitor-1")
	session := &fakeSession{authenticated: authenticated}
	return NewStore(server, pending, session, logger.Discard()), server, pending, session
}

func TestLoad_TotalPrice(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)
	server.prices[1] = 100000
	server.prices[2] = 50000
	ctx := context.Background()

	require.NoError(t, server.AddItem(ctx, 1, 2))
	require.NoError(t, server.AddItem(ctx, 2, 1))
	require.NoError(t, store.Load(ctx))

	assert.True(t, decimal.NewFromInt(250000).Equal(store.TotalPrice()), "got %s", store.TotalPrice())
	assert.Equal(t, 3, store.Count())
	assert.Empty(t, store.LastError())
}

func TestLoad_SameItemsForEveryShape(t *testing.T) {
	wrappers := map[string]func([]byte) []byte{
		"bare":   func(b []byte) []byte { return b },
		"items":  func(b []byte) []byte { return []byte(`{"items":` + string(b) + `}`) },
		"data":   func(b []byte) []byte { return []byte(`{"data":` + string(b) + `}`) },
		"nested": func(b []byte) []byte { return []byte(`{"data":{"items":` + string(b) + `}}`) },
	}

	for name, wrap := range wrappers {
		t.Run(name, func(t *testing.T) {
			store, server, _, _ := newTestStore(t, true)
			server.prices[1] = 100
			ctx := context.Background()
			require.NoError(t, server.AddItem(ctx, 1, 2))
			require.NoError(t, server.AddItem(ctx, 7, 1))
			server.wrap = wrap

			require.NoError(t, store.Load(ctx))
			items := store.Items()
			require.Len(t, items, 2)
			assert.Equal(t, "101", items[0].ID)
			assert.Equal(t, int64(1), items[0].ProductID)
			assert.Equal(t, "102", items[1].ID)
		})
	}
}

func TestLoad_FailureResetsAndRecordsMessage(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)
	ctx := context.Background()
	require.NoError(t, server.AddItem(ctx, 1, 1))
	require.NoError(t, store.Load(ctx))
	require.Equal(t, 1, store.Count())

	server.failGet = &api.Error{Status: 500, Message: "database down"}
	err := store.Load(ctx)

	require.Error(t, err)
	assert.Empty(t, store.Items())
	assert.Equal(t, 0, store.Count())
	assert.Equal(t, "database down", store.LastError())
}

func TestLoad_UnknownShapeIsAnError(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)
	server.wrap = func([]byte) []byte { return []byte(`{"rows":[]}`) }

	err := store.Load(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, store.LastError())
	assert.Empty(t, store.Items())
}

func TestCountTracksQuantitiesAcrossMutations(t *testing.T) {
	store, _, _, _ := newTestStore(t, true)
	ctx := context.Background()

	require.True(t, store.Add(ctx, AddInput{ProductID: 1, Quantity: 2}).OK)
	require.True(t, store.Add(ctx, AddInput{ProductID: 2, Quantity: 3}).OK)
	assert.Equal(t, 5, store.Count())

	first := store.Items()[0].ID
	require.True(t, store.UpdateQuantity(ctx, first, 4).OK)
	assert.Equal(t, 7, store.Count())

	second := store.Items()[1].ID
	require.True(t, store.Remove(ctx, second).OK)
	assert.Equal(t, 4, store.Count())

	sum := 0
	for _, it := range store.Items() {
		sum += it.Quantity
	}
	assert.Equal(t, sum, store.Count())
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)
	ctx := context.Background()
	require.True(t, store.Add(ctx, AddInput{ProductID: 1, Quantity: 1}).OK)
	id := store.Items()[0].ID

	res := store.UpdateQuantity(ctx, id, 0)

	assert.True(t, res.OK)
	assert.Empty(t, store.Items())
	assert.Contains(t, server.calls, "remove "+id)
}

func TestAdd_AuthenticatedReloadsInsteadOfMerging(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)
	ctx := context.Background()

	require.True(t, store.Add(ctx, AddInput{ProductID: 1, Quantity: 1}).OK)
	require.True(t, store.Add(ctx, AddInput{ProductID: 1, Quantity: 2}).OK)

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, []string{"add 1 x1", "get", "add 1 x2", "get"}, server.calls)
}

func TestAdd_RejectsInvalidInputWithoutCalls(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)
	ctx := context.Background()

	res := store.Add(ctx, AddInput{ProductID: 1, Quantity: 0})
	assert.False(t, res.OK)
	assert.Equal(t, ErrInvalidQuantity.Error(), res.Message)

	res = store.Add(ctx, AddInput{ProductID: 0, Quantity: 1})
	assert.False(t, res.OK)
	assert.Equal(t, ErrInvalidProduct.Error(), res.Message)

	assert.Empty(t, server.calls)
}

func TestAdd_UpstreamErrorBecomesMessage(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)
	server.failAdd[9] = &api.Error{Status: 409, Message: "out of stock"}

	res := store.Add(context.Background(), AddInput{ProductID: 9, Quantity: 1})

	assert.False(t, res.OK)
	assert.Equal(t, "out of stock", res.Message)
}

func TestAdd_AnonymousStagesAndMerges(t *testing.T) {
	store, server, pending, _ := newTestStore(t, false)
	ctx := context.Background()

	res := store.Add(ctx, AddInput{ProductID: 5, Quantity: 1, UnitPrice: decimal.NewFromInt(20)})
	assert.Equal(t, Result{OK: true, Staged: true}, res)
	res = store.Add(ctx, AddInput{ProductID: 5, Quantity: 2, UnitPrice: decimal.NewFromInt(20)})
	assert.True(t, res.Staged)

	items := store.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].IsTemporary())
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(60).Equal(store.TotalPrice()))
	assert.Empty(t, server.calls)

	entries, err := pending.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].AddedAt.IsZero())
}

func TestAnonymous_UpdateAndRemoveTemporaryItems(t *testing.T) {
	store, _, pending, _ := newTestStore(t, false)
	ctx := context.Background()
	store.Add(ctx, AddInput{ProductID: 5, Quantity: 1})
	store.Add(ctx, AddInput{ProductID: 6, Quantity: 1})
	items := store.Items()
	require.Len(t, items, 2)

	require.True(t, store.UpdateQuantity(ctx, items[0].ID, 4).OK)
	assert.Equal(t, 5, store.Count())

	require.True(t, store.UpdateQuantity(ctx, items[1].ID, 0).OK)
	assert.Equal(t, 4, store.Count())

	entries, err := pending.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, items[0].ID, entries[0].ID)

	res := store.Remove(ctx, "temp-missing")
	assert.False(t, res.OK)
	assert.Equal(t, ErrUnknownItem.Error(), res.Message)
}

func TestRemove_NonNumericIDRejected(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)

	res := store.Remove(context.Background(), "abc")

	assert.False(t, res.OK)
	assert.Empty(t, server.calls)
}

func TestClear_UsesBulkEndpointOnly(t *testing.T) {
	store, server, _, _ := newTestStore(t, true)
	ctx := context.Background()
	store.Add(ctx, AddInput{ProductID: 1, Quantity: 1})
	store.Add(ctx, AddInput{ProductID: 2, Quantity: 1})
	server.calls = nil

	require.True(t, store.Clear(ctx).OK)

	assert.Equal(t, []string{"clear", "get"}, server.calls)
	assert.Equal(t, 0, store.Count())
}

func TestClear_AnonymousDropsPending(t *testing.T) {
	store, _, pending, _ := newTestStore(t, false)
	ctx := context.Background()
	store.Add(ctx, AddInput{ProductID: 1, Quantity: 1})

	require.True(t, store.Clear(ctx).OK)

	entries, err := pending.LoadPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, store.Items())
}

func TestUnacknowledged_DeduplicatesLoadedAndPending(t *testing.T) {
	store, _, _, _ := newTestStore(t, false)
	ctx := context.Background()
	store.Add(ctx, AddInput{ProductID: 1, Quantity: 1})
	store.Add(ctx, AddInput{ProductID: 2, Quantity: 1})

	got, err := store.Unacknowledged(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, it := range got {
		assert.True(t, it.IsTemporary())
	}
}

func TestPromotePending_PushesAndClears(t *testing.T) {
	store, server, pending, session := newTestStore(t, false)
	ctx := context.Background()
	store.Add(ctx, AddInput{ProductID: 1, Quantity: 2})
	store.Add(ctx, AddInput{ProductID: 2, Quantity: 1})

	session.authenticated = true
	require.NoError(t, store.PromotePending(ctx))

	entries, err := pending.LoadPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 3, store.Count())
	for _, it := range store.Items() {
		assert.False(t, it.IsTemporary())
	}
	assert.Contains(t, server.calls, "add 1 x2")
	assert.Contains(t, server.calls, "add 2 x1")
}

func TestPromotePending_KeepsRejectedEntries(t *testing.T) {
	store, server, pending, session := newTestStore(t, false)
	ctx := context.Background()
	store.Add(ctx, AddInput{ProductID: 1, Quantity: 1})
	store.Add(ctx, AddInput{ProductID: 2, Quantity: 1})
	server.failAdd[2] = errors.New("rejected")

	session.authenticated = true
	err := store.PromotePending(ctx)
	require.Error(t, err)

	entries, errLoad := pending.LoadPending(ctx)
	require.NoError(t, errLoad)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ProductID)
}

func TestConcurrentAnonymousAddsDoNotLoseUpdates(t *testing.T) {
	store, _, _, _ := newTestStore(t, false)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Add(ctx, AddInput{ProductID: 1, Quantity: 1})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, store.Count())
	assert.Len(t, store.Items(), 1)
}

var _ PendingStore = (*storage.Scoped)(nil)
