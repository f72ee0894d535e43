package tool

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	catalogx "github.com/orderai/orderai/agent/catalog"
	contractx "github.com/orderai/orderai/agent/contract"
	orderx "github.com/orderai/orderai/agent/order"
	sessionx "github.com/orderai/orderai/agent/session"
	storex "github.com/orderai/orderai/agent/store"
)

type pushRecord struct {
	sessionID   string
	snapshot    any
	orderNumber int
	finalized   bool
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushes []pushRecord
}

func (f *fakeNotifier) PushOrderSnapshot(sessionID string, snapshot any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, pushRecord{sessionID: sessionID, snapshot: snapshot})
}

func (f *fakeNotifier) PushFinalized(sessionID string, orderNumber int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, pushRecord{sessionID: sessionID, orderNumber: orderNumber, finalized: true})
}

func (f *fakeNotifier) all() []pushRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushRecord(nil), f.pushes...)
}

type failingStore struct{}

func (failingStore) Append(ctx context.Context, build func(count int) orderx.FinalizedOrder) (orderx.FinalizedOrder, error) {
	return orderx.FinalizedOrder{}, contractx.ErrStorage
}

func (failingStore) Count(ctx context.Context) (int, error) { return 0, contractx.ErrStorage }

func (failingStore) List(ctx context.Context) ([]orderx.FinalizedOrder, error) {
	return nil, contractx.ErrStorage
}

type fixture struct {
	dispatcher *Dispatcher
	sessions   *sessionx.Registry
	notifier   *fakeNotifier
	store      orderx.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fileStore, err := storex.NewFileStore(storex.FileConfig{Path: filepath.Join(t.TempDir(), "orders.json")})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return newFixtureWithStore(fileStore)
}

func newFixtureWithStore(s orderx.Store) *fixture {
	sessions := sessionx.NewRegistry()
	notifier := &fakeNotifier{}
	return &fixture{
		dispatcher: NewDispatcher(catalogx.Default(), sessions, orderx.NewFinalizer(s), notifier),
		sessions:   sessions,
		notifier:   notifier,
		store:      s,
	}
}

func TestInfosClosedToolSet(t *testing.T) {
	t.Parallel()

	infos := Infos()
	if len(infos) != 3 {
		t.Fatalf("expected 3 tool infos, got %d", len(infos))
	}
	want := []string{contractx.ToolUpdateOrder, contractx.ToolRemoveOrderItem, contractx.ToolPlaceOrder}
	for i, name := range want {
		if infos[i].Name != name {
			t.Fatalf("infos[%d].Name = %s, want %s", i, infos[i].Name, name)
		}
	}
}

func TestUpdateOrderAddsAndPushes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()

	result := f.dispatcher.Execute(context.Background(), sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{
			"order_item_ids": []any{float64(1)},
			"quantity":       float64(2),
		},
	})

	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	snap, ok := result.Result.(orderx.Snapshot)
	if !ok {
		t.Fatalf("unexpected result type %T", result.Result)
	}
	if len(snap.Items) != 1 || snap.Items[0].Quantity != 2 {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
	if snap.Items[0].TotalPrice != 19.98 || snap.Total != 19.98 {
		t.Fatalf("unexpected totals: %#v", snap)
	}

	pushes := f.notifier.all()
	if len(pushes) != 1 || pushes[0].finalized {
		t.Fatalf("expected one snapshot push, got %#v", pushes)
	}
	if pushes[0].sessionID != sess.ID {
		t.Fatalf("push session = %s, want %s", pushes[0].sessionID, sess.ID)
	}
}

func TestUpdateOrderSkipsUnknownIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()

	result := f.dispatcher.Execute(context.Background(), sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{
			"order_item_ids": []any{float64(99), float64(3), float64(404)},
		},
	})

	if result.Error != "" {
		t.Fatalf("unknown ids must not fail the batch: %s", result.Error)
	}
	snap := result.Result.(orderx.Snapshot)
	if len(snap.Items) != 1 || snap.Items[0].ID != 3 {
		t.Fatalf("partial success expected: %#v", snap)
	}
}

func TestUpdateOrderSkipsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()

	result := f.dispatcher.Execute(context.Background(), sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{
			"order_item_ids": []any{float64(1)},
			"quantity":       float64(0),
		},
	})

	if result.Error != "" {
		t.Fatalf("non-positive quantity must not fail the call: %s", result.Error)
	}
	snap := result.Result.(orderx.Snapshot)
	if len(snap.Items) != 0 {
		t.Fatalf("offending entry must be skipped: %#v", snap)
	}
}

func TestUpdateOrderInstructionVariants(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()
	ctx := context.Background()

	_ = f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{
			"order_item_ids":       []any{float64(1)},
			"special_instructions": "no cheese",
		},
	})
	result := f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{
			"order_item_ids": []any{float64(1)},
		},
	})

	snap := result.Result.(orderx.Snapshot)
	if len(snap.Items) != 2 {
		t.Fatalf("distinct instructions must stay distinct: %#v", snap)
	}
	if snap.Items[0].Instructions != "no cheese" || snap.Items[1].Instructions != orderx.NoInstructions {
		t.Fatalf("unexpected instructions: %#v", snap.Items)
	}
}

func TestRemoveOrderItemAllAndPartial(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()
	ctx := context.Background()

	_ = f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{"order_item_ids": []any{float64(1)}, "quantity": float64(3)},
	})
	_ = f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{"order_item_ids": []any{float64(3)}},
	})

	result := f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolRemoveOrderItem,
		Args: map[string]any{"order_item_ids": []any{float64(1)}, "quantity": float64(1)},
	})
	snap := result.Result.(orderx.Snapshot)
	if len(snap.Items) != 2 || snap.Items[0].Quantity != 2 {
		t.Fatalf("partial remove: %#v", snap)
	}

	result = f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolRemoveOrderItem,
		Args: map[string]any{"order_item_ids": []any{float64(1)}},
	})
	snap = result.Result.(orderx.Snapshot)
	if len(snap.Items) != 1 || snap.Items[0].ID != 3 {
		t.Fatalf("remove all variants: %#v", snap)
	}
}

func TestPlaceOrderFinalizesAndClears(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()
	ctx := context.Background()

	_ = f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{"order_item_ids": []any{float64(1)}, "quantity": float64(2)},
	})

	result := f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{Tool: contractx.ToolPlaceOrder})
	if result.Error != "" {
		t.Fatalf("place_order error = %s", result.Error)
	}
	out, ok := result.Result.(contractx.PlaceOrderOutput)
	if !ok {
		t.Fatalf("unexpected result type %T", result.Result)
	}
	if out.Status != "completed" || out.OrderNumber != 1 {
		t.Fatalf("unexpected confirmation: %#v", out)
	}
	if !sess.Ledger.Empty() {
		t.Fatal("ledger must be cleared after place_order")
	}

	count, err := f.store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("store count = %d, want 1", count)
	}

	pushes := f.notifier.all()
	last := pushes[len(pushes)-1]
	if !last.finalized || last.orderNumber != 1 {
		t.Fatalf("last push must be past_order with number 1: %#v", last)
	}
}

func TestPlaceOrderStorageFailure(t *testing.T) {
	t.Parallel()

	f := newFixtureWithStore(failingStore{})
	sess := f.sessions.Start()
	ctx := context.Background()

	_ = f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{"order_item_ids": []any{float64(1)}},
	})
	before := len(f.notifier.all())

	result := f.dispatcher.Execute(ctx, sess.ID, contractx.ToolRequest{Tool: contractx.ToolPlaceOrder})
	if result.Error == "" {
		t.Fatal("expected tool error on storage failure")
	}
	if sess.Ledger.Empty() {
		t.Fatal("ledger must survive a failed finalize")
	}
	if len(f.notifier.all()) != before {
		t.Fatal("no notification may be sent on a failed finalize")
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()

	result := f.dispatcher.Execute(context.Background(), sess.ID, contractx.ToolRequest{Tool: "refund_order"})
	if result.Error == "" {
		t.Fatal("unknown tool must be rejected")
	}
}

func TestExecuteDeadSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()
	f.sessions.End(sess.ID)

	result := f.dispatcher.Execute(context.Background(), sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{"order_item_ids": []any{float64(1)}},
	})
	if result.Error == "" {
		t.Fatal("dead session must surface an in-band error")
	}
	if len(f.notifier.all()) != 0 {
		t.Fatal("no push for a dead session")
	}
}

func TestExecuteMissingRequiredArg(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.sessions.Start()

	result := f.dispatcher.Execute(context.Background(), sess.ID, contractx.ToolRequest{
		Tool: contractx.ToolUpdateOrder,
		Args: map[string]any{},
	})
	if result.Error == "" {
		t.Fatal("missing order_item_ids must be rejected")
	}
	if !strings.Contains(result.Error, "order_item_ids") {
		t.Fatalf("error should name the missing arg: %s", result.Error)
	}
}
