package store

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
)

type fakeIdempotency struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{locks: map[string]bool{}, values: map[string]string{}}
}

func (f *fakeIdempotency) TryLock(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[scope+key] {
		return false, nil
	}
	f.locks[scope+key] = true
	return true, nil
}

func (f *fakeIdempotency) Release(_ context.Context, scope, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, scope+key)
	return nil
}

func (f *fakeIdempotency) Remember(_ context.Context, scope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[scope+key] = value
	return nil
}

func (f *fakeIdempotency) Recall(_ context.Context, scope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[scope+key]
	return v, ok, nil
}

type publishedEvent struct {
	key   string
	event domain.PurchaseCompletedEvent
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, key string, event any) error {
	p.events = append(p.events, publishedEvent{key: key, event: event.(domain.PurchaseCompletedEvent)})
	return nil
}

type testStore struct {
	mux       *http.ServeMux
	idem      *fakeIdempotency
	publisher *fakePublisher
	reader    *sdkmetric.ManualReader
}

func newTestStore(t *testing.T, balance int64) *testStore {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	metrics, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	ts := &testStore{
		mux:       http.NewServeMux(),
		idem:      newFakeIdempotency(),
		publisher: &fakePublisher{},
		reader:    reader,
	}
	handler := NewHandler(
		newTestSession(balance, &seqRand{vals: []int{0}}),
		ts.publisher,
		ts.idem,
		metrics,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	handler.Routes(ts.mux, nil)
	return ts
}

func (ts *testStore) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func (ts *testStore) checkoutCounts(t *testing.T) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := ts.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "store.checkouts" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				counts[v.AsString()] += dp.Value
			}
		}
	}
	return counts
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHandler_Catalog(t *testing.T) {
	ts := newTestStore(t, 500000)

	t.Run("lists games in order", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/catalog", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		entries := decode[[]map[string]any](t, rec)
		if len(entries) != 3 || entries[0]["key"] != "a" {
			t.Errorf("unexpected catalog: %v", entries)
		}
	})

	t.Run("set price", func(t *testing.T) {
		rec := ts.do(http.MethodPut, "/catalog/a/price", `{"price":50000}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		rec = ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`)
		snap := decode[domain.Snapshot](t, rec)
		if snap.Price != 50000 {
			t.Errorf("expected 50000, got %d", snap.Price)
		}
	})

	t.Run("negative price", func(t *testing.T) {
		rec := ts.do(http.MethodPut, "/catalog/a/price", `{"price":-1}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("unknown game", func(t *testing.T) {
		rec := ts.do(http.MethodPut, "/catalog/zzz/price", `{"price":1}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("missing price", func(t *testing.T) {
		rec := ts.do(http.MethodPut, "/catalog/a/price", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_Cart(t *testing.T) {
	t.Run("add and remove", func(t *testing.T) {
		ts := newTestStore(t, 500000)

		rec := ts.do(http.MethodPost, "/cart/items", `{"key":"b"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		snap := decode[domain.Snapshot](t, rec)
		if snap.Title != "Beta" || snap.Price != 200000 {
			t.Errorf("unexpected snapshot: %+v", snap)
		}

		ts.do(http.MethodPost, "/cart/items", `{"key":"b"}`)
		view := decode[CartView](t, ts.do(http.MethodGet, "/cart", ""))
		if view.Units != 2 || view.UniqueCount != 1 || view.Total != 400000 {
			t.Errorf("unexpected cart: %+v", view)
		}

		body, _ := json.Marshal(snap)
		rec = ts.do(http.MethodPost, "/cart/items/remove", string(body))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		view = decode[CartView](t, ts.do(http.MethodGet, "/cart", ""))
		if view.Units != 1 {
			t.Errorf("expected 1 unit, got %d", view.Units)
		}
	})

	t.Run("tier discount", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		for _, k := range []string{"a", "b", "c"} {
			ts.do(http.MethodPost, "/cart/items", `{"key":"`+k+`"}`)
		}
		view := decode[CartView](t, ts.do(http.MethodGet, "/cart", ""))
		if view.Subtotal != 600000 || view.Discount != 120000 || view.Total != 480000 {
			t.Errorf("unexpected cart: %+v", view)
		}
	})

	t.Run("empty cart renders empty lines", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		rec := ts.do(http.MethodGet, "/cart", "")
		if !strings.Contains(rec.Body.String(), `"lines":[]`) {
			t.Errorf("expected empty lines array, got %s", rec.Body.String())
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		rec := ts.do(http.MethodPost, "/cart/items", `{"key":"nope"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		rec := ts.do(http.MethodPost, "/cart/items", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_Voucher(t *testing.T) {
	ts := newTestStore(t, 500000)

	rec := ts.do(http.MethodPut, "/voucher", `{"percent":150}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	rec = ts.do(http.MethodPut, "/voucher", `{"percent":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	snap := decode[domain.Snapshot](t, ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`))
	if snap.Price != 90000 {
		t.Errorf("expected 90000, got %d", snap.Price)
	}

	rec = ts.do(http.MethodDelete, "/voucher", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	snap = decode[domain.Snapshot](t, ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`))
	if snap.Price != 100000 {
		t.Errorf("expected 100000 after clearing, got %d", snap.Price)
	}
}

func TestHandler_Quote(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		rec := ts.do(http.MethodPost, "/checkout/quote", "")
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		ts := newTestStore(t, 250000)
		ts.do(http.MethodPost, "/cart/items", `{"key":"c"}`)

		rec := ts.do(http.MethodPost, "/checkout/quote", "")
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected status 402, got %d", rec.Code)
		}
		resp := decode[insufficientFundsResponse](t, rec)
		if resp.Shortfall != 50000 || resp.Total != 300000 || resp.Balance != 250000 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("quote does not charge", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`)

		rec := ts.do(http.MethodPost, "/checkout/quote", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		wallet := decode[Wallet](t, ts.do(http.MethodGet, "/wallet", ""))
		if wallet.Balance != 500000 {
			t.Errorf("expected balance 500000, got %d", wallet.Balance)
		}
	})
}

func TestHandler_Checkout(t *testing.T) {
	t.Run("commits quote and publishes event", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		for _, k := range []string{"a", "b", "c"} {
			ts.do(http.MethodPost, "/cart/items", `{"key":"`+k+`"}`)
		}
		q := decode[map[string]any](t, ts.do(http.MethodPost, "/checkout/quote", ""))

		body, _ := json.Marshal(map[string]any{"version": q["version"], "recipient": "Sari"})
		rec := ts.do(http.MethodPost, "/checkout", string(body))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}
		receipt := decode[domain.Receipt](t, rec)
		if receipt.Total != 480000 || receipt.BalanceAfter != 20000 || receipt.Recipient != "Sari" {
			t.Errorf("unexpected receipt: %+v", receipt)
		}

		if len(ts.publisher.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(ts.publisher.events))
		}
		if ts.publisher.events[0].key != receipt.ID {
			t.Errorf("expected event keyed by receipt id")
		}
		if ts.publisher.events[0].event.Receipt.Total != 480000 {
			t.Errorf("unexpected event receipt: %+v", ts.publisher.events[0].event.Receipt)
		}

		wallet := decode[Wallet](t, ts.do(http.MethodGet, "/wallet", ""))
		if wallet.Balance != 20000 || wallet.SpinsAvailable != 3 || wallet.Formatted != "Rp 20 000" {
			t.Errorf("unexpected wallet: %+v", wallet)
		}

		if got := ts.checkoutCounts(t)[OutcomeSuccess]; got != 1 {
			t.Errorf("expected 1 successful checkout, got %d", got)
		}
	})

	t.Run("stale version", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`)
		q := decode[map[string]any](t, ts.do(http.MethodPost, "/checkout/quote", ""))
		ts.do(http.MethodPost, "/cart/items", `{"key":"b"}`)

		body, _ := json.Marshal(map[string]any{"version": q["version"]})
		rec := ts.do(http.MethodPost, "/checkout", string(body))
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
		if got := ts.checkoutCounts(t)[OutcomeStale]; got != 1 {
			t.Errorf("expected 1 stale checkout, got %d", got)
		}
		if len(ts.publisher.events) != 0 {
			t.Errorf("expected no events")
		}
	})

	t.Run("replayed idempotency key charges once", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`)

		first := ts.do(http.MethodPost, "/checkout", "", "Idempotency-Key", "k1")
		if first.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", first.Code)
		}

		ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`)
		second := ts.do(http.MethodPost, "/checkout", "", "Idempotency-Key", "k1")
		if second.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", second.Code)
		}

		r1 := decode[domain.Receipt](t, first)
		r2 := decode[domain.Receipt](t, second)
		if r1.ID != r2.ID {
			t.Errorf("expected same receipt, got %s and %s", r1.ID, r2.ID)
		}

		wallet := decode[Wallet](t, ts.do(http.MethodGet, "/wallet", ""))
		if wallet.Balance != 400000 {
			t.Errorf("expected one charge, balance %d", wallet.Balance)
		}
		if view := decode[CartView](t, ts.do(http.MethodGet, "/cart", "")); view.Units != 1 {
			t.Errorf("expected second cart untouched, got %d units", view.Units)
		}
		if len(ts.publisher.events) != 1 {
			t.Errorf("expected 1 event, got %d", len(ts.publisher.events))
		}
		if got := ts.checkoutCounts(t)[OutcomeReplayed]; got != 1 {
			t.Errorf("expected 1 replay, got %d", got)
		}
	})

	t.Run("failed checkout releases key", func(t *testing.T) {
		ts := newTestStore(t, 500000)

		rec := ts.do(http.MethodPost, "/checkout", "", "Idempotency-Key", "k2")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}

		ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`)
		rec = ts.do(http.MethodPost, "/checkout", "", "Idempotency-Key", "k2")
		if rec.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rec.Code)
		}
	})

	t.Run("key in flight", func(t *testing.T) {
		ts := newTestStore(t, 500000)
		ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`)
		_, _ = ts.idem.TryLock(context.Background(), checkoutScope, "k3")

		rec := ts.do(http.MethodPost, "/checkout", "", "Idempotency-Key", "k3")
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})
}

func TestHandler_Spin(t *testing.T) {
	ts := newTestStore(t, 500000)

	rec := ts.do(http.MethodPost, "/spin", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`)
	ts.do(http.MethodPost, "/checkout", "")

	rec = ts.do(http.MethodPost, "/spin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	res := decode[map[string]any](t, rec)
	if rewards, _ := res["rewards"].([]any); len(rewards) != 1 {
		t.Errorf("expected one reward, got %v", res["rewards"])
	}

	if rec := ts.do(http.MethodPost, "/spin", ""); rec.Code != http.StatusConflict {
		t.Errorf("expected second spin to be refused, got %d", rec.Code)
	}
}

func TestHandler_Deal(t *testing.T) {
	ts := newTestStore(t, 500000)

	deal := decode[map[string]any](t, ts.do(http.MethodGet, "/deal", ""))
	if deal["key"] != "a" || deal["new_price"] != float64(50000) {
		t.Errorf("unexpected deal: %v", deal)
	}

	rec := ts.do(http.MethodPost, "/deal/apply", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	snap := decode[domain.Snapshot](t, ts.do(http.MethodPost, "/cart/items", `{"key":"a"}`))
	if snap.Price != 50000 {
		t.Errorf("expected deal price 50000, got %d", snap.Price)
	}
}
