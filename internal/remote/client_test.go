package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core"
	ledgerhttp "ledgerbook/internal/http"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
	"ledgerbook/internal/settings/memory"
)

func rec(title string, amount int64, category string) core.ExpenseRecord {
	return core.ExpenseRecord{Title: title, Amount: decimal.NewFromInt(amount), Category: category, Date: "Jan 01, 2024"}
}

// newBackend serves a real ledger over the JSON API.
func newBackend(t *testing.T, token string) (*httptest.Server, *ledger.Store) {
	t.Helper()
	store := ledger.New(ledger.NewSettingsPersister(memory.New(), ledger.DefaultKey, nil))
	srv := ledgerhttp.NewServer(":0", store, ledgerhttp.WithToken(token))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, store
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts, backend := newBackend(t, "tok")
	c, err := NewClient(Config{BaseURL: ts.URL, Token: "tok"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	got, err := c.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("initial load: %v %v", got, err)
	}

	local := []core.ExpenseRecord{rec("Taxi", 8000, "Transport"), rec("Lunch", 15000, "Food")}
	if err := c.Save(ctx, local); err != nil {
		t.Fatalf("save: %v", err)
	}
	server := backend.List()
	if len(server) != 2 || server[0].Title != "Taxi" || server[1].Title != "Lunch" {
		t.Fatalf("unexpected server ledger: %+v", server)
	}

	// Remove Lunch locally and add Coffee in front.
	local = []core.ExpenseRecord{rec("Coffee", 3000, "Food"), rec("Taxi", 8000, "Transport")}
	if err := c.Save(ctx, local); err != nil {
		t.Fatalf("second save: %v", err)
	}
	server = backend.List()
	if len(server) != 2 || server[0].Title != "Coffee" || server[1].Title != "Taxi" {
		t.Fatalf("unexpected server ledger after reconcile: %+v", server)
	}

	fresh, err := NewClient(Config{BaseURL: ts.URL, Token: "tok"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	loaded, err := fresh.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || !loaded[0].Equal(local[0]) || !loaded[1].Equal(local[1]) {
		t.Fatalf("loaded %+v, want %+v", loaded, local)
	}
}

func TestLoadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title":"Lunch","amount":"15000","category":"Food","date":"Jan 01, 2024"}]`))
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, MaxRetries: 5, RetryInterval: time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Lunch" || calls.Load() != 3 {
		t.Fatalf("got %+v after %d calls", got, calls.Load())
	}
}

func TestLoadDoesNotRetryClientErrors(t *testing.T) {
	ts, _ := newBackend(t, "tok")
	var calls atomic.Int32
	counting := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return http.DefaultTransport.RoundTrip(r)
	})}

	c, err := NewClient(Config{BaseURL: ts.URL, Token: "wrong", MaxRetries: 5, RetryInterval: time.Millisecond, HTTPClient: counting}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Load(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestLoadDropsUnexpandableAmountsAndSaveDeletesThem(t *testing.T) {
	var (
		mu      sync.Mutex
		deleted []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"title":"Huge","amount":"1e900000000","category":"c","date":"d"},
				{"title":"Taxi","amount":"8000","category":"Transport","date":"Jan 01, 2024"}
			]`))
		case http.MethodDelete:
			mu.Lock()
			deleted = append(deleted, r.URL.Path)
			mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Taxi" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if total := core.Total(got); !total.Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("unexpected total %s", total)
	}

	if err := c.Save(context.Background(), got); err != nil {
		t.Fatalf("save: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "/api/expenses/0" {
		t.Fatalf("expected the dropped record to be deleted, got %v", deleted)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "://bad"} {
		if _, err := NewClient(Config{BaseURL: u}, nil); err == nil {
			t.Fatalf("expected error for %q", u)
		}
	}
}

func TestReconcile(t *testing.T) {
	a, b, c, d := rec("a", 1, ""), rec("b", 2, ""), rec("c", 3, ""), rec("d", 4, "")
	tests := []struct {
		name        string
		known       []core.ExpenseRecord
		local       []core.ExpenseRecord
		wantRemoved []int
		wantAdded   []int
	}{
		{"unchanged", []core.ExpenseRecord{a, b}, []core.ExpenseRecord{a, b}, nil, nil},
		{"prepend", []core.ExpenseRecord{a, b}, []core.ExpenseRecord{c, d, a, b}, nil, []int{0, 1}},
		{"remove middle", []core.ExpenseRecord{a, b, c}, []core.ExpenseRecord{a, c}, []int{1}, nil},
		{"remove all", []core.ExpenseRecord{a, b}, nil, []int{1, 0}, nil},
		{"mixed", []core.ExpenseRecord{a, b, c}, []core.ExpenseRecord{d, a, c}, []int{1}, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			removed, added := reconcile(tt.known, tt.local)
			if !equalInts(removed, tt.wantRemoved) || !equalInts(added, tt.wantAdded) {
				t.Fatalf("removed=%v added=%v, want %v %v", removed, added, tt.wantRemoved, tt.wantAdded)
			}
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&StatusError{Code: http.StatusNotFound}, log.ErrorTypeNotFound},
		{&StatusError{Code: http.StatusBadRequest}, log.ErrorTypeValidation},
		{&StatusError{Code: http.StatusInternalServerError}, log.ErrorTypeInternal},
		{errors.New("connection refused"), log.ErrorTypeNetwork},
	}
	for _, tt := range tests {
		if got := errorType(tt.err); got != tt.want {
			t.Fatalf("%v: expected %q, got %q", tt.err, tt.want, got)
		}
	}
}
