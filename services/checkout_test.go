package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"campus-delivery/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validForm = CheckoutForm{CustomerName: "Ada", PhoneNumber: "08012345678", DeliveryAddress: "Hall 3, Room 12"}

// fakeOrders records drafts and returns err.
type fakeOrders struct {
	mu      sync.Mutex
	drafts  []models.OrderDraft
	err     error
	block   chan struct{} // if set, CreateOrder waits on it
	entered chan struct{}
}

func (f *fakeOrders) CreateOrder(ctx context.Context, d models.OrderDraft) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, d)
	return f.err
}

func TestCheckoutFormValidate(t *testing.T) {
	tests := []struct {
		name string
		form CheckoutForm
		ok   bool
	}{
		{"complete", validForm, true},
		{"no name", CheckoutForm{PhoneNumber: "1", DeliveryAddress: "a"}, false},
		{"blank phone", CheckoutForm{CustomerName: "a", PhoneNumber: "  ", DeliveryAddress: "a"}, false},
		{"no address", CheckoutForm{CustomerName: "a", PhoneNumber: "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrMissingField) {
				t.Errorf("Validate() = %v, want ErrMissingField", err)
			}
			if tt.form.Complete() != tt.ok {
				t.Errorf("Complete() = %v, want %v", tt.form.Complete(), tt.ok)
			}
		})
	}
}

func TestBuildOrderDraft(t *testing.T) {
	cart := Cart{Lines: []CartLine{
		{ID: 5, Name: "Rice", Price: decimal.NewFromInt(1000), Quantity: 2},
		{ID: 8, Name: "Zobo", Price: decimal.NewFromInt(200), Quantity: 1},
	}}
	form := CheckoutForm{CustomerName: " Ada ", PhoneNumber: "0800", DeliveryAddress: "Hall 3"}
	d, err := BuildOrderDraft(form, cart)
	if err != nil {
		t.Fatalf("BuildOrderDraft: %v", err)
	}
	if d.CustomerName != "Ada" {
		t.Errorf("CustomerName = %q", d.CustomerName)
	}
	want := []models.OrderItem{{MenuItem: 5, Quantity: 2}, {MenuItem: 8, Quantity: 1}}
	if len(d.OrderItems) != 2 || d.OrderItems[0] != want[0] || d.OrderItems[1] != want[1] {
		t.Errorf("OrderItems = %+v, want %+v", d.OrderItems, want)
	}

	if _, err := BuildOrderDraft(form, Cart{}); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("empty cart err = %v", err)
	}
}

func cartWithRice(t *testing.T) (*CartManager, *MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewCartManager(store, 10)
	if err := m.AddOrUpdate(ctx, item(5, "Rice", 1000), 2); err != nil {
		t.Fatal(err)
	}
	return m, store
}

func TestSubmitSuccessClearsCart(t *testing.T) {
	ctx := context.Background()
	cart, store := cartWithRice(t)
	api := &fakeOrders{}
	s := NewSubmitter(api, cart)

	if err := s.Submit(ctx, validForm); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !cart.Cart().IsEmpty() {
		t.Error("cart not cleared after success")
	}
	if _, ok, _ := store.Get(ctx, CartKey); ok {
		t.Error("persisted cart not cleared after success")
	}
	if len(api.drafts) != 1 || api.drafts[0].OrderItems[0] != (models.OrderItem{MenuItem: 5, Quantity: 2}) {
		t.Errorf("drafts = %+v", api.drafts)
	}
	if s.InFlight() {
		t.Error("guard not released")
	}
}

func TestSubmitFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	cart, store := cartWithRice(t)
	before, _, _ := store.Get(ctx, CartKey)
	s := NewSubmitter(&fakeOrders{err: ErrOrderFailed}, cart)

	if err := s.Submit(ctx, validForm); !errors.Is(err, ErrOrderFailed) {
		t.Fatalf("Submit err = %v, want ErrOrderFailed", err)
	}
	l, ok := cart.Cart().Line(5)
	if !ok || l.Quantity != 2 || !l.Price.Equal(decimal.NewFromInt(1000)) || len(cart.Cart().Lines) != 1 {
		t.Errorf("cart changed after failure: %+v", cart.Cart().Lines)
	}
	if after, _, _ := store.Get(ctx, CartKey); after != before {
		t.Errorf("persisted cart changed: %s -> %s", before, after)
	}
	if s.InFlight() {
		t.Error("guard not released after failure")
	}
}

func TestSubmitAgainstHTTPServer(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		wantEmpty bool
	}{
		{"created", http.StatusCreated, false, true},
		{"server error", http.StatusInternalServerError, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()
			api, _ := NewAPIClient(srv.URL, 0)
			cart, _ := cartWithRice(t)
			err := NewSubmitter(api, cart).Submit(context.Background(), validForm)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Submit err = %v, wantErr %v", err, tt.wantErr)
			}
			if cart.Cart().IsEmpty() != tt.wantEmpty {
				t.Errorf("cart empty = %v, want %v", cart.Cart().IsEmpty(), tt.wantEmpty)
			}
		})
	}
}

func TestSubmitRejectsWhileInFlight(t *testing.T) {
	ctx := context.Background()
	cart, _ := cartWithRice(t)
	api := &fakeOrders{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := NewSubmitter(api, cart)

	done := make(chan error, 1)
	go func() { done <- s.Submit(ctx, validForm) }()
	<-api.entered

	if !s.InFlight() {
		t.Error("InFlight() = false during submission")
	}
	if err := s.Submit(ctx, validForm); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("second Submit err = %v, want ErrSubmissionInFlight", err)
	}
	close(api.block)
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if len(api.drafts) != 1 {
		t.Errorf("API called %d times, want 1", len(api.drafts))
	}
}

func TestSubmitValidatesBeforeSending(t *testing.T) {
	ctx := context.Background()
	cart, _ := cartWithRice(t)
	api := &fakeOrders{}
	s := NewSubmitter(api, cart)
	if err := s.Submit(ctx, CheckoutForm{CustomerName: "Ada"}); !errors.Is(err, ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
	empty := NewSubmitter(api, NewCartManager(NewMemoryStore(), 10))
	if err := empty.Submit(ctx, validForm); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("err = %v, want ErrEmptyCart", err)
	}
	if len(api.drafts) != 0 {
		t.Error("invalid submissions reached the API")
	}
}

func TestSubmitTagsRequestWithSubmissionID(t *testing.T) {
	var ids []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Request-ID"))
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	api, _ := NewAPIClient(srv.URL, 0)
	cart, _ := cartWithRice(t)
	s := NewSubmitter(api, cart)

	for i := 0; i < 2; i++ {
		if err := s.Submit(context.Background(), validForm); !errors.Is(err, ErrOrderFailed) {
			t.Fatalf("Submit err = %v", err)
		}
	}
	if len(ids) != 2 {
		t.Fatalf("requests = %d", len(ids))
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("X-Request-ID %q is not a submission uuid", id)
		}
	}
	if ids[0] == ids[1] {
		t.Error("retries reused the submission id")
	}
}
