package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"campus-delivery/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingField       = errors.New("required field is empty")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrSubmissionInFlight = errors.New("an order is already being placed")
)

// CheckoutForm holds the delivery details collected on the checkout view.
type CheckoutForm struct {
	CustomerName    string
	PhoneNumber     string
	DeliveryAddress string
}

// Validate requires every field to be non-blank.
func (f CheckoutForm) Validate() error {
	switch {
	case strings.TrimSpace(f.CustomerName) == "":
		return fmt.Errorf("%w: customer name", ErrMissingField)
	case strings.TrimSpace(f.PhoneNumber) == "":
		return fmt.Errorf("%w: phone number", ErrMissingField)
	case strings.TrimSpace(f.DeliveryAddress) == "":
		return fmt.Errorf("%w: delivery address", ErrMissingField)
	}
	return nil
}

// Complete reports whether all fields are filled.
func (f CheckoutForm) Complete() bool { return f.Validate() == nil }

// BuildOrderDraft maps the cart to (menu item, quantity) pairs; prices are not sent.
func BuildOrderDraft(form CheckoutForm, cart Cart) (models.OrderDraft, error) {
	if err := form.Validate(); err != nil {
		return models.OrderDraft{}, err
	}
	if cart.IsEmpty() {
		return models.OrderDraft{}, ErrEmptyCart
	}
	items := make([]models.OrderItem, len(cart.Lines))
	for i, l := range cart.Lines {
		items[i] = models.OrderItem{MenuItem: l.ID, Quantity: l.Quantity}
	}
	return models.OrderDraft{
		CustomerName:    strings.TrimSpace(form.CustomerName),
		PhoneNumber:     strings.TrimSpace(form.PhoneNumber),
		DeliveryAddress: strings.TrimSpace(form.DeliveryAddress),
		OrderItems:      items,
	}, nil
}

// Submitter places orders for one cart, one at a time.
type Submitter struct {
	api  OrderCreator
	cart *CartManager

	mu       sync.Mutex
	inFlight string // token of the outstanding submission, "" when idle
}

func NewSubmitter(api OrderCreator, cart *CartManager) *Submitter {
	return &Submitter{api: api, cart: cart}
}

// InFlight reports whether a submission is outstanding.
func (s *Submitter) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight != ""
}

// Submit sends the current cart as an order. A call made while another is
// outstanding fails with ErrSubmissionInFlight. The cart is cleared only
// after the API confirms; on failure it is left as it was.
func (s *Submitter) Submit(ctx context.Context, form CheckoutForm) error {
	draft, err := BuildOrderDraft(form, s.cart.Cart())
	if err != nil {
		return err
	}

	token := uuid.NewString()
	s.mu.Lock()
	if s.inFlight != "" {
		running := s.inFlight
		s.mu.Unlock()
		log.Debug().Str("submission", token).Str("running", running).Msg("order submission rejected: another is in flight")
		return ErrSubmissionInFlight
	}
	s.inFlight = token
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = ""
		s.mu.Unlock()
	}()

	log.Info().Str("submission", token).Int("items", len(draft.OrderItems)).Msg("submitting order")
	if err := s.api.CreateOrder(WithRequestID(ctx, token), draft); err != nil {
		log.Warn().Err(err).Str("submission", token).Msg("order submission failed")
		return err
	}
	if err := s.cart.Clear(ctx); err != nil {
		// The order exists server-side; only the local copy is stale.
		log.Warn().Err(err).Str("submission", token).Msg("order placed but cart could not be cleared")
	}
	return nil
}
