package bot

import (
	"context"
	"sync"

	"campus-delivery/models"
	"campus-delivery/services"
)

// StoreFactory opens the persistent store of one Telegram user.
type StoreFactory func(tgUserID int64) services.Store

type formStep int

const (
	stepIdle formStep = iota
	stepName
	stepPhone
	stepAddress
	stepReady
)

// session is one customer's storefront state. The cart, selector and
// submitter guard themselves; mu guards the view fields below it.
type session struct {
	userID     int64
	cart       *services.CartManager
	quantities *services.QuantitySelector
	submitter  *services.Submitter

	mu         sync.Mutex
	chatID     int64
	route      Route
	query      string
	page       int                // keyboard page of the mounted view
	cafeterias []models.Cafeteria // last fetch for the mounted catalog view
	menu       []models.MenuItem  // last fetch for the mounted menu view
	form       services.CheckoutForm
	step       formStep
	placing    bool
	viewMsgID  int    // message showing the mounted view
	unmount    func() // drops the mounted view's cart subscription
}

func (b *Bot) session(ctx context.Context, userID, chatID int64) *session {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()
	if s, ok := b.sessions[userID]; ok {
		s.mu.Lock()
		s.chatID = chatID
		s.mu.Unlock()
		return s
	}
	store := b.openStore(userID)
	maxQty := b.cfg.Cart.MaxItemQuantity
	cart := services.NewCartManager(store, maxQty)
	cart.Hydrate(ctx)
	quantities := services.NewQuantitySelector(store, maxQty)
	quantities.Load(ctx)
	s := &session{
		userID:     userID,
		chatID:     chatID,
		cart:       cart,
		quantities: quantities,
		submitter:  services.NewSubmitter(b.orders, cart),
	}
	b.sessions[userID] = s
	return s
}

// render draws the mounted view from cached data. Caller holds s.mu.
func (s *session) renderLocked() screen {
	cart := s.cart.Cart()
	switch s.route.View {
	case ViewMenu:
		return renderMenu(s.route.CafeteriaID, s.menu, s.query, s.page, s.quantities.Get, cart)
	case ViewOrders:
		return renderOrders(cart, s.page)
	case ViewCheckout:
		return renderCheckout(cart, s.form, s.placing)
	default:
		return renderCatalog(s.cafeterias, s.query, s.page, cart)
	}
}

// menuItem finds id in the mounted menu.
func (s *session) menuItem(id int64) (models.MenuItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.menu {
		if it.ID == id {
			return it, true
		}
	}
	return models.MenuItem{}, false
}
