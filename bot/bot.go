package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"campus-delivery/config"
	"campus-delivery/models"
	"campus-delivery/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// sender is the part of *tgbotapi.BotAPI the storefront writes through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	cfg       *config.Config
	catalog   services.Catalog
	orders    services.OrderCreator
	openStore StoreFactory

	sessions   map[int64]*session
	sessionsMu sync.Mutex

	pending sync.WaitGroup // order submissions still running
}

func New(cfg *config.Config, api *services.APIClient, openStore StoreFactory) (*Bot, error) {
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	b := newBot(tg, cfg, api, api, openStore)
	b.api = tg
	return b, nil
}

func newBot(out sender, cfg *config.Config, catalog services.Catalog, orders services.OrderCreator, openStore StoreFactory) *Bot {
	return &Bot{
		out:       out,
		cfg:       cfg,
		catalog:   catalog,
		orders:    orders,
		openStore: openStore,
		sessions:  make(map[int64]*session),
	}
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Cafeterias"},
			{Command: "orders", Description: "My cart"},
			{Command: "checkout", Description: "Checkout"},
			{Command: "clear_search", Description: "Reset search"},
		},
	}
	_, err := b.out.Request(cfg)
	return err
}

// Start runs the update loop until the updates channel closes.
func (b *Bot) Start() {
	if err := b.setBotCommands(); err != nil {
		log.Warn().Err(err).Msg("set bot commands")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		b.handleUpdate(update)
	}
	b.pending.Wait()
}

// Stop ends long polling; Start returns once in-flight orders finish.
func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	b.handleMessage(update.Message)
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	s := b.session(ctx, msg.From.ID, msg.Chat.ID)
	text := strings.TrimSpace(msg.Text)

	if msg.Contact != nil {
		b.handleFormInput(ctx, s, msg.Contact.PhoneNumber)
		return
	}

	switch {
	case text == "/start":
		b.resetForm(s)
		b.navigate(ctx, s, CatalogRoute, 0)
	case text == "/orders":
		b.navigate(ctx, s, OrdersRoute, 0)
	case text == "/checkout":
		b.navigate(ctx, s, CheckoutRoute, 0)
	case text == "/clear_search":
		b.search(ctx, s, "")
	case strings.HasPrefix(text, "/"):
		b.send(s.chatID, "Unknown command. Use /start to browse cafeterias.")
	case text == "": // stickers, photos
	default:
		if b.handleFormInput(ctx, s, text) {
			return
		}
		b.search(ctx, s, text)
	}
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.From == nil {
		return
	}
	ctx := context.Background()
	s := b.session(ctx, cq.From.ID, cq.Message.Chat.ID)
	msgID := cq.Message.MessageID

	act, err := parseCallback(cq.Data)
	if err != nil {
		log.Debug().Err(err).Int64("user_id", s.userID).Msg("ignoring callback")
		b.answer(cq.ID, "")
		return
	}

	switch act.Kind {
	case actNav:
		b.answer(cq.ID, "")
		b.navigate(ctx, s, act.Route, msgID)
	case actQty:
		b.answer(cq.ID, "")
		b.ensureMounted(ctx, s, act.Route, msgID)
		if _, err := s.quantities.Step(ctx, act.ItemID, act.Delta); err != nil {
			log.Error().Err(err).Int64("user_id", s.userID).Msg("save quantity selector")
		}
		b.refresh(s)
	case actAdd:
		b.ensureMounted(ctx, s, act.Route, msgID)
		b.addToCart(ctx, s, cq.ID, act.ItemID)
	case actLine:
		b.answer(cq.ID, "")
		b.ensureMounted(ctx, s, OrdersRoute, msgID)
		line, ok := s.cart.Cart().Line(act.ItemID)
		if !ok {
			return
		}
		if err := s.cart.SetQuantity(ctx, act.ItemID, line.Quantity+act.Delta); err != nil {
			log.Error().Err(err).Int64("user_id", s.userID).Msg("set cart quantity")
		}
	case actDel:
		b.answer(cq.ID, "Removed")
		b.ensureMounted(ctx, s, OrdersRoute, msgID)
		if err := s.cart.Remove(ctx, act.ItemID); err != nil && !errors.Is(err, services.ErrLineNotFound) {
			log.Error().Err(err).Int64("user_id", s.userID).Msg("remove cart line")
		}
	case actClear:
		b.answer(cq.ID, "Cart cleared")
		b.ensureMounted(ctx, s, OrdersRoute, msgID)
		if err := s.cart.Clear(ctx); err != nil {
			log.Error().Err(err).Int64("user_id", s.userID).Msg("clear cart")
		}
	case actOrder:
		b.ensureMounted(ctx, s, CheckoutRoute, msgID)
		b.placeOrder(s, cq.ID)
	case actPage:
		b.answer(cq.ID, "")
		b.ensureMounted(ctx, s, act.Route, msgID)
		s.mu.Lock()
		s.page = act.Page
		s.mu.Unlock()
		b.refresh(s)
	case actEditForm:
		b.answer(cq.ID, "")
		b.ensureMounted(ctx, s, CheckoutRoute, msgID)
		s.mu.Lock()
		s.form = services.CheckoutForm{}
		s.step = stepName
		s.mu.Unlock()
		b.refresh(s)
		b.prompt(s, stepName)
	default:
		b.answer(cq.ID, "")
	}
}

// ensureMounted makes msgID the live r view when the button came from an
// older message, e.g. after a restart.
func (b *Bot) ensureMounted(ctx context.Context, s *session, r Route, msgID int) {
	s.mu.Lock()
	live := s.route == r && s.viewMsgID == msgID
	s.mu.Unlock()
	if !live {
		b.navigate(ctx, s, r, msgID)
	}
}

// navigate unmounts the current view, loads fresh data for r and mounts it.
// editMsgID != 0 redraws that message in place.
func (b *Bot) navigate(ctx context.Context, s *session, r Route, editMsgID int) {
	s.mu.Lock()
	prev := s.unmount
	s.unmount = nil
	s.mu.Unlock()
	if prev != nil {
		prev()
	}

	var cafeterias []models.Cafeteria
	var menu []models.MenuItem
	switch r.View {
	case ViewCatalog:
		var err error
		cafeterias, err = b.catalog.ListCafeterias(ctx)
		if err != nil {
			log.Error().Err(err).Int64("user_id", s.userID).Msg("fetch cafeterias")
		}
	case ViewMenu:
		var err error
		menu, err = b.catalog.ListMenuItems(ctx, r.CafeteriaID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", s.userID).Int64("cafeteria_id", r.CafeteriaID).Msg("fetch menu items")
		}
	}

	s.mu.Lock()
	if s.route != r {
		s.query = ""
		s.page = 0
	}
	s.route = r
	s.cafeterias = cafeterias
	s.menu = menu
	startForm := r.View == ViewCheckout && s.step == stepIdle && !s.cart.Cart().IsEmpty()
	if startForm {
		s.step = stepName
	}
	step := s.step
	scr := s.renderLocked()
	chatID := s.chatID
	s.mu.Unlock()

	msgID := b.show(chatID, editMsgID, scr)

	unsubscribe := s.cart.Subscribe(func(services.Cart) { b.refresh(s) })
	s.mu.Lock()
	s.viewMsgID = msgID
	s.unmount = unsubscribe
	s.mu.Unlock()

	if r.View == ViewCheckout && step != stepIdle && step != stepReady {
		b.prompt(s, step)
	}
}

// refresh redraws the mounted view in place.
func (b *Bot) refresh(s *session) {
	s.mu.Lock()
	scr := s.renderLocked()
	chatID, msgID := s.chatID, s.viewMsgID
	s.mu.Unlock()
	if msgID == 0 {
		return
	}
	if id := b.show(chatID, msgID, scr); id != msgID {
		s.mu.Lock()
		s.viewMsgID = id
		s.mu.Unlock()
	}
}

// search applies query to the catalog or menu view and re-sends it below the user's message.
func (b *Bot) search(ctx context.Context, s *session, query string) {
	s.mu.Lock()
	r := s.route
	s.mu.Unlock()
	if r.View != ViewCatalog && r.View != ViewMenu {
		b.send(s.chatID, "Search works on the cafeteria list and menus. Use /start to browse.")
		return
	}
	s.mu.Lock()
	s.query = query
	s.page = 0
	scr := s.renderLocked()
	chatID := s.chatID
	s.mu.Unlock()
	msgID := b.show(chatID, 0, scr)
	s.mu.Lock()
	s.viewMsgID = msgID
	s.mu.Unlock()
}

func (b *Bot) addToCart(ctx context.Context, s *session, callbackID string, itemID int64) {
	qty := s.quantities.Get(itemID)
	if qty == 0 {
		b.answer(callbackID, "Choose a quantity first")
		return
	}
	item, ok := s.menuItem(itemID)
	if !ok {
		b.answer(callbackID, "This item is no longer on the menu")
		return
	}
	b.answer(callbackID, "")
	if err := s.cart.AddOrUpdate(ctx, item, qty); err != nil {
		log.Error().Err(err).Int64("user_id", s.userID).Int64("item_id", itemID).Msg("add to cart")
		if errors.Is(err, services.ErrQuantityOutOfRange) {
			return
		}
	}
	b.flash(s.chatID, item.Name+" added to cart!")
}

// resetForm forgets collected delivery details.
func (b *Bot) resetForm(s *session) {
	s.mu.Lock()
	s.form = services.CheckoutForm{}
	s.step = stepIdle
	s.mu.Unlock()
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Debug().Err(err).Msg("answer callback")
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.out.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send error")
	}
}

// show edits editMsgID with scr, or sends a new message when editMsgID is 0
// or the edit target is gone. It returns the message now showing scr.
func (b *Bot) show(chatID int64, editMsgID int, scr screen) int {
	if editMsgID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, editMsgID, scr.Text, scr.markup())
		_, err := b.out.Send(edit)
		if err == nil {
			return editMsgID
		}
		errStr := err.Error()
		if strings.Contains(errStr, "not modified") {
			return editMsgID
		}
		if !strings.Contains(errStr, "not found") && !strings.Contains(errStr, "can't be edited") {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("edit error")
			return editMsgID
		}
	}
	msg := tgbotapi.NewMessage(chatID, scr.Text)
	msg.ReplyMarkup = scr.markup()
	sent, err := b.out.Send(msg)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send error")
		return editMsgID
	}
	return sent.MessageID
}
