package bot

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"campus-delivery/models"
	"campus-delivery/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// screen is a rendered view: message text plus its inline keyboard.
type screen struct {
	Text     string
	Keyboard [][]tgbotapi.InlineKeyboardButton
}

func (s screen) markup() tgbotapi.InlineKeyboardMarkup {
	if len(s.Keyboard) == 0 {
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	}
	return tgbotapi.NewInlineKeyboardMarkup(s.Keyboard...)
}

const currencySign = "₦"

func formatMoney(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return currencySign + d.Truncate(0).String()
	}
	return currencySign + d.StringFixed(2)
}

func cartButton(cart services.Cart) tgbotapi.InlineKeyboardButton {
	label := "🛒 Cart"
	if n := cart.ItemCount(); n > 0 {
		label = fmt.Sprintf("🛒 Cart (%d)", n)
	}
	return tgbotapi.NewInlineKeyboardButtonData(label, navData(OrdersRoute))
}

func searchLine(query string) string {
	if strings.TrimSpace(query) == "" {
		return "Send any text to search."
	}
	return fmt.Sprintf("Search: %q (/clear_search to reset)", query)
}

// Telegram rejects inline keyboards with more than 100 buttons. Page sizes
// keep each screen under that with room for navigation rows.
const (
	catalogPageSize = 20 // 2 buttons each
	menuPageSize    = 12 // 6 buttons each
	ordersPageSize  = 20 // 4 buttons each
)

// pageBounds clamps page to the pages available for n entries and returns
// the slice bounds of that page.
func pageBounds(n, size, page int) (lo, hi, clamped, pages int) {
	pages = max(1, (n+size-1)/size)
	clamped = max(0, min(page, pages-1))
	lo = clamped * size
	hi = min(lo+size, n)
	return lo, hi, clamped, pages
}

// pagerRow is nil when everything fits on one page.
func pagerRow(r Route, page, pages int) []tgbotapi.InlineKeyboardButton {
	if pages <= 1 {
		return nil
	}
	var row []tgbotapi.InlineKeyboardButton
	if page > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀", pageData(r, page-1)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", page+1, pages), cbNoop))
	if page < pages-1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶", pageData(r, page+1)))
	}
	return row
}

// imageButton links to an image on a public http(s) host. Telegram refuses
// the whole keyboard over one bad URL button, so local, IP and relative
// addresses get no button.
func imageButton(image string) (tgbotapi.InlineKeyboardButton, bool) {
	u, err := url.Parse(image)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return tgbotapi.InlineKeyboardButton{}, false
	}
	host := u.Hostname()
	if !strings.Contains(host, ".") || net.ParseIP(host) != nil {
		return tgbotapi.InlineKeyboardButton{}, false
	}
	return tgbotapi.NewInlineKeyboardButtonURL("🖼", image), true
}

// renderCatalog lists the cafeterias that match query, one page at a time.
func renderCatalog(cafeterias []models.Cafeteria, query string, page int, cart services.Cart) screen {
	var sb strings.Builder
	sb.WriteString("🏫 Cafeterias\n")
	sb.WriteString(searchLine(query) + "\n")

	shown := services.FilterCafeterias(cafeterias, query)
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(shown) == 0 {
		sb.WriteString("\nNo cafeterias found.")
	} else {
		sb.WriteString("\n")
	}
	lo, hi, page, pages := pageBounds(len(shown), catalogPageSize, page)
	for _, c := range shown[lo:hi] {
		sb.WriteString("• " + c.Name + "\n")
		row := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Name+" ➜", navData(MenuRoute(c.ID))),
		)
		if img, ok := imageButton(c.Image); ok {
			row = append(row, img)
		}
		rows = append(rows, row)
	}
	if pager := pagerRow(CatalogRoute, page, pages); pager != nil {
		fmt.Fprintf(&sb, "\nPage %d/%d", page+1, pages)
		rows = append(rows, pager)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(cartButton(cart)))
	return screen{Text: sb.String(), Keyboard: rows}
}

// renderMenu shows one page of the cafeteria menu grouped by category. Each
// item gets a 0..max selector and an add button.
func renderMenu(cafeteriaID int64, items []models.MenuItem, query string, page int, selected func(int64) int, cart services.Cart) screen {
	var sb strings.Builder
	sb.WriteString("📋 Menu\n")
	sb.WriteString(searchLine(query) + "\n")

	type entry struct {
		category string
		item     models.MenuItem
	}
	var flat []entry
	for _, g := range services.GroupByCategory(services.FilterMenuItems(items, query)) {
		for _, it := range g.Items {
			flat = append(flat, entry{g.Name, it})
		}
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if len(flat) == 0 {
		sb.WriteString("\nNo menu items available for this cafeteria.")
	}
	lo, hi, page, pages := pageBounds(len(flat), menuPageSize, page)
	category := ""
	for _, e := range flat[lo:hi] {
		it := e.item
		if e.category != category {
			category = e.category
			sb.WriteString("\n" + category + "\n")
		}
		status := "Available"
		if !it.Available {
			status = "Not available"
		}
		q := selected(it.ID)
		line := fmt.Sprintf("• %s: %s (%s)", it.Name, formatMoney(it.Price), status)
		if l, ok := cart.Line(it.ID); ok {
			line += fmt.Sprintf(" · in cart: %d", l.Quantity)
		}
		sb.WriteString(line + "\n")

		nameRow := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(it.Name, cbNoop))
		if img, ok := imageButton(it.Image); ok {
			nameRow = append(nameRow, img)
		}
		rows = append(rows,
			nameRow,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➖", qtyData(cafeteriaID, it.ID, -1)),
				tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(q), cbNoop),
				tgbotapi.NewInlineKeyboardButtonData("➕", qtyData(cafeteriaID, it.ID, 1)),
				tgbotapi.NewInlineKeyboardButtonData(addLabel(q), addData(cafeteriaID, it.ID)),
			),
		)
	}
	if pager := pagerRow(MenuRoute(cafeteriaID), page, pages); pager != nil {
		fmt.Fprintf(&sb, "\nPage %d/%d", page+1, pages)
		rows = append(rows, pager)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅ Cafeterias", navData(CatalogRoute)),
		cartButton(cart),
	))
	return screen{Text: sb.String(), Keyboard: rows}
}

// addLabel greys out the add button while nothing is selected; the handler
// also refuses quantity 0.
func addLabel(q int) string {
	if q == 0 {
		return "Add to cart ·"
	}
	return "Add to cart"
}

// renderOrders is the cart review. Every line is listed in the text; the
// edit buttons are paged.
func renderOrders(cart services.Cart, page int) screen {
	if cart.IsEmpty() {
		return screen{
			Text: "🛒 My Cart\n\nNo items in your cart.",
			Keyboard: [][]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅ Cafeterias", navData(CatalogRoute))),
			},
		}
	}
	var sb strings.Builder
	sb.WriteString("🛒 My Cart\n\n")
	for _, l := range cart.Lines {
		fmt.Fprintf(&sb, "• %s - %s x %d = %s\n", l.Name, formatMoney(l.Price), l.Quantity, formatMoney(l.Subtotal()))
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	lo, hi, page, pages := pageBounds(len(cart.Lines), ordersPageSize, page)
	for _, l := range cart.Lines[lo:hi] {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➖", lineData(l.ID, -1)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s × %d", l.Name, l.Quantity), cbNoop),
			tgbotapi.NewInlineKeyboardButtonData("➕", lineData(l.ID, 1)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", delData(l.ID)),
		))
	}
	if pager := pagerRow(OrdersRoute, page, pages); pager != nil {
		rows = append(rows, pager)
	}
	fmt.Fprintf(&sb, "\nTotal: %s", formatMoney(cart.Total()))
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Clear cart", cbClear),
			tgbotapi.NewInlineKeyboardButtonData("Checkout ➜", navData(CheckoutRoute)),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅ Cafeterias", navData(CatalogRoute))),
	)
	return screen{Text: sb.String(), Keyboard: rows}
}

// renderCheckout shows the order summary and the delivery details collected so far.
func renderCheckout(cart services.Cart, form services.CheckoutForm, placing bool) screen {
	var sb strings.Builder
	sb.WriteString("🧾 Checkout\n\n")
	sb.WriteString("Full name: " + orDash(form.CustomerName) + "\n")
	sb.WriteString("Phone number: " + orDash(form.PhoneNumber) + "\n")
	sb.WriteString("Delivery address: " + orDash(form.DeliveryAddress) + "\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	if cart.IsEmpty() {
		sb.WriteString("\nYour cart is empty.")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅ Cafeterias", navData(CatalogRoute)),
		))
		return screen{Text: sb.String(), Keyboard: rows}
	}

	sb.WriteString("\nOrder Summary\n")
	for _, l := range cart.Lines {
		fmt.Fprintf(&sb, "• %s x %d = %s\n", l.Name, l.Quantity, formatMoney(l.Subtotal()))
	}
	fmt.Fprintf(&sb, "\nTotal: %s", formatMoney(cart.Total()))

	switch {
	case placing:
		sb.WriteString("\n\n⏳ Placing your order...")
	case form.Complete():
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Place order", cbOrder),
		))
	default:
		sb.WriteString("\n\nAnswer the questions below to place your order.")
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏ Edit details", cbEditForm),
		tgbotapi.NewInlineKeyboardButtonData("⬅ Cart", navData(OrdersRoute)),
	))
	return screen{Text: sb.String(), Keyboard: rows}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
