package bot

import (
	"fmt"
	"strings"
	"testing"

	"campus-delivery/models"
	"campus-delivery/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// buttons flattens a keyboard into "label|data" pairs.
func buttons(rows [][]tgbotapi.InlineKeyboardButton) []string {
	var out []string
	for _, row := range rows {
		for _, btn := range row {
			data := ""
			if btn.CallbackData != nil {
				data = *btn.CallbackData
			}
			out = append(out, btn.Text+"|"+data)
		}
	}
	return out
}

func hasButton(rows [][]tgbotapi.InlineKeyboardButton, data string) bool {
	for _, b := range buttons(rows) {
		if strings.HasSuffix(b, "|"+data) {
			return true
		}
	}
	return false
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1000", "₦1000"},
		{"1000.00", "₦1000"},
		{"2.5", "₦2.50"},
		{"0", "₦0"},
	}
	for _, tt := range tests {
		if got := formatMoney(dec(tt.in)); got != tt.want {
			t.Errorf("formatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderCatalogFiltersAndLinks(t *testing.T) {
	cafs := []models.Cafeteria{{ID: 1, Name: "Main Hall"}, {ID: 2, Name: "Annex"}}
	scr := renderCatalog(cafs, "main", 0, services.Cart{})
	if !strings.Contains(scr.Text, "• Main Hall") || strings.Contains(scr.Text, "Annex") {
		t.Errorf("catalog text = %q", scr.Text)
	}
	if !hasButton(scr.Keyboard, navData(MenuRoute(1))) {
		t.Error("matching cafeteria has no link")
	}
	if hasButton(scr.Keyboard, navData(MenuRoute(2))) {
		t.Error("filtered cafeteria still linked")
	}

	empty := renderCatalog(nil, "", 0, services.Cart{})
	if !strings.Contains(empty.Text, "No cafeterias found.") {
		t.Errorf("empty catalog text = %q", empty.Text)
	}
}

func TestRenderMenuGroupsAndSelectors(t *testing.T) {
	items := []models.MenuItem{
		{ID: 1, Name: "Rice", Price: dec("1000"), Available: true, Category: "Mains"},
		{ID: 2, Name: "Zobo", Price: dec("200"), Category: "Drinks"},
		{ID: 3, Name: "Beans", Price: dec("800"), Available: true},
	}
	selected := func(id int64) int {
		if id == 1 {
			return 3
		}
		return 0
	}
	cart := services.Cart{Lines: []services.CartLine{{ID: 1, Name: "Rice", Price: dec("1000"), Quantity: 2}}}
	scr := renderMenu(9, items, "", 0, selected, cart)

	mains := strings.Index(scr.Text, "Mains")
	drinks := strings.Index(scr.Text, "Drinks")
	other := strings.Index(scr.Text, services.UncategorizedLabel)
	if mains < 0 || drinks < mains || other < drinks {
		t.Errorf("categories out of order:\n%s", scr.Text)
	}
	if !strings.Contains(scr.Text, "Zobo: ₦200 (Not available)") {
		t.Errorf("availability missing:\n%s", scr.Text)
	}
	if !strings.Contains(scr.Text, "in cart: 2") {
		t.Errorf("cart quantity missing:\n%s", scr.Text)
	}
	for _, data := range []string{qtyData(9, 1, 1), qtyData(9, 1, -1), addData(9, 1), navData(OrdersRoute)} {
		if !hasButton(scr.Keyboard, data) {
			t.Errorf("missing button %q", data)
		}
	}
	if !strings.Contains(strings.Join(buttons(scr.Keyboard), "\n"), "3|"+cbNoop) {
		t.Error("selector does not show the chosen quantity")
	}

	empty := renderMenu(9, nil, "", 0, selected, services.Cart{})
	if !strings.Contains(empty.Text, "No menu items available for this cafeteria.") {
		t.Errorf("empty menu text = %q", empty.Text)
	}
}

func TestRenderOrders(t *testing.T) {
	empty := renderOrders(services.Cart{}, 0)
	if !strings.Contains(empty.Text, "No items in your cart.") || hasButton(empty.Keyboard, navData(CheckoutRoute)) {
		t.Errorf("empty review = %q", empty.Text)
	}

	cart := services.Cart{Lines: []services.CartLine{
		{ID: 1, Name: "Rice", Price: dec("1000"), Quantity: 2},
		{ID: 2, Name: "Zobo", Price: dec("250.50"), Quantity: 1},
	}}
	scr := renderOrders(cart, 0)
	if !strings.Contains(scr.Text, "Rice - ₦1000 x 2 = ₦2000") {
		t.Errorf("line text missing:\n%s", scr.Text)
	}
	if !strings.Contains(scr.Text, "Total: ₦2250.50") {
		t.Errorf("total missing:\n%s", scr.Text)
	}
	for _, data := range []string{lineData(1, 1), lineData(1, -1), delData(2), cbClear, navData(CheckoutRoute)} {
		if !hasButton(scr.Keyboard, data) {
			t.Errorf("missing button %q", data)
		}
	}
}

func TestRenderCheckout(t *testing.T) {
	cart := services.Cart{Lines: []services.CartLine{{ID: 1, Name: "Rice", Price: dec("1000"), Quantity: 2}}}
	form := services.CheckoutForm{CustomerName: "Ada", PhoneNumber: "0800", DeliveryAddress: "Hall 3"}

	tests := []struct {
		name      string
		cart      services.Cart
		form      services.CheckoutForm
		placing   bool
		wantOrder bool
		wantText  string
	}{
		{"complete", cart, form, false, true, "Total: ₦2000"},
		{"partial form", cart, services.CheckoutForm{CustomerName: "Ada"}, false, false, "Phone number: -"},
		{"placing", cart, form, true, false, "Placing your order"},
		{"empty cart", services.Cart{}, form, false, false, "Your cart is empty."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scr := renderCheckout(tt.cart, tt.form, tt.placing)
			if got := hasButton(scr.Keyboard, cbOrder); got != tt.wantOrder {
				t.Errorf("place order button = %v, want %v", got, tt.wantOrder)
			}
			if !strings.Contains(scr.Text, tt.wantText) {
				t.Errorf("text missing %q:\n%s", tt.wantText, scr.Text)
			}
		})
	}
}

func TestEmptyKeyboardMarkup(t *testing.T) {
	m := screen{Text: "x"}.markup()
	if m.InlineKeyboard == nil {
		t.Error("empty keyboard must serialize as [] so edits drop old buttons")
	}
}

func countButtons(rows [][]tgbotapi.InlineKeyboardButton) int {
	n := 0
	for _, row := range rows {
		n += len(row)
	}
	return n
}

func TestLongListsArePaged(t *testing.T) {
	const n = 25
	var items []models.MenuItem
	var cafs []models.Cafeteria
	var lines []services.CartLine
	for i := int64(1); i <= n; i++ {
		name := fmt.Sprintf("Item %d", i)
		img := fmt.Sprintf("https://cdn.example.com/%d.jpg", i)
		items = append(items, models.MenuItem{ID: i, Name: name, Price: dec("100"), Available: true, Category: fmt.Sprintf("Cat %d", i%3), Image: img})
		cafs = append(cafs, models.Cafeteria{ID: i, Name: name, Image: img})
		lines = append(lines, services.CartLine{ID: i, Name: name, Price: dec("100"), Quantity: 1})
	}
	cart := services.Cart{Lines: lines}
	none := func(int64) int { return 0 }

	tests := []struct {
		name   string
		render func(page int) screen
		data   func(id int64) string
	}{
		{"menu", func(p int) screen { return renderMenu(9, items, "", p, none, cart) }, func(id int64) string { return addData(9, id) }},
		{"catalog", func(p int) screen { return renderCatalog(cafs, "", p, cart) }, func(id int64) string { return navData(MenuRoute(id)) }},
		{"orders", func(p int) screen { return renderOrders(cart, p) }, func(id int64) string { return delData(id) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[int64]int)
			for page := 0; page < 5; page++ {
				scr := tt.render(page)
				if c := countButtons(scr.Keyboard); c > 100 {
					t.Errorf("page %d has %d buttons", page, c)
				}
				for id := int64(1); id <= n; id++ {
					if hasButton(scr.Keyboard, tt.data(id)) {
						seen[id]++
					}
				}
			}
			// Pages past the end repeat the last page, so count distinct ids.
			if len(seen) != n {
				t.Errorf("reachable items = %d, want %d", len(seen), n)
			}
		})
	}
}

func TestPagerButtons(t *testing.T) {
	var items []models.MenuItem
	for i := int64(1); i <= 25; i++ {
		items = append(items, models.MenuItem{ID: i, Name: fmt.Sprintf("Item %d", i), Price: dec("1")})
	}
	none := func(int64) int { return 0 }

	first := renderMenu(9, items, "", 0, none, services.Cart{})
	if !hasButton(first.Keyboard, pageData(MenuRoute(9), 1)) || hasButton(first.Keyboard, pageData(MenuRoute(9), -1)) {
		t.Errorf("first page pager = %v", buttons(first.Keyboard))
	}
	last := renderMenu(9, items, "", 99, none, services.Cart{})
	if !strings.Contains(last.Text, "Page 3/3") || !hasButton(last.Keyboard, pageData(MenuRoute(9), 1)) {
		t.Errorf("out of range page not clamped to last: %q", last.Text)
	}
	short := renderMenu(9, items[:3], "", 0, none, services.Cart{})
	if strings.Contains(short.Text, "Page ") {
		t.Error("single page shows a pager")
	}
}

func TestImageButtons(t *testing.T) {
	tests := []struct {
		image string
		ok    bool
	}{
		{"https://cdn.example.com/rice.jpg", true},
		{"http://media.campus.edu/a.png", true},
		{"", false},
		{"/media/rice.jpg", false},
		{"http://127.0.0.1:8000/media/rice.jpg", false},
		{"http://localhost/media/rice.jpg", false},
		{"ftp://cdn.example.com/a.png", false},
	}
	for _, tt := range tests {
		if _, ok := imageButton(tt.image); ok != tt.ok {
			t.Errorf("imageButton(%q) ok = %v, want %v", tt.image, ok, tt.ok)
		}
	}

	items := []models.MenuItem{{ID: 1, Name: "Rice", Price: dec("1"), Image: "https://cdn.example.com/rice.jpg"}}
	scr := renderMenu(9, items, "", 0, func(int64) int { return 0 }, services.Cart{})
	found := false
	for _, row := range scr.Keyboard {
		for _, b := range row {
			if b.URL != nil && *b.URL == "https://cdn.example.com/rice.jpg" {
				found = true
			}
		}
	}
	if !found {
		t.Error("menu item image has no button")
	}
}
