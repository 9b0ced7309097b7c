package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type View int

const (
	ViewCatalog View = iota
	ViewMenu
	ViewOrders
	ViewCheckout
)

func (v View) String() string {
	switch v {
	case ViewCatalog:
		return "catalog"
	case ViewMenu:
		return "menu"
	case ViewOrders:
		return "orders"
	case ViewCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

// Route is one of the four navigable views. CafeteriaID is set only for ViewMenu.
type Route struct {
	View        View
	CafeteriaID int64
}

var (
	CatalogRoute  = Route{View: ViewCatalog}
	OrdersRoute   = Route{View: ViewOrders}
	CheckoutRoute = Route{View: ViewCheckout}
)

func MenuRoute(cafeteriaID int64) Route {
	return Route{View: ViewMenu, CafeteriaID: cafeteriaID}
}

var ErrUnknownRoute = errors.New("unknown route")

// Path renders the route as "/", "/cafeteria/{id}", "/orders" or "/checkout".
func (r Route) Path() string {
	switch r.View {
	case ViewMenu:
		return "/cafeteria/" + strconv.FormatInt(r.CafeteriaID, 10)
	case ViewOrders:
		return "/orders"
	case ViewCheckout:
		return "/checkout"
	default:
		return "/"
	}
}

// ParseRoute is the inverse of Path. A trailing slash is tolerated.
func ParseRoute(path string) (Route, error) {
	p := strings.TrimSuffix(strings.TrimSpace(path), "/")
	switch {
	case p == "":
		return CatalogRoute, nil
	case p == "/orders":
		return OrdersRoute, nil
	case p == "/checkout":
		return CheckoutRoute, nil
	case strings.HasPrefix(p, "/cafeteria/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(p, "/cafeteria/"), 10, 64)
		if err != nil || id <= 0 {
			return Route{}, fmt.Errorf("%w: %q", ErrUnknownRoute, path)
		}
		return MenuRoute(id), nil
	}
	return Route{}, fmt.Errorf("%w: %q", ErrUnknownRoute, path)
}

// Callback data carried by inline buttons. Telegram caps it at 64 bytes.
const (
	cbNav      = "nav:"  // nav:<path>
	cbQty      = "qty:"  // qty:<cafeteria>:<item>:<delta>  menu selector
	cbAdd      = "add:"  // add:<cafeteria>:<item>          menu "Add to cart"
	cbLine     = "line:" // line:<item>:<delta>             review quantity
	cbDel      = "del:"  // del:<item>
	cbPage     = "page:" // page:<n>:<path>                 keyboard page of a view
	cbClear    = "clear" // clear the cart
	cbOrder    = "order" // place the order
	cbEditForm = "form"  // re-enter delivery details
	cbNoop     = "noop"  // quantity labels
)

type actionKind int

const (
	actNav actionKind = iota
	actQty
	actAdd
	actLine
	actDel
	actClear
	actOrder
	actEditForm
	actPage
	actNoop
)

type action struct {
	Kind   actionKind
	Route  Route // target of actNav/actPage, menu of actQty/actAdd
	ItemID int64
	Delta  int
	Page   int
}

var errBadCallback = errors.New("bad callback data")

func navData(r Route) string {
	return cbNav + r.Path()
}

func qtyData(cafeteriaID, itemID int64, d int) string {
	return fmt.Sprintf("%s%d:%d:%+d", cbQty, cafeteriaID, itemID, d)
}

func addData(cafeteriaID, itemID int64) string {
	return fmt.Sprintf("%s%d:%d", cbAdd, cafeteriaID, itemID)
}

func lineData(itemID int64, d int) string {
	return fmt.Sprintf("%s%d:%+d", cbLine, itemID, d)
}

func delData(itemID int64) string {
	return cbDel + strconv.FormatInt(itemID, 10)
}

func pageData(r Route, page int) string {
	return cbPage + strconv.Itoa(page) + ":" + r.Path()
}

func parseCallback(data string) (action, error) {
	switch {
	case strings.HasPrefix(data, cbNav):
		r, err := ParseRoute(strings.TrimPrefix(data, cbNav))
		if err != nil {
			return action{}, err
		}
		return action{Kind: actNav, Route: r}, nil
	case strings.HasPrefix(data, cbQty):
		cafStr, rest, ok := strings.Cut(strings.TrimPrefix(data, cbQty), ":")
		if !ok {
			return action{}, fmt.Errorf("%w: %q", errBadCallback, data)
		}
		caf, err := parseItemID(cafStr)
		if err != nil {
			return action{}, err
		}
		id, d, err := parseItemDelta(rest)
		return action{Kind: actQty, Route: MenuRoute(caf), ItemID: id, Delta: d}, err
	case strings.HasPrefix(data, cbLine):
		id, d, err := parseItemDelta(strings.TrimPrefix(data, cbLine))
		return action{Kind: actLine, ItemID: id, Delta: d}, err
	case strings.HasPrefix(data, cbAdd):
		cafStr, idStr, ok := strings.Cut(strings.TrimPrefix(data, cbAdd), ":")
		if !ok {
			return action{}, fmt.Errorf("%w: %q", errBadCallback, data)
		}
		caf, err := parseItemID(cafStr)
		if err != nil {
			return action{}, err
		}
		id, err := parseItemID(idStr)
		return action{Kind: actAdd, Route: MenuRoute(caf), ItemID: id}, err
	case strings.HasPrefix(data, cbDel):
		id, err := parseItemID(strings.TrimPrefix(data, cbDel))
		return action{Kind: actDel, ItemID: id}, err
	case strings.HasPrefix(data, cbPage):
		pageStr, path, ok := strings.Cut(strings.TrimPrefix(data, cbPage), ":")
		if !ok {
			return action{}, fmt.Errorf("%w: %q", errBadCallback, data)
		}
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 0 {
			return action{}, fmt.Errorf("%w: page %q", errBadCallback, pageStr)
		}
		r, err := ParseRoute(path)
		if err != nil {
			return action{}, err
		}
		return action{Kind: actPage, Route: r, Page: page}, nil
	case data == cbClear:
		return action{Kind: actClear}, nil
	case data == cbOrder:
		return action{Kind: actOrder}, nil
	case data == cbEditForm:
		return action{Kind: actEditForm}, nil
	case data == cbNoop:
		return action{Kind: actNoop}, nil
	}
	return action{}, fmt.Errorf("%w: %q", errBadCallback, data)
}

func parseItemID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: item %q", errBadCallback, s)
	}
	return id, nil
}

func parseItemDelta(s string) (int64, int, error) {
	idStr, deltaStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", errBadCallback, s)
	}
	id, err := parseItemID(idStr)
	if err != nil {
		return 0, 0, err
	}
	d, err := strconv.Atoi(deltaStr)
	if err != nil || (d != 1 && d != -1) {
		return 0, 0, fmt.Errorf("%w: delta %q", errBadCallback, deltaStr)
	}
	return id, d, nil
}
