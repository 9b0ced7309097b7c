package models

import "github.com/shopspring/decimal"

// Cafeteria is a vendor location as listed by the catalog API.
type Cafeteria struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// MenuItem is one entry of a cafeteria's menu. Price may arrive as a JSON
// number or a decimal string; decimal.Decimal accepts both.
type MenuItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	Category  string          `json:"category_name,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// CafeteriaDetail is the body of GET api/cafeterias/{id}/.
type CafeteriaDetail struct {
	Cafeteria
	MenuItems []MenuItem `json:"menu_items"`
}
