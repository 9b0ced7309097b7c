package models

// OrderItem references a menu item by id; the server re-prices it.
type OrderItem struct {
	MenuItem int64 `json:"menu_item"`
	Quantity int   `json:"quantity"`
}

// OrderDraft is the body of POST api/orders/.
type OrderDraft struct {
	CustomerName    string      `json:"customer_name"`
	PhoneNumber     string      `json:"phone_number"`
	DeliveryAddress string      `json:"delivery_address"`
	OrderItems      []OrderItem `json:"order_items"`
}
