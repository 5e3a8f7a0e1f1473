package domain

import "time"

// StoreInfo is the header block printed on every receipt.
type StoreInfo struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
}

// Customer is the optional customer attached to a sale.
type Customer struct {
	Name string `json:"name"`
}

// ReceiptItem is one printed line of a completed sale.
type ReceiptItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price,omitempty"`
	Amount      float64 `json:"amount"`
}

// ReceiptDocument is an immutable snapshot taken at print time. Once
// constructed it does not change, even if the live cart does.
type ReceiptDocument struct {
	Store          StoreInfo     `json:"store"`
	Customer       *Customer     `json:"customer,omitempty"`
	Items          []ReceiptItem `json:"items"`
	CartTotal      float64       `json:"cart_total"`
	AmountTendered float64       `json:"amount_tendered"`
	Change         float64       `json:"change"`
	LoyaltyPoints  int           `json:"loyalty_points"`
	Timestamp      time.Time     `json:"timestamp"`
}
