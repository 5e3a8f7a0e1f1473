package domain

// CartItem is one line of the live sale. The product is snapshotted at
// add time; its price may be overridden per line without touching the
// catalog. Item identity is per scan event, merging is by product
// identity.
type CartItem struct {
	ID       string  `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Amount is the extended line total at the current (possibly overridden)
// price.
func (i CartItem) Amount() float64 {
	return i.Product.Price * float64(i.Quantity)
}
