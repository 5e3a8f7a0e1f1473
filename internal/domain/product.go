package domain

// Product is a read-only, time-limited copy of a catalog record. The
// external catalog service owns the source of truth; this service only
// caches and snapshots it.
type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Barcode    string  `json:"barcode"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	CategoryID string  `json:"category_id"`
}

// SameIdentity reports whether two products refer to the same catalog
// record. Identity is the catalog ID when both sides carry one, otherwise
// the barcode. Products with neither are never equal.
func (p Product) SameIdentity(other Product) bool {
	if p.ID != "" && other.ID != "" {
		return p.ID == other.ID
	}
	return p.Barcode != "" && other.Barcode != "" && p.Barcode == other.Barcode
}
