package receipt

import "scanlane/internal/domain"

// Preview is the display-oriented rendering of a receipt. It is built
// from the same document as the printed stream, so preview and print can
// differ in formatting but never in content.
type Preview struct {
	Store     domain.StoreInfo `json:"store"`
	Customer  string           `json:"customer"`
	Date      string           `json:"date"`
	Rows      []PreviewRow     `json:"rows"`
	Total     string           `json:"total"`
	Amount    string           `json:"amount"`
	Change    string           `json:"change"`
	Points    int              `json:"points"`
	FooterTop string           `json:"footer_top"`
	Footer    string           `json:"footer"`
}

// PreviewRow is one rendered item line.
type PreviewRow struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

// BuildPreview renders the on-screen view of a receipt document.
func BuildPreview(doc domain.ReceiptDocument) Preview {
	rows := make([]PreviewRow, 0, len(doc.Items))
	for i, item := range doc.Items {
		rows = append(rows, PreviewRow{
			Index:       i + 1,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   Money(unitPrice(item)),
			Amount:      Money(item.Amount),
		})
	}

	return Preview{
		Store:     doc.Store,
		Customer:  customerName(doc),
		Date:      doc.Timestamp.Format("January 02, 2006"),
		Rows:      rows,
		Total:     Money(doc.CartTotal),
		Amount:    Money(doc.AmountTendered),
		Change:    Money(doc.Change),
		Points:    doc.LoyaltyPoints,
		FooterTop: footerCopy,
		Footer:    footerThanks,
	}
}
