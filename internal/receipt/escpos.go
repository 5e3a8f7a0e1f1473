package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"scanlane/internal/domain"
)

// ESC/POS command sequences for 80mm thermal printers, 32-column text.
const (
	escInit     = "\x1B\x40"     // ESC @  initialize
	escCodePage = "\x1B\x74\x00" // ESC t 0  CP437
	escCenter   = "\x1B\x61\x01" // ESC a 1
	escLeft     = "\x1B\x61\x00" // ESC a 0
	escBoldOn   = "\x1B\x45\x01" // ESC E 1
	escBoldOff  = "\x1B\x45\x00" // ESC E 0
	escFeed3    = "\x1B\x64\x03" // ESC d 3  feed 3 lines
	gsFullCut   = "\x1D\x56\x00" // GS V 0
)

const (
	lineWidth = 32
	descWidth = 15

	currencySymbol = "P"

	columnHeader = "# Description        Qty Price Amount"
	footerCopy   = "CUSTOMER COPY - NOT AN OFFICIAL RECEIPT"
	footerThanks = "THANK YOU - GATANG KA MANEN!"
)

// ErrInvalidDocument flags a document that violates ledger invariants,
// e.g. a negative total. This is a defensive assertion, not a routine
// error path.
var ErrInvalidDocument = errors.New("receipt document violates invariants")

var separator = strings.Repeat("-", lineWidth)

// Encode serializes a receipt document into the printer command stream.
// It is pure: the same document always yields byte-identical output (the
// date line comes from doc.Timestamp, not the wall clock).
func Encode(doc domain.ReceiptDocument) ([]byte, error) {
	if doc.CartTotal < 0 {
		return nil, fmt.Errorf("%w: negative cart total %.2f", ErrInvalidDocument, doc.CartTotal)
	}

	var b bytes.Buffer

	b.WriteString(escInit)
	b.WriteString(escCodePage)

	// Header, centered and bold
	b.WriteString(escCenter)
	b.WriteString(escBoldOn)
	b.WriteString(doc.Store.Name + "\n")
	b.WriteString(doc.Store.Address1 + "\n")
	if doc.Store.Address2 != "" {
		b.WriteString(doc.Store.Address2 + "\n")
	}
	b.WriteString(escBoldOff)
	b.WriteString(escLeft)

	b.WriteString(separator + "\n")
	b.WriteString("Customer: " + customerName(doc) + "\n")
	b.WriteString("Date: " + doc.Timestamp.Format("January 02, 2006") + "\n")
	b.WriteString(separator + "\n")

	b.WriteString(columnHeader + "\n")
	b.WriteString(separator + "\n")

	for i, item := range doc.Items {
		b.WriteString(itemRow(i+1, item) + "\n")
	}

	b.WriteString(separator + "\n")
	b.WriteString("Total:                    " + Money(doc.CartTotal) + "\n")
	b.WriteString("Amount:                   " + Money(doc.AmountTendered) + "\n")
	b.WriteString("Change:                   " + Money(doc.Change) + "\n")
	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf("Customer Points: %d\n", doc.LoyaltyPoints))
	b.WriteString(separator + "\n\n")

	// Footer
	b.WriteString(escCenter)
	b.WriteString(footerCopy + "\n\n")
	b.WriteString(footerThanks + "\n")
	b.WriteString(escLeft)
	b.WriteString(separator + "\n\n")

	b.WriteString(escFeed3)
	b.WriteString(gsFullCut)

	return b.Bytes(), nil
}

// itemRow renders one 32-column item line: index, truncated description,
// quantity, unit price, extended amount.
func itemRow(index int, item domain.ReceiptItem) string {
	desc := item.Description
	if len(desc) > descWidth {
		desc = desc[:12] + "..."
	}
	return fmt.Sprintf("%s %s %s %s %s",
		padLeft(fmt.Sprintf("%d", index), 2),
		padRight(desc, descWidth),
		padLeft(fmt.Sprintf("%d", item.Quantity), 3),
		padLeft(Money(unitPrice(item)), 6),
		padLeft(Money(item.Amount), 7),
	)
}

// unitPrice prefers the explicit per-line price; absent one it derives
// amount/qty, treating qty <= 0 as 1 to guard the division.
func unitPrice(item domain.ReceiptItem) float64 {
	if item.Price != 0 {
		return item.Price
	}
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	return item.Amount / float64(qty)
}

// Money renders a currency value with the symbol prefix and exactly two
// decimals, rounding half-up over the float64 value actually held.
func Money(v float64) string {
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}
	cents := int64(math.Floor(v*100 + 0.5))
	return fmt.Sprintf("%s%s%d.%02d", neg, currencySymbol, cents/100, cents%100)
}

func customerName(doc domain.ReceiptDocument) string {
	if doc.Customer == nil || doc.Customer.Name == "" {
		return "N/A"
	}
	return doc.Customer.Name
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}
