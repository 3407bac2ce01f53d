package purchases

import (
	"math"

	"github.com/shopspring/decimal"
)

// Summary is the display form of a document's totals, two decimals each.
type Summary struct {
	ItemTotals        []string `json:"itemTotals"`
	Subtotal          string   `json:"subtotal"`
	TotalGST          string   `json:"totalGST"`
	AdditionalCharges string   `json:"additionalCharges"`
	Discount          string   `json:"discount"`
	GrandTotal        string   `json:"grandTotal"`
}

// FormatAmount renders v with exactly two decimals, rounding half away
// from zero. Display only: computed totals keep full float64 precision.
func FormatAmount(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Summarize formats the totals shown beneath the entry form.
func Summarize(doc PurchaseDocument) Summary {
	totals := ComputeDocumentTotals(doc)
	items := make([]string, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, FormatAmount(LineTotal(item)))
	}
	return Summary{
		ItemTotals:        items,
		Subtotal:          FormatAmount(totals.Subtotal),
		TotalGST:          FormatAmount(totals.TotalGST),
		AdditionalCharges: FormatAmount(AdditionalCharges(doc)),
		Discount:          FormatAmount(doc.Discount.Float()),
		GrandTotal:        FormatAmount(totals.GrandTotal),
	}
}
