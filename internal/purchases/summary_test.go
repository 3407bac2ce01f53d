package purchases

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "560.00", FormatAmount(560))
	assert.Equal(t, "94.50", FormatAmount(94.5))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "-11.20", FormatAmount(-11.2))
	assert.Equal(t, "0.30", FormatAmount(0.1+0.2))
	assert.Equal(t, "NaN", FormatAmount(math.NaN()))
	assert.Equal(t, "Infinity", FormatAmount(math.Inf(1)))
	assert.Equal(t, "-Infinity", FormatAmount(math.Inf(-1)))
}

func TestSummarize(t *testing.T) {
	doc := PurchaseDocument{
		Items:          []PurchaseLineItem{sampleItem(), secondItem()},
		FreightCharges: 20,
		Discount:       5,
	}

	assert.Equal(t, Summary{
		ItemTotals:        []string{"560.00", "94.50"},
		Subtotal:          "590.00",
		TotalGST:          "64.50",
		AdditionalCharges: "20.00",
		Discount:          "5.00",
		GrandTotal:        "669.50",
	}, Summarize(doc))
}

func TestSummarizeEmptyDocument(t *testing.T) {
	s := Summarize(PurchaseDocument{})
	assert.Empty(t, s.ItemTotals)
	assert.Equal(t, "0.00", s.GrandTotal)
}
