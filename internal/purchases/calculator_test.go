package purchases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItem() PurchaseLineItem {
	return PurchaseLineItem{
		Product:       "p-1",
		BatchNo:       "B1",
		ExpiryDate:    "2027-01-31",
		Quantity:      10,
		PurchasePrice: 50,
		GSTRate:       12,
	}
}

func secondItem() PurchaseLineItem {
	return PurchaseLineItem{
		Product:       "p-2",
		BatchNo:       "B2",
		ExpiryDate:    "2027-06-30",
		Quantity:      5,
		PurchasePrice: 20,
		Discount:      10,
		GSTRate:       5,
	}
}

func TestLineValues(t *testing.T) {
	item := sampleItem()
	assert.Equal(t, 500.0, TaxableAmount(item))
	assert.Equal(t, 60.0, LineGST(item))
	assert.Equal(t, 560.0, LineTotal(item))

	second := secondItem()
	assert.Equal(t, 90.0, TaxableAmount(second))
	assert.Equal(t, 4.5, LineGST(second))
	assert.Equal(t, 94.5, LineTotal(second))
}

func TestComputeDocumentTotalsSingleItem(t *testing.T) {
	doc := PurchaseDocument{Items: []PurchaseLineItem{sampleItem()}}

	totals := ComputeDocumentTotals(doc)
	assert.Equal(t, Totals{Subtotal: 500, TotalGST: 60, GrandTotal: 560}, totals)
}

func TestComputeDocumentTotalsChargesAndDiscount(t *testing.T) {
	doc := PurchaseDocument{Items: []PurchaseLineItem{sampleItem(), secondItem()}}

	totals := ComputeDocumentTotals(doc)
	assert.Equal(t, 654.5, totals.GrandTotal)
	assert.Equal(t, 64.5, totals.TotalGST)
	assert.Equal(t, 590.0, totals.Subtotal)

	doc.FreightCharges = 20
	doc.Discount = 5
	totals = ComputeDocumentTotals(doc)
	assert.Equal(t, 669.5, totals.GrandTotal)
	assert.Equal(t, 64.5, totals.TotalGST)
	assert.Equal(t, 590.0, totals.Subtotal)
}

func TestComputeDocumentTotalsEmptyDocument(t *testing.T) {
	doc := PurchaseDocument{FreightCharges: 15, PackagingCharges: 5, OtherCharges: 2, Discount: 7}

	totals := ComputeDocumentTotals(doc)
	assert.Zero(t, totals.Subtotal)
	assert.Zero(t, totals.TotalGST)
	assert.Equal(t, 15.0, totals.GrandTotal)
}

func TestZeroRateLineHasNoTax(t *testing.T) {
	item := sampleItem()
	item.GSTRate = 0
	item.PurchasePrice = 13.37
	item.Discount = 1.25

	doc := PurchaseDocument{Items: []PurchaseLineItem{item}}
	totals := ComputeDocumentTotals(doc)

	assert.Equal(t, TaxableAmount(item), LineTotal(item))
	assert.Zero(t, totals.TotalGST)
	assert.Equal(t, LineTotal(item), totals.Subtotal)
	assert.Equal(t, LineTotal(item), totals.GrandTotal)
}

func TestSubtotalIsItemsTotalLessGST(t *testing.T) {
	items := []PurchaseLineItem{
		{Quantity: 3, PurchasePrice: 0.1, GSTRate: 18},
		{Quantity: 7, PurchasePrice: 19.99, Discount: 0.37, GSTRate: 28},
		{Quantity: 1, PurchasePrice: 0.3, GSTRate: 5},
	}
	doc := PurchaseDocument{Items: items, OtherCharges: 0.2, Discount: 0.1}

	itemsTotal := 0.0
	gst := 0.0
	for _, item := range items {
		itemsTotal += LineTotal(item)
		gst += LineGST(item)
	}

	totals := ComputeDocumentTotals(doc)
	assert.Equal(t, gst, totals.TotalGST)
	assert.Equal(t, itemsTotal-gst, totals.Subtotal)
	assert.Equal(t, itemsTotal+0.2-0.1, totals.GrandTotal)
}

func TestComputeDocumentTotalsIsPure(t *testing.T) {
	doc := PurchaseDocument{Items: []PurchaseLineItem{sampleItem(), secondItem()}, FreightCharges: 20}
	before := doc.Items[1]

	first := ComputeDocumentTotals(doc)
	second := ComputeDocumentTotals(doc)
	assert.Equal(t, first, second)
	assert.Equal(t, before, doc.Items[1])
}

func TestDiscountAboveLineValueIsNotClamped(t *testing.T) {
	item := PurchaseLineItem{Quantity: 1, PurchasePrice: 10, Discount: 20, GSTRate: 12}

	assert.Equal(t, -10.0, TaxableAmount(item))
	assert.InDelta(t, -1.2, LineGST(item), 1e-12)
	assert.InDelta(t, -11.2, LineTotal(item), 1e-12)

	totals := ComputeDocumentTotals(PurchaseDocument{Items: []PurchaseLineItem{item, sampleItem()}})
	assert.InDelta(t, 58.8, totals.TotalGST, 1e-12)
	assert.InDelta(t, 548.8, totals.GrandTotal, 1e-12)
}

func TestDocumentDiscountCanMakeGrandTotalNegative(t *testing.T) {
	doc := PurchaseDocument{Items: []PurchaseLineItem{sampleItem()}, Discount: 600}
	assert.Equal(t, -40.0, ComputeDocumentTotals(doc).GrandTotal)
}

func TestAdditionalCharges(t *testing.T) {
	doc := PurchaseDocument{FreightCharges: 20, PackagingCharges: 2.5, OtherCharges: 1}
	assert.Equal(t, 23.5, AdditionalCharges(doc))
}

func TestBreakdown(t *testing.T) {
	doc := PurchaseDocument{Items: []PurchaseLineItem{sampleItem(), secondItem()}}

	lines := Breakdown(doc)
	require.Len(t, lines, 2)
	assert.Equal(t, LineBreakdown{Position: 1, TaxableAmount: 500, GSTAmount: 60, LineTotal: 560}, lines[0])
	assert.Equal(t, LineBreakdown{Position: 2, TaxableAmount: 90, GSTAmount: 4.5, LineTotal: 94.5}, lines[1])
	assert.Empty(t, Breakdown(PurchaseDocument{}))
}
