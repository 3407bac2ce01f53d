package purchases

// TaxableAmount is the line value after the flat line discount, before GST.
// It is not clamped: a discount larger than quantity × price yields a
// negative amount and therefore a negative GST contribution.
func TaxableAmount(item PurchaseLineItem) float64 {
	// Explicit conversion: the product must be rounded before the
	// subtraction, never fused into an FMA.
	gross := float64(item.Quantity.Float() * item.PurchasePrice.Float())
	return gross - item.Discount.Float()
}

// LineGST is the tax on the taxable amount at the item's rate.
func LineGST(item PurchaseLineItem) float64 {
	return TaxableAmount(item) * item.GSTRate.Float() / 100
}

// LineTotal is the taxable amount plus its GST.
func LineTotal(item PurchaseLineItem) float64 {
	taxable := TaxableAmount(item)
	gst := taxable * item.GSTRate.Float() / 100
	return taxable + gst
}

// AdditionalCharges sums the post-tax charges in a fixed order.
func AdditionalCharges(doc PurchaseDocument) float64 {
	return doc.FreightCharges.Float() + doc.PackagingCharges.Float() + doc.OtherCharges.Float()
}

// ComputeDocumentTotals derives subtotal, total GST and grand total.
//
// The evaluation order is fixed. totalGST is summed on its own rather
// than derived, subtotal is itemsTotal - totalGST, and the document
// discount comes off after the charges are added.
func ComputeDocumentTotals(doc PurchaseDocument) Totals {
	itemsTotal := 0.0
	for _, item := range doc.Items {
		itemsTotal += LineTotal(item)
	}
	grandTotal := itemsTotal + AdditionalCharges(doc) - doc.Discount.Float()

	totalGST := 0.0
	for _, item := range doc.Items {
		totalGST += TaxableAmount(item) * item.GSTRate.Float() / 100
	}

	return Totals{
		Subtotal:   itemsTotal - totalGST,
		TotalGST:   totalGST,
		GrandTotal: grandTotal,
	}
}

// Breakdown returns the per-line intermediate values in list order.
func Breakdown(doc PurchaseDocument) []LineBreakdown {
	lines := make([]LineBreakdown, 0, len(doc.Items))
	for i, item := range doc.Items {
		lines = append(lines, LineBreakdown{
			Position:      i + 1,
			TaxableAmount: TaxableAmount(item),
			GSTAmount:     LineGST(item),
			LineTotal:     LineTotal(item),
		})
	}
	return lines
}
