package purchases

import "time"

// NewDocument returns an empty bill dated today.
func NewDocument(today time.Time) PurchaseDocument {
	date := today.Format(DateLayout)
	return PurchaseDocument{
		BillDate:      date,
		PurchaseDate:  date,
		Items:         []PurchaseLineItem{},
		PaymentStatus: PaymentUnpaid,
		PaymentMode:   PaymentModeCredit,
	}
}

// NewLineItem returns a blank line with a single unit at the default rate.
func NewLineItem() PurchaseLineItem {
	return PurchaseLineItem{Quantity: 1, GSTRate: DefaultGSTRate}
}

// AddItem returns a copy of doc with a blank line appended.
func AddItem(doc PurchaseDocument) PurchaseDocument {
	items := make([]PurchaseLineItem, len(doc.Items), len(doc.Items)+1)
	copy(items, doc.Items)
	doc.Items = append(items, NewLineItem())
	return doc
}

// RemoveItem returns a copy of doc without the item at index.
func RemoveItem(doc PurchaseDocument, index int) (PurchaseDocument, error) {
	if index < 0 || index >= len(doc.Items) {
		return doc, ErrItemIndex
	}
	items := make([]PurchaseLineItem, 0, len(doc.Items)-1)
	items = append(items, doc.Items[:index]...)
	items = append(items, doc.Items[index+1:]...)
	doc.Items = items
	return doc, nil
}

// UpdateItem returns a copy of doc with the item at index replaced by
// the result of edit. The input snapshot is left untouched.
func UpdateItem(doc PurchaseDocument, index int, edit func(PurchaseLineItem) PurchaseLineItem) (PurchaseDocument, error) {
	if index < 0 || index >= len(doc.Items) {
		return doc, ErrItemIndex
	}
	items := make([]PurchaseLineItem, len(doc.Items))
	copy(items, doc.Items)
	items[index] = edit(items[index])
	doc.Items = items
	return doc, nil
}
