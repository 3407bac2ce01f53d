package purchases

import (
	"errors"
	"fmt"

	"github.com/digibilling/digibilling/internal/platform/httpx"
)

// PaymentStatus tracks how much of a purchase bill has been settled.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// PaymentMode is the instrument used to settle a purchase bill.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeCredit PaymentMode = "CREDIT"
	PaymentModeBank   PaymentMode = "BANK"
	PaymentModeUPI    PaymentMode = "UPI"
	PaymentModeCheque PaymentMode = "CHEQUE"
)

// GSTRates lists the percentage slabs a line item may carry.
var GSTRates = []Amount{0, 5, 12, 18, 28}

// DefaultGSTRate is applied to freshly added line items.
const DefaultGSTRate Amount = 12

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// PurchaseLineItem is one received batch of a product.
type PurchaseLineItem struct {
	Product       string `json:"product"`
	BatchNo       string `json:"batchNo"`
	ExpiryDate    string `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
	Quantity      Amount `json:"quantity" validate:"money,whole"`
	FreeQuantity  Amount `json:"freeQuantity" validate:"money,whole"`
	PurchasePrice Amount `json:"purchasePrice" validate:"money"`
	MRP           Amount `json:"mrp" validate:"money"`
	SellingPrice  Amount `json:"sellingPrice" validate:"money"`
	GSTRate       Amount `json:"gstRate" validate:"gst_rate"`
	Discount      Amount `json:"discount" validate:"money"`
}

// PurchaseDocument is a supplier bill as entered by the user. Totals are
// never stored on it; they are derived with ComputeDocumentTotals.
type PurchaseDocument struct {
	Supplier         string             `json:"supplier"`
	BillNumber       string             `json:"billNumber"`
	BillDate         string             `json:"billDate" validate:"omitempty,datetime=2006-01-02"`
	PurchaseDate     string             `json:"purchaseDate" validate:"omitempty,datetime=2006-01-02"`
	Items            []PurchaseLineItem `json:"items" validate:"dive"`
	FreightCharges   Amount             `json:"freightCharges" validate:"money"`
	PackagingCharges Amount             `json:"packagingCharges" validate:"money"`
	OtherCharges     Amount             `json:"otherCharges" validate:"money"`
	Discount         Amount             `json:"discount" validate:"money"`
	PaymentStatus    PaymentStatus      `json:"paymentStatus" validate:"oneof=UNPAID PARTIAL PAID"`
	PaymentMode      PaymentMode        `json:"paymentMode" validate:"oneof=CASH CREDIT BANK UPI CHEQUE"`
	PaidAmount       Amount             `json:"paidAmount" validate:"money"`
	Notes            string             `json:"notes"`
}

// Totals are the document-level derived values sent along with a create.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	TotalGST   float64 `json:"totalGST"`
	GrandTotal float64 `json:"grandTotal"`
}

// LineBreakdown exposes the intermediate values of one line.
type LineBreakdown struct {
	Position      int     `json:"position"`
	TaxableAmount float64 `json:"taxableAmount"`
	GSTAmount     float64 `json:"gstAmount"`
	LineTotal     float64 `json:"lineTotal"`
}

// Supplier is a selectable supplier as returned by the backend.
type Supplier struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	GSTIN string `json:"gstin"`
}

// Product is a selectable product as returned by the backend.
type Product struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	GenericName string `json:"genericName"`
}

// ReferenceData bundles the selection lists needed before a document can be edited.
type ReferenceData struct {
	Suppliers []Supplier `json:"suppliers"`
	Products  []Product  `json:"products"`
}

// CreatedPurchase acknowledges a purchase persisted by the backend.
type CreatedPurchase struct {
	ID     string `json:"_id"`
	Totals Totals `json:"totals"`
}

var (
	// ErrValidation marks a document rejected before reaching the backend.
	ErrValidation = fmt.Errorf("purchases: %w", httpx.ErrValidation)
	// ErrReferenceData marks a failed supplier/product load.
	ErrReferenceData = fmt.Errorf("purchases: reference data unavailable: %w", httpx.ErrUpstream)
	// ErrDuplicateSubmission is returned while an identical submission is in flight or done.
	ErrDuplicateSubmission = fmt.Errorf("purchases: submission already received: %w", httpx.ErrConflict)
	// ErrItemIndex is returned by draft edits addressing a missing item.
	ErrItemIndex = errors.New("purchases: item index out of range")
)
