package purchases

import (
	"fmt"
	"strings"
)

// ValidationFailure describes one reason a document cannot be submitted.
// Position is the 1-based item position, or 0 for document-level fields.
type ValidationFailure struct {
	Position int    `json:"position,omitempty"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (f ValidationFailure) Error() string {
	return f.Message
}

// Key names the failing field using JSON indexing, so the second item's
// batch number is "items[1].batchNo".
func (f ValidationFailure) Key() string {
	if f.Position == 0 {
		return f.Field
	}
	return fmt.Sprintf("items[%d].%s", f.Position-1, f.Field)
}

// ValidationError carries the failures of a rejected submission.
type ValidationError struct {
	Failures []ValidationFailure
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validate reports the first reason doc cannot be submitted, or nil.
// Only one failure is ever returned so the user fixes problems in the
// same sequence the entry screen has always presented them.
func Validate(doc PurchaseDocument) []ValidationFailure {
	return collect(doc, true)
}

// ValidateAll reports every failure in the order Validate would find them.
func ValidateAll(doc PurchaseDocument) []ValidationFailure {
	return collect(doc, false)
}

// ValidateForSubmit is Validate followed by the bill header checks: a bill
// number and both dates must be present before a document is sent.
func ValidateForSubmit(doc PurchaseDocument) []ValidationFailure {
	if failures := Validate(doc); len(failures) > 0 {
		return failures
	}
	if failures := billFailures(doc); len(failures) > 0 {
		return failures[:1]
	}
	return nil
}

type billRule struct {
	field   string
	tag     string
	message string
	value   func(PurchaseDocument) string
}

var billRules = []billRule{
	{"billNumber", "required", "Please enter bill number", func(d PurchaseDocument) string { return d.BillNumber }},
	{"billDate", "required,datetime=2006-01-02", "Please enter bill date", func(d PurchaseDocument) string { return d.BillDate }},
	{"purchaseDate", "required,datetime=2006-01-02", "Please enter purchase date", func(d PurchaseDocument) string { return d.PurchaseDate }},
}

func billFailures(doc PurchaseDocument) []ValidationFailure {
	var out []ValidationFailure
	for _, rule := range billRules {
		if err := structValidator.Var(rule.value(doc), rule.tag); err != nil {
			out = append(out, ValidationFailure{Field: rule.field, Message: rule.message})
		}
	}
	return out
}

func collect(doc PurchaseDocument, firstOnly bool) []ValidationFailure {
	var failures []ValidationFailure
	add := func(f ValidationFailure) bool {
		failures = append(failures, f)
		return firstOnly
	}

	if len(doc.Items) == 0 {
		if add(ValidationFailure{Field: "items", Message: "Please add at least one item"}) {
			return failures
		}
	}
	if doc.Supplier == "" {
		if add(ValidationFailure{Field: "supplier", Message: "Please select a supplier"}) {
			return failures
		}
	}
	for i, item := range doc.Items {
		for _, f := range itemFailures(i+1, item) {
			if add(f) {
				return failures
			}
		}
	}
	return failures
}

func itemFailures(pos int, item PurchaseLineItem) []ValidationFailure {
	var out []ValidationFailure
	if item.Product == "" {
		out = append(out, ValidationFailure{Position: pos, Field: "product", Message: fmt.Sprintf("Please select product for item %d", pos)})
	}
	if item.BatchNo == "" {
		out = append(out, ValidationFailure{Position: pos, Field: "batchNo", Message: fmt.Sprintf("Please enter batch number for item %d", pos)})
	}
	if item.ExpiryDate == "" {
		out = append(out, ValidationFailure{Position: pos, Field: "expiryDate", Message: fmt.Sprintf("Please enter expiry date for item %d", pos)})
	}
	if item.Quantity <= 0 {
		out = append(out, ValidationFailure{Position: pos, Field: "quantity", Message: fmt.Sprintf("Please enter valid quantity for item %d", pos)})
	}
	if item.PurchasePrice <= 0 {
		out = append(out, ValidationFailure{Position: pos, Field: "purchasePrice", Message: fmt.Sprintf("Please enter valid purchase price for item %d", pos)})
	}
	return out
}
