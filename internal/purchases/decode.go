package purchases

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/digibilling/digibilling/internal/platform/httpx"
)

// InputError reports malformed fields found while decoding a document.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "purchases: invalid input: " + strings.Join(parts, "; ")
}

func (e *InputError) Unwrap() error {
	return httpx.ErrValidation
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
	})
	mustRegister(v, "whole", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == math.Trunc(f)
	})
	mustRegister(v, "gst_rate", func(fl validator.FieldLevel) bool {
		return IsAllowedGSTRate(Amount(fl.Field().Float()))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("purchases: register %s validation: %v", tag, err))
	}
}

// DecodeDocument reads a JSON document, fills defaults for omitted payment
// fields and checks field formats. Business rules are left to Validate.
func DecodeDocument(r io.Reader) (PurchaseDocument, error) {
	var doc PurchaseDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return PurchaseDocument{}, fmt.Errorf("purchases: decode document: %w: %w", err, httpx.ErrValidation)
	}
	doc = applyDefaults(doc)
	if err := CheckFields(doc); err != nil {
		return PurchaseDocument{}, err
	}
	if err := CheckComputable(doc); err != nil {
		return PurchaseDocument{}, err
	}
	return doc, nil
}

const overflowMessage = "amounts are too large to compute a total"

// CheckComputable rejects documents whose amounts are individually valid
// but overflow float64 once multiplied or summed. Offending lines are named
// by index; document-level overflow is reported on additionalCharges or
// grandTotal.
func CheckComputable(doc PurchaseDocument) error {
	fields := make(map[string]string)
	for _, line := range Breakdown(doc) {
		if !finite(line.TaxableAmount) || !finite(line.GSTAmount) || !finite(line.LineTotal) {
			fields[fmt.Sprintf("items[%d]", line.Position-1)] = overflowMessage
		}
	}
	if len(fields) == 0 {
		totals := ComputeDocumentTotals(doc)
		switch {
		case !finite(AdditionalCharges(doc)):
			fields["additionalCharges"] = overflowMessage
		case !finite(totals.Subtotal) || !finite(totals.TotalGST) || !finite(totals.GrandTotal):
			fields["grandTotal"] = overflowMessage
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &InputError{Fields: fields}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CheckFields runs the structural field checks on doc.
func CheckFields(doc PurchaseDocument) error {
	err := structValidator.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldKey(fe.Namespace())] = describe(fe)
	}
	return &InputError{Fields: fields}
}

func applyDefaults(doc PurchaseDocument) PurchaseDocument {
	if doc.PaymentStatus == "" {
		doc.PaymentStatus = PaymentUnpaid
	}
	if doc.PaymentMode == "" {
		doc.PaymentMode = PaymentModeCredit
	}
	if doc.Items == nil {
		doc.Items = []PurchaseLineItem{}
	}
	return doc
}

// fieldKey drops the root struct name, "PurchaseDocument.items[0].gstRate"
// becomes "items[0].gstRate".
func fieldKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "money":
		return "must be a finite amount of zero or more"
	case "whole":
		return "must be a whole number"
	case "gst_rate":
		return "must be one of 0, 5, 12, 18 or 28"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	default:
		return fe.Error()
	}
}
