package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/digibilling/digibilling/internal/purchases"
)

// TotalsOptions defines available flags for the totals command.
type TotalsOptions struct {
	File       string
	JSONOutput bool
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// TotalsReport describes the JSON response for totals.
type TotalsReport struct {
	OK       bool                          `json:"ok"`
	Totals   purchases.Totals              `json:"totals"`
	Lines    []purchases.LineBreakdown     `json:"lines"`
	Summary  purchases.Summary             `json:"summary"`
	Failures []purchases.ValidationFailure `json:"failures"`
}

// ParseTotalsFlags parses the totals subcommand arguments.
func ParseTotalsFlags(args []string, stderr io.Writer) (TotalsOptions, error) {
	fs := flag.NewFlagSet("totals", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts TotalsOptions
	fs.StringVar(&opts.File, "file", "", "purchase document JSON (default stdin)")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return TotalsOptions{}, err
	}
	opts.Stderr = stderr
	return opts, nil
}

// TotalsCommand computes the totals of a purchase document and prints them.
// It returns 0 on success, 1 when the input cannot be read and 10 when the
// document would be rejected on submission.
func TotalsCommand(opts TotalsOptions) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	in := opts.Stdin
	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "totals: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	doc, err := purchases.DecodeDocument(in)
	if err != nil {
		renderInputError(opts.Stderr, err)
		return 1
	}

	report := buildTotalsReport(doc)
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(report); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "totals: encode json: %v\n", err)
			return 1
		}
	} else {
		renderTotalsHuman(opts.Stdout, doc, report)
	}
	if !report.OK {
		return 10
	}
	return 0
}

func buildTotalsReport(doc purchases.PurchaseDocument) TotalsReport {
	failures := purchases.ValidateForSubmit(doc)
	if failures == nil {
		failures = []purchases.ValidationFailure{}
	}
	return TotalsReport{
		OK:       len(failures) == 0,
		Totals:   purchases.ComputeDocumentTotals(doc),
		Lines:    purchases.Breakdown(doc),
		Summary:  purchases.Summarize(doc),
		Failures: failures,
	}
}

func renderInputError(out io.Writer, err error) {
	var inputErr *purchases.InputError
	if !errors.As(err, &inputErr) {
		_, _ = fmt.Fprintf(out, "totals: %v\n", err)
		return
	}
	keys := make([]string, 0, len(inputErr.Fields))
	for k := range inputErr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	_, _ = fmt.Fprintf(out, "totals: %d invalid field(s):\n", len(keys))
	for _, k := range keys {
		_, _ = fmt.Fprintf(out, " - %s %s\n", k, inputErr.Fields[k])
	}
}

func renderTotalsHuman(out io.Writer, doc purchases.PurchaseDocument, report TotalsReport) {
	_, _ = fmt.Fprintf(out, "Purchase %s from %s, %d item(s)\n", orDash(doc.BillNumber), orDash(doc.Supplier), len(doc.Items))
	for i, line := range report.Lines {
		_, _ = fmt.Fprintf(out, " %2d. taxable %s  gst %s  total %s\n",
			line.Position,
			purchases.FormatAmount(line.TaxableAmount),
			purchases.FormatAmount(line.GSTAmount),
			report.Summary.ItemTotals[i],
		)
	}
	_, _ = fmt.Fprintf(out, "Subtotal:           %s\n", report.Summary.Subtotal)
	_, _ = fmt.Fprintf(out, "Total GST:          %s\n", report.Summary.TotalGST)
	_, _ = fmt.Fprintf(out, "Additional charges: %s\n", report.Summary.AdditionalCharges)
	_, _ = fmt.Fprintf(out, "Discount:           %s\n", report.Summary.Discount)
	_, _ = fmt.Fprintf(out, "Grand total:        %s\n", report.Summary.GrandTotal)
	for _, f := range report.Failures {
		_, _ = fmt.Fprintf(out, "Not submittable: %s\n", f.Message)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
