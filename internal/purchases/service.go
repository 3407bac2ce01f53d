package purchases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/digibilling/digibilling/internal/backend"
	"github.com/digibilling/digibilling/internal/shared"
)

// Submission outcomes reported to MetricsRecorder.
const (
	OutcomeCreated   = "created"
	OutcomeInvalid   = "invalid"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

const idempotencyModule = "purchases.create"

// ReferenceSource supplies the selection lists for the entry form.
type ReferenceSource interface {
	Suppliers(ctx context.Context) ([]Supplier, error)
	Products(ctx context.Context) ([]Product, error)
}

// PurchaseCreator persists a purchase in the backend and returns its id.
type PurchaseCreator interface {
	CreatePurchase(ctx context.Context, payload CreatePayload) (string, error)
}

// IdempotencyPort guards against the same document being submitted twice.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records accepted purchases.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RefreshScheduler queues a refresh of cached reference lists.
type RefreshScheduler interface {
	ScheduleReferenceRefresh(ctx context.Context, purchaseID string) error
}

// MetricsRecorder counts submission outcomes and reference failures.
type MetricsRecorder interface {
	ObservePurchase(outcome string)
	ObserveReferenceFailure()
}

// CreatePayload is what the backend receives: the document as entered plus
// the client-computed totals.
type CreatePayload struct {
	PurchaseDocument
	Subtotal   float64 `json:"subtotal"`
	TotalGST   float64 `json:"totalGST"`
	GrandTotal float64 `json:"grandTotal"`
}

// Quote is the preview of a document: per-line values, totals, display
// strings and every outstanding validation issue.
type Quote struct {
	Lines             []LineBreakdown     `json:"lines"`
	Totals            Totals              `json:"totals"`
	AdditionalCharges float64             `json:"additionalCharges"`
	Summary           Summary             `json:"summary"`
	Issues            []ValidationFailure `json:"issues"`
}

// Service orchestrates purchase entry.
type Service struct {
	reference   ReferenceSource
	creator     PurchaseCreator
	idempotency IdempotencyPort
	audit       AuditPort
	refresh     RefreshScheduler
	metrics     MetricsRecorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the purchase service. Only reference and creator
// are required; the remaining collaborators may be nil.
func NewService(reference ReferenceSource, creator PurchaseCreator, idem IdempotencyPort, audit AuditPort, refresh RefreshScheduler, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reference:   reference,
		creator:     creator,
		idempotency: idem,
		audit:       audit,
		refresh:     refresh,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the clock used for new drafts.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// NewDraft returns an empty document dated today (UTC).
func (s *Service) NewDraft() PurchaseDocument {
	return NewDocument(s.now().UTC())
}

// LoadReferenceData fetches suppliers and products concurrently. Both must
// succeed; a failure of either fails the whole load and is not retried.
func (s *Service) LoadReferenceData(ctx context.Context) (ReferenceData, error) {
	var data ReferenceData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		suppliers, err := s.reference.Suppliers(gctx)
		if err != nil {
			return err
		}
		data.Suppliers = suppliers
		return nil
	})
	g.Go(func() error {
		products, err := s.reference.Products(gctx)
		if err != nil {
			return err
		}
		data.Products = products
		return nil
	})
	if err := g.Wait(); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveReferenceFailure()
		}
		return ReferenceData{}, fmt.Errorf("%w: %w", ErrReferenceData, err)
	}
	return data, nil
}

// Quote computes everything the entry screen displays for doc.
func (s *Service) Quote(doc PurchaseDocument) Quote {
	issues := append(ValidateAll(doc), billFailures(doc)...)
	if issues == nil {
		issues = []ValidationFailure{}
	}
	return Quote{
		Lines:             Breakdown(doc),
		Totals:            ComputeDocumentTotals(doc),
		AdditionalCharges: AdditionalCharges(doc),
		Summary:           Summarize(doc),
		Issues:            issues,
	}
}

// Submit validates doc, attaches its totals and creates it in the backend.
// key identifies the submission; when empty it is derived from the payload
// so an identical document cannot be created twice.
func (s *Service) Submit(ctx context.Context, doc PurchaseDocument, key string) (CreatedPurchase, error) {
	if failures := ValidateForSubmit(doc); len(failures) > 0 {
		s.observe(OutcomeInvalid)
		return CreatedPurchase{}, &ValidationError{Failures: failures}
	}

	totals := ComputeDocumentTotals(doc)
	payload := CreatePayload{
		PurchaseDocument: doc,
		Subtotal:         totals.Subtotal,
		TotalGST:         totals.TotalGST,
		GrandTotal:       totals.GrandTotal,
	}
	for i, item := range doc.Items {
		if taxable := TaxableAmount(item); taxable < 0 {
			s.logger.Warn("line discount exceeds line value",
				slog.Int("position", i+1),
				slog.Float64("taxable_amount", taxable),
				slog.String("bill_number", doc.BillNumber))
		}
	}

	if key == "" {
		derived, err := payloadKey(payload)
		if err != nil {
			s.observe(OutcomeFailed)
			return CreatedPurchase{}, err
		}
		key = derived
	}
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.observe(OutcomeDuplicate)
				return CreatedPurchase{}, ErrDuplicateSubmission
			}
			s.observe(OutcomeFailed)
			return CreatedPurchase{}, fmt.Errorf("purchases: reserve submission: %w", err)
		}
		inserted = true
	}

	id, err := s.creator.CreatePurchase(ctx, payload)
	if err != nil {
		if inserted {
			if delErr := s.idempotency.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr), slog.String("key", key))
			}
		}
		s.observe(outcomeForBackendError(err))
		return CreatedPurchase{}, fmt.Errorf("purchases: create: %w", err)
	}

	created := CreatedPurchase{ID: id, Totals: totals}
	s.observe(OutcomeCreated)
	s.recordAudit(ctx, created, doc)
	if s.refresh != nil {
		if err := s.refresh.ScheduleReferenceRefresh(ctx, id); err != nil {
			s.logger.Warn("schedule reference refresh", slog.Any("error", err), slog.String("purchase_id", id))
		}
	}
	return created, nil
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePurchase(outcome)
	}
}

func (s *Service) recordAudit(ctx context.Context, created CreatedPurchase, doc PurchaseDocument) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		RequestID: middleware.GetReqID(ctx),
		Action:    "PURCHASE_CREATE",
		Entity:    "purchase",
		EntityID:  created.ID,
		Meta: map[string]any{
			"supplier":    doc.Supplier,
			"bill_number": doc.BillNumber,
			"items":       len(doc.Items),
			"subtotal":    created.Totals.Subtotal,
			"total_gst":   created.Totals.TotalGST,
			"grand_total": created.Totals.GrandTotal,
		},
	})
	if err != nil {
		s.logger.Warn("record purchase audit", slog.Any("error", err), slog.String("purchase_id", created.ID))
	}
}

func outcomeForBackendError(err error) string {
	if backend.IsClientError(err) {
		return OutcomeRejected
	}
	return OutcomeFailed
}

func payloadKey(payload CreatePayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("purchases: encode payload: %w", err)
	}
	return uuid.NewSHA1(uuid.Nil, raw).String(), nil
}
