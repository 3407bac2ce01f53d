package purchases

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digibilling/digibilling/internal/backend"
	"github.com/digibilling/digibilling/internal/platform/httpx"
)

// maxDocumentBytes bounds a submitted document body.
const maxDocumentBytes = 1 << 20

// IdempotencyHeader lets a client name its submission explicitly.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes purchase entry over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/new", h.handleNew)
	r.Post("/quote", h.handleQuote)
	r.Post("/", h.handleCreate)
}

type newPurchaseResponse struct {
	Suppliers []Supplier       `json:"suppliers"`
	Products  []Product        `json:"products"`
	Draft     PurchaseDocument `json:"draft"`
}

func (h *Handler) handleNew(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.LoadReferenceData(r.Context())
	if err != nil {
		h.logger.Error("load purchase reference data", slog.Any("error", err))
		detail := "Failed to load suppliers or products"
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			detail = apiErr.Message
		}
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", detail)
		return
	}
	httpx.JSON(w, http.StatusOK, newPurchaseResponse{
		Suppliers: nonNil(data.Suppliers),
		Products:  nonNil(data.Products),
		Draft:     h.service.NewDraft(),
	})
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.decode(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.Quote(doc))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Submit(r.Context(), doc, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (PurchaseDocument, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	doc, err := DecodeDocument(r.Body)
	if err == nil {
		return doc, true
	}
	var inputErr *InputError
	if errors.As(err, &inputErr) {
		httpx.ValidationProblem(w, "Some fields are invalid", inputErr.Fields)
		return PurchaseDocument{}, false
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Purchase document is too large")
		return PurchaseDocument{}, false
	}
	httpx.RespondError(w, err)
	return PurchaseDocument{}, false
}

func (h *Handler) respondSubmitError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		fields := make(map[string]string, len(validationErr.Failures))
		for _, f := range validationErr.Failures {
			fields[f.Key()] = f.Message
		}
		httpx.ValidationProblem(w, validationErr.Error(), fields)
		return
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && backend.IsClientError(err) {
		httpx.Problem(w, apiErr.Status, http.StatusText(apiErr.Status), apiErr.Message)
		return
	}
	if apiErr != nil {
		h.logger.Error("create purchase", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", apiErr.Message)
		return
	}
	if errors.Is(err, ErrDuplicateSubmission) {
		httpx.Problem(w, http.StatusConflict, "Conflict", "This purchase has already been submitted")
		return
	}
	h.logger.Error("create purchase", slog.Any("error", err))
	httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "Failed to create purchase")
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
