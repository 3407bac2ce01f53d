package purchases_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digibilling/digibilling/internal/backend"
	"github.com/digibilling/digibilling/internal/platform/httpx"
	"github.com/digibilling/digibilling/internal/purchases"
	"github.com/digibilling/digibilling/internal/shared"
	_ "github.com/digibilling/digibilling/testing"
)

type fakeBackend struct {
	mu          sync.Mutex
	created     []map[string]any
	tokens      []string
	createCode  int
	createBody  string
	suppliersUp bool
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/suppliers":
		if !f.suppliersUp {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"maintenance"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"_id":"s-1","name":"Acme Pharma","gstin":"27AAAAA0000A1Z5"}]`))
	case r.Method == http.MethodGet && r.URL.Path == "/products":
		_, _ = w.Write([]byte(`[{"_id":"p-1","name":"Paracetamol 500","genericName":"Paracetamol"}]`))
	case r.Method == http.MethodPost && r.URL.Path == "/purchases":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		if f.createCode != 0 {
			w.WriteHeader(f.createCode)
			_, _ = w.Write([]byte(f.createBody))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"pur-42"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestRouter(t *testing.T, fb *fakeBackend) http.Handler {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	adapter := purchases.NewBackendAdapter(backend.NewClient(srv.URL, 0))
	svc := purchases.NewService(adapter, adapter, nil, nil, nil, nil, nil)
	handler := purchases.NewHandler(nil, svc)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
			next.ServeHTTP(w, req.WithContext(backend.WithToken(req.Context(), token)))
		})
	})
	r.Route("/purchases", handler.MountRoutes)
	return r
}

const validBody = `{
	"supplier": "s-1",
	"billNumber": "INV-7",
	"billDate": "2026-03-01",
	"purchaseDate": "2026-03-01",
	"items": [
		{"product":"p-1","batchNo":"B1","expiryDate":"2027-01-31","quantity":10,"purchasePrice":50,"gstRate":12},
		{"product":"p-1","batchNo":"B2","expiryDate":"2027-06-30","quantity":"5","purchasePrice":"20","discount":"10","gstRate":5}
	],
	"freightCharges": 20,
	"discount": 5
}`

func TestHandlerNewReturnsListsAndDraft(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{suppliersUp: true})

	req := httptest.NewRequest(http.MethodGet, "/purchases/new", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Suppliers []purchases.Supplier       `json:"suppliers"`
		Products  []purchases.Product        `json:"products"`
		Draft     purchases.PurchaseDocument `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Suppliers, 1)
	assert.Equal(t, "Acme Pharma", body.Suppliers[0].Name)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Paracetamol", body.Products[0].GenericName)
	assert.Equal(t, purchases.PaymentUnpaid, body.Draft.PaymentStatus)
	assert.Equal(t, purchases.PaymentModeCredit, body.Draft.PaymentMode)
	assert.NotEmpty(t, body.Draft.BillDate)
}

func TestHandlerNewFailsWhenAnyListFails(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{suppliersUp: false})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases/new", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "maintenance", problem.Detail)
}

func TestHandlerNewBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(&fakeBackend{suppliersUp: true})
	srv.Close()
	adapter := purchases.NewBackendAdapter(backend.NewClient(srv.URL, 0))
	svc := purchases.NewService(adapter, adapter, nil, nil, nil, nil, nil)
	r := chi.NewRouter()
	r.Route("/purchases", purchases.NewHandler(nil, svc).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases/new", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Failed to load suppliers or products", problem.Detail)
}

func TestHandlerQuote(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{suppliersUp: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/quote", strings.NewReader(validBody)))

	require.Equal(t, http.StatusOK, rec.Code)
	var quote purchases.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, purchases.Totals{Subtotal: 590, TotalGST: 64.5, GrandTotal: 669.5}, quote.Totals)
	assert.Equal(t, []string{"560.00", "94.50"}, quote.Summary.ItemTotals)
	assert.Empty(t, quote.Issues)
}

func TestHandlerCreateSendsTotalsAndToken(t *testing.T) {
	fb := &fakeBackend{suppliersUp: true}
	router := newTestRouter(t, fb)

	req := httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(validBody))
	req.Header.Set("Authorization", "Bearer tok-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created purchases.CreatedPurchase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "pur-42", created.ID)
	assert.Equal(t, 669.5, created.Totals.GrandTotal)

	require.Len(t, fb.created, 1)
	sent := fb.created[0]
	assert.Equal(t, 590.0, sent["subtotal"])
	assert.Equal(t, 64.5, sent["totalGST"])
	assert.Equal(t, 669.5, sent["grandTotal"])
	assert.Equal(t, "s-1", sent["supplier"])
	assert.Equal(t, []string{"Bearer tok-123"}, fb.tokens)
}

func TestHandlerCreateValidationFailure(t *testing.T) {
	fb := &fakeBackend{suppliersUp: true}
	router := newTestRouter(t, fb)

	body := strings.Replace(validBody, `"batchNo":"B2",`, "", 1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Please enter batch number for item 2", problem.Detail)
	assert.Equal(t, map[string]string{"items[1].batchNo": "Please enter batch number for item 2"}, problem.Errors)
	assert.Empty(t, fb.created)
}

func TestHandlerCreateRequiresBillHeader(t *testing.T) {
	fb := &fakeBackend{suppliersUp: true}
	router := newTestRouter(t, fb)

	body := strings.Replace(validBody, `"billNumber": "INV-7",`, `"billNumber": "",`, 1)
	body = strings.Replace(body, `"billDate": "2026-03-01",`, "", 1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, map[string]string{"billNumber": "Please enter bill number"}, problem.Errors)
	assert.Empty(t, fb.created)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/quote", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var quote purchases.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	require.Len(t, quote.Issues, 2)
	assert.Equal(t, "billNumber", quote.Issues[0].Field)
	assert.Equal(t, "billDate", quote.Issues[1].Field)
}

func TestHandlerRejectsOverflowingAmounts(t *testing.T) {
	fb := &fakeBackend{suppliersUp: true}
	router := newTestRouter(t, fb)

	body := strings.Replace(validBody, `"quantity":10,"purchasePrice":50`, `"quantity":1e200,"purchasePrice":1e200`, 1)
	for _, path := range []string{"/purchases/quote", "/purchases/"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))

		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		var problem httpx.ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem), path)
		assert.Equal(t, map[string]string{"items[0]": "amounts are too large to compute a total"}, problem.Errors, path)
	}
	assert.Empty(t, fb.created)
}

func TestHandlerCreateRejectsMalformedFields(t *testing.T) {
	fb := &fakeBackend{suppliersUp: true}
	router := newTestRouter(t, fb)

	body := strings.Replace(validBody, `"gstRate":12`, `"gstRate":15`, 1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Errors, "items[0].gstRate")
	assert.Empty(t, fb.created)
}

func TestHandlerCreateSurfacesBackendMessage(t *testing.T) {
	fb := &fakeBackend{
		suppliersUp: true,
		createCode:  http.StatusUnprocessableEntity,
		createBody:  `{"message":"Bill INV-7 already recorded for this supplier"}`,
	}
	router := newTestRouter(t, fb)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(validBody)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Bill INV-7 already recorded for this supplier", problem.Detail)
}

func TestHandlerCreateBackendOutage(t *testing.T) {
	fb := &fakeBackend{suppliersUp: true, createCode: http.StatusInternalServerError, createBody: `{"error":"database unavailable"}`}
	router := newTestRouter(t, fb)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(validBody)))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "database unavailable", problem.Detail)
}

type keySet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (k *keySet) CheckAndInsert(_ context.Context, key, _ string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	k.seen[key] = true
	return nil
}

func (k *keySet) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.seen, key)
	return nil
}

func TestHandlerCreateDuplicate(t *testing.T) {
	fb := &fakeBackend{suppliersUp: true}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	adapter := purchases.NewBackendAdapter(backend.NewClient(srv.URL, 0))
	idem := &keySet{seen: map[string]bool{}}
	svc := purchases.NewService(adapter, adapter, idem, nil, nil, nil, nil)
	r := chi.NewRouter()
	r.Route("/purchases", purchases.NewHandler(nil, svc).MountRoutes)

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(validBody))
		req.Header.Set(purchases.IdempotencyHeader, "client-key-1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "attempt %d", i+1)
	}
	assert.Len(t, fb.created, 1)
}

func TestHandlerCreateBodyTooLarge(t *testing.T) {
	router := newTestRouter(t, &fakeBackend{suppliersUp: true})

	body := `{"notes":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
