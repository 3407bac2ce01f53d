package purchases

import (
	"context"
	"fmt"

	"github.com/digibilling/digibilling/internal/backend"
)

// BackendAdapter adapts backend.Client to the ReferenceSource and
// PurchaseCreator ports used by Service.
type BackendAdapter struct {
	client *backend.Client
}

// NewBackendAdapter creates a new backend adapter.
func NewBackendAdapter(client *backend.Client) *BackendAdapter {
	return &BackendAdapter{client: client}
}

// Suppliers lists suppliers from the backend.
func (a *BackendAdapter) Suppliers(ctx context.Context) ([]Supplier, error) {
	if a.client == nil {
		return nil, fmt.Errorf("backend client not initialized")
	}
	rows, err := a.client.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	out := make([]Supplier, 0, len(rows))
	for _, row := range rows {
		out = append(out, Supplier{ID: row.ID, Name: row.Name, GSTIN: row.GSTIN})
	}
	return out, nil
}

// Products lists products from the backend.
func (a *BackendAdapter) Products(ctx context.Context) ([]Product, error) {
	if a.client == nil {
		return nil, fmt.Errorf("backend client not initialized")
	}
	rows, err := a.client.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, Product{ID: row.ID, Name: row.Name, GenericName: row.GenericName})
	}
	return out, nil
}

// CreatePurchase posts the payload and returns the backend's id for it.
func (a *BackendAdapter) CreatePurchase(ctx context.Context, payload CreatePayload) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("backend client not initialized")
	}
	created, err := a.client.CreatePurchase(ctx, payload)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
