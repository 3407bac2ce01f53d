package backend

import (
	"context"
	"net/http"
)

// Supplier as listed by GET /suppliers.
type Supplier struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	GSTIN string `json:"gstin"`
}

// Product as listed by GET /products.
type Product struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	GenericName string `json:"genericName"`
}

// Created is the part of a create response the caller relies on.
type Created struct {
	ID string `json:"_id"`
}

// ListSuppliers fetches every supplier.
func (c *Client) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	if err := c.do(ctx, http.MethodGet, "/suppliers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts fetches every product.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePurchase posts a purchase document. The backend persists it atomically.
func (c *Client) CreatePurchase(ctx context.Context, payload any) (Created, error) {
	var out Created
	if err := c.do(ctx, http.MethodPost, "/purchases", payload, &out); err != nil {
		return Created{}, err
	}
	return out, nil
}
