package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"scanlane/internal/config"
	"scanlane/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// Catalog is the external product-catalog collaborator. Only GetByBarcode
// sits on the scan pipeline's hot path; the remaining CRUD operations
// exist to mirror the upstream contract.
type Catalog interface {
	GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	GetByName(ctx context.Context, name string) (*domain.Product, error)
	GetAll(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a Catalog over the configured HTTP API. The bearer
// token is passed through verbatim; this service never mints its own.
func NewClient(cfg config.CatalogConfig) Catalog {
	return &client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *client) GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	var product domain.Product
	err := c.getJSON(ctx, "/products/barcode/"+url.PathEscape(barcode), &product)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *client) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	var product domain.Product
	err := c.getJSON(ctx, "/products/name/"+url.PathEscape(name), &product)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *client) GetAll(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *client) Create(ctx context.Context, product *domain.Product) error {
	return c.sendJSON(ctx, http.MethodPost, "/products", product)
}

func (c *client) Update(ctx context.Context, product *domain.Product) error {
	return c.sendJSON(ctx, http.MethodPut, "/products/"+url.PathEscape(product.ID), product)
}

func (c *client) Delete(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog delete failed: %w", err)
	}
	defer resp.Body.Close()
	return c.checkStatus(resp)
}

func (c *client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return nil
}

func (c *client) sendJSON(ctx context.Context, method, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode catalog request: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()
	return c.checkStatus(resp)
}

func (c *client) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrProductNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
	return nil
}
