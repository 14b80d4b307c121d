// Package catalog provides the product sources the storefront reads from.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the public REST catalog.
const DefaultBaseURL = "https://api.escuelajs.co/api/v1/"

// FetchError is the rejected result of a catalog request.
type FetchError struct {
	Op         string
	StatusCode int // zero for transport failures
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client reads products from the REST catalog.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient creates a catalog client for baseURL with a request timeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url %q: %w", baseURL, err)
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

var _ repository.ProductCatalog = (*Client)(nil)

func (c *Client) ListProducts(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	if err := c.get(ctx, "list products", "products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int) (entity.Product, error) {
	var p entity.Product
	err := c.get(ctx, "get product", "products/"+strconv.Itoa(id), &p)
	var fe *FetchError
	// the catalog answers unknown ids with 400 or 404
	if errors.As(err, &fe) && (fe.StatusCode == http.StatusNotFound || fe.StatusCode == http.StatusBadRequest) {
		return entity.Product{}, fmt.Errorf("%w: %d", repository.ErrProductNotFound, id)
	}
	if err != nil {
		return entity.Product{}, err
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath(path).String(), nil)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{Op: op, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
