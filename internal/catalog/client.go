// Package catalog reads products from the catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/AmolSonawane1026/order-service/internal/domain"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultConcurrency = 8
)

// NotFoundError reports a product id the catalog does not know.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: product %s not found", e.ProductID)
}

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client fetches products over the catalog REST API.
type Client struct {
	base        *url.URL
	client      HTTPClient
	concurrency int
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithConcurrency caps parallel product requests in GetProducts.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("catalog: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("catalog: parse base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		base: parsed,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type productEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Product productPayload `json:"product"`
	} `json:"data"`
}

type productPayload struct {
	ID            string   `json:"_id"`
	SellerID      string   `json:"sellerId"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice"`
	IsActive      bool     `json:"isActive"`
	Inventory     struct {
		Quantity int `json:"quantity"`
	} `json:"inventory"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// GetProduct fetches one product. A 404 yields *NotFoundError.
func (c *Client) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	endpoint := c.base.JoinPath("api", "products", productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domain.Product{}, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Product{}, fmt.Errorf("catalog: get product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Product{}, &NotFoundError{ProductID: productID}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Product{}, fmt.Errorf("catalog: get product %s: status %d: %s", productID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload productEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Product{}, fmt.Errorf("catalog: decode product %s: %w", productID, err)
	}
	if !payload.Success || payload.Data.Product.ID == "" {
		return domain.Product{}, &NotFoundError{ProductID: productID}
	}
	return payload.Data.Product.toDomain(), nil
}

// GetProducts fetches each distinct id concurrently. The first failure cancels
// the remaining requests and is returned.
func (c *Client) GetProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	ids := distinct(productIDs)
	results := make([]domain.Product, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			product, err := c.GetProduct(gctx, id)
			if err != nil {
				return err
			}
			results[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Product, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out, nil
}

func (p productPayload) toDomain() domain.Product {
	product := domain.Product{
		ID:       p.ID,
		SellerID: p.SellerID,
		Name:     p.Name,
		Price:    int64(math.Round(p.Price)),
		IsActive: p.IsActive,
		Stock:    p.Inventory.Quantity,
	}
	if p.DiscountPrice != nil {
		discount := int64(math.Round(*p.DiscountPrice))
		product.DiscountPrice = &discount
	}
	if len(p.Images) > 0 {
		product.ImageURL = p.Images[0].URL
	}
	return product
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
