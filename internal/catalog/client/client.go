// Package client talks to the page API: one REST collection per catalog page.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abgdnv/productmanager/internal/catalog"
	"github.com/abgdnv/productmanager/pkg/client/transport"
	"github.com/abgdnv/productmanager/pkg/config"
	"github.com/abgdnv/productmanager/pkg/web"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnexpectedStatus is wrapped by every StatusError.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// PageClient performs the four page API operations.
type PageClient interface {
	List(ctx context.Context, page catalog.Page) ([]catalog.Product, error)
	Create(ctx context.Context, page catalog.Page, in catalog.ProductInput) (*catalog.Product, error)
	Update(ctx context.Context, page catalog.Page, id int64, in catalog.ProductInput) (*catalog.Product, error)
	Delete(ctx context.Context, page catalog.Page, id int64) error
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Is makes a 404 match catalog.ErrProductNotFound and every status match ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnexpectedStatus:
		return true
	case catalog.ErrProductNotFound:
		return e.Code == http.StatusNotFound
	default:
		return false
	}
}

// HTTPClient is the PageClient backed by net/http.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

var _ PageClient = (*HTTPClient)(nil)

// New creates an HTTPClient for the API rooted at apiCfg.BaseURL.
// Requests are traced and go through a circuit breaker configured by cbCfg.
func New(apiCfg config.APIConfig, cbCfg config.CircuitBreakerConfig, logger *slog.Logger) *HTTPClient {
	logger = logger.With("component", "page_client")
	rt := otelhttp.NewTransport(transport.NewCircuitBreaker("page-api-cb", cbCfg, http.DefaultTransport, logger))
	return NewWithHTTPClient(apiCfg, &http.Client{Transport: rt}, logger)
}

// NewWithHTTPClient creates an HTTPClient that sends requests through hc.
func NewWithHTTPClient(apiCfg config.APIConfig, hc *http.Client, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(apiCfg.BaseURL, "/"),
		timeout: apiCfg.Timeout,
		http:    hc,
		logger:  logger,
	}
}

// List fetches the whole collection of page.
func (c *HTTPClient) List(ctx context.Context, page catalog.Page) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := c.do(ctx, http.MethodGet, c.collectionURL(page), nil, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []catalog.Product{}
	}
	return products, nil
}

// Create adds a product to page and returns the stored record with its assigned id.
func (c *HTTPClient) Create(ctx context.Context, page catalog.Page, in catalog.ProductInput) (*catalog.Product, error) {
	var product catalog.Product
	if err := c.do(ctx, http.MethodPost, c.collectionURL(page), in, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Update replaces the product id of page.
func (c *HTTPClient) Update(ctx context.Context, page catalog.Page, id int64, in catalog.ProductInput) (*catalog.Product, error) {
	var product catalog.Product
	if err := c.do(ctx, http.MethodPut, c.itemURL(page, id), in, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Delete removes the product id of page. The response body is ignored.
func (c *HTTPClient) Delete(ctx context.Context, page catalog.Page, id int64) error {
	return c.do(ctx, http.MethodDelete, c.itemURL(page, id), nil, nil)
}

func (c *HTTPClient) collectionURL(page catalog.Page) string {
	return c.baseURL + "/" + page.Resource()
}

func (c *HTTPClient) itemURL(page catalog.Page, id int64) string {
	return c.collectionURL(page) + "/" + url.PathEscape(strconv.FormatInt(id, 10))
}

// do sends one request and decodes a 2xx JSON body into out when out is not nil.
func (c *HTTPClient) do(ctx context.Context, method, target string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// the request id of the UI request that issued the call, if any, follows it to the page API
	reqID, ok := web.GetRequestID(ctx)
	if !ok {
		reqID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Page API request failed", "method", method, "url", target, "request_id", reqID, "error", err)
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "Page API request completed",
		"method", method,
		"url", target,
		"request_id", reqID,
		"status", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, URL: target, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, target, err)
	}
	return nil
}
