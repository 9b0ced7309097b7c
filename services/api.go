package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campus-delivery/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrOrderFailed marks every failure of CreateOrder.
var ErrOrderFailed = errors.New("failed to place order")

// APIError is a non-2xx answer from the catalog API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Catalog is the read side of the API used by the views.
type Catalog interface {
	ListCafeterias(ctx context.Context) ([]models.Cafeteria, error)
	ListMenuItems(ctx context.Context, cafeteriaID int64) ([]models.MenuItem, error)
}

// OrderCreator is the write side of the API.
type OrderCreator interface {
	CreateOrder(ctx context.Context, draft models.OrderDraft) error
}

// APIClient talks to the campus delivery REST API. It never retries.
type APIClient struct {
	baseURL *url.URL
	http    *http.Client
}

// NewAPIClient parses baseURL; timeout 0 leaves requests bounded only by ctx.
func NewAPIClient(baseURL string, timeout time.Duration) (*APIClient, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}
	return &APIClient{baseURL: u, http: &http.Client{Timeout: timeout}}, nil
}

func (c *APIClient) ListCafeterias(ctx context.Context) ([]models.Cafeteria, error) {
	var out []models.Cafeteria
	if err := c.getJSON(ctx, "list cafeterias", "api/cafeterias/", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Cafeteria{}
	}
	for i := range out {
		out[i].Image = c.imageURL(out[i].Image)
	}
	return out, nil
}

// ListMenuItems fetches the cafeteria detail and returns its menu.
func (c *APIClient) ListMenuItems(ctx context.Context, cafeteriaID int64) ([]models.MenuItem, error) {
	var detail models.CafeteriaDetail
	path := "api/cafeterias/" + strconv.FormatInt(cafeteriaID, 10) + "/"
	if err := c.getJSON(ctx, "list menu items", path, &detail); err != nil {
		return nil, err
	}
	if detail.MenuItems == nil {
		return []models.MenuItem{}, nil
	}
	for i := range detail.MenuItems {
		detail.MenuItems[i].Image = c.imageURL(detail.MenuItems[i].Image)
	}
	return detail.MenuItems, nil
}

// CreateOrder posts draft. Only a 2xx status is success; every error
// satisfies errors.Is(err, ErrOrderFailed).
func (c *APIClient) CreateOrder(ctx context.Context, draft models.OrderDraft) error {
	body, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("%w: marshal order: %v", ErrOrderFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("api/orders/"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderFailed, err)
	}
	requestID := requestIDFrom(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("create order: transport error")
		return fmt.Errorf("%w: %w", ErrOrderFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: "create order", StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
		log.Error().Err(apiErr).Str("request_id", requestID).Msg("create order rejected")
		return fmt.Errorf("%w: %w", ErrOrderFailed, apiErr)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	log.Info().Str("request_id", requestID).Int("items", len(draft.OrderItems)).Msg("order created")
	return nil
}

type requestIDKey struct{}

// WithRequestID makes orders created with ctx carry id as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func (c *APIClient) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *APIClient) resolve(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// imageURL makes media paths such as "/media/rice.jpg" absolute against the
// API host. Unparseable values are dropped.
func (c *APIClient) imageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return c.baseURL.ResolveReference(u).String()
}

// readSnippet keeps error bodies short enough for logs.
func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
