package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pickpoint/internal/models"

	"github.com/rs/zerolog"
)

// Client is a thin wrapper over the reservation API. Each call is a
// single round trip; it never retries on its own, the caller decides
// whether to re-fetch after a failure.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, logger *zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: models.DefaultHTTPTimeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError mirrors the server's error envelope. Message is shown to the
// user verbatim.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (c *Client) GetLockers(ctx context.Context) ([]models.Locker, error) {
	var lockers []models.Locker
	if err := c.do(ctx, http.MethodGet, "/lockers", nil, &lockers); err != nil {
		return nil, err
	}
	return lockers, nil
}

func (c *Client) GetLocker(ctx context.Context, id int64) (*models.Locker, error) {
	var locker models.Locker
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/lockers/%d", id), nil, &locker); err != nil {
		return nil, err
	}
	return &locker, nil
}

func (c *Client) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) BuyerOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	return c.orderList(ctx, "/orders", userID)
}

func (c *Client) SellerOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	return c.orderList(ctx, "/orders/seller", userID)
}

func (c *Client) orderList(ctx context.Context, path string, userID int64) ([]*models.Order, error) {
	if userID != 0 {
		path += "?user_id=" + strconv.FormatInt(userID, 10)
	}
	var orders []*models.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Pay(ctx context.Context, id int64) (*models.Order, error) {
	return c.trigger(ctx, id, "pay", nil)
}

func (c *Client) Schedule(ctx context.Context, id int64, pickupTime time.Time) (*models.Order, error) {
	body := map[string]any{"pickup_time": pickupTime.Format(time.RFC3339)}
	return c.trigger(ctx, id, "schedule", body)
}

func (c *Client) ConfirmRiderPickup(ctx context.Context, id int64) (*models.Order, error) {
	return c.trigger(ctx, id, "confirm-pickup", nil)
}

func (c *Client) ConfirmDelivery(ctx context.Context, id int64) (*models.Order, error) {
	return c.trigger(ctx, id, "confirm-delivery", nil)
}

func (c *Client) VerifyPin(ctx context.Context, id int64, pin string) (*models.VerifyPinResult, error) {
	var result models.VerifyPinResult
	path := fmt.Sprintf("/orders/%d/verify-pin", id)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"pin": pin}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Cancel(ctx context.Context, id int64, reason string) (*models.Order, error) {
	return c.trigger(ctx, id, "cancel", map[string]string{"reason": reason})
}

func (c *Client) trigger(ctx context.Context, id int64, action string, body any) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/orders/%d/%s", id, action)
	if err := c.do(ctx, http.MethodPost, path, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	// JoinPath escapes the query part, so split it off first.
	path, query, _ := strings.Cut(path, "?")
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("failed to build request URL: %w", err)
	}
	if query != "" {
		u += "?" + query
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else if method == http.MethodPost {
		reqBody = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
