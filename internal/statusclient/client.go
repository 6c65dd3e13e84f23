// Package statusclient fetches a single order from the public order API.
package statusclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kleen-pos/api/internal/orderstatus"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when the API answers 404.
	ErrNotFound = errors.New("order not found")
	// ErrTransient wraps network failures, non-404 error statuses and
	// undecodable bodies. Callers may retry; the client never does.
	ErrTransient = errors.New("order service unavailable")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// FetchOrder issues GET {base}/api/orders/{orderId}.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*orderstatus.Order, error) {
	c.logger.WithField("order_id", orderID).Debug("Fetching order")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.WithField("order_id", orderID).Info("Order not found")
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	}

	var order orderstatus.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrTransient, err)
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"is_paid":  order.IsPaid,
	}).Debug("Retrieved order")
	return &order, nil
}
