// Package inventoryhttp talks to the external inventory service over its
// REST API. Transient failures surface as AvailabilityUnknownError so the
// availability checker can degrade to an unknown snapshot instead of
// failing the whole evaluation.
package inventoryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// Client is the HTTP inventory gateway.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient creates an inventory client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = timeout

	return &Client{baseURL: baseURL, http: retryClient}
}

// Verify interface compliance
var _ repositories.InventoryGateway = (*Client)(nil)

type stockResponse struct {
	Part      string `json:"part"`
	OnHand    string `json:"on_hand"`
	Reserved  string `json:"reserved"`
	InTransit string `json:"in_transit"`
}

type reservationRequest struct {
	ID       string `json:"id"`
	KitID    string `json:"kit_id"`
	Part     string `json:"part"`
	Quantity string `json:"quantity"`
}

// GetStock reads stock levels for a part. Network errors and 5xx responses
// are reported as AvailabilityUnknownError; a 4xx is a definite failure.
func (c *Client) GetStock(ctx context.Context, part entities.PartNumber) (*entities.StockLevels, error) {
	endpoint := fmt.Sprintf("%s/api/v1/stock/%s", c.baseURL, url.PathEscape(string(part)))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stock request for %s: %w", part, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &entities.AvailabilityUnknownError{Part: part, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode >= 500:
		return nil, &entities.AvailabilityUnknownError{
			Part:  part,
			Cause: fmt.Errorf("inventory service returned %d", resp.StatusCode),
		}
	default:
		return nil, fmt.Errorf("inventory service rejected stock read for %s: status %d", part, resp.StatusCode)
	}

	var body stockResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &entities.AvailabilityUnknownError{
			Part:  part,
			Cause: fmt.Errorf("failed to decode stock response: %w", err),
		}
	}

	levels := &entities.StockLevels{Part: part}
	if levels.OnHand, err = entities.QtyFromString(body.OnHand); err != nil {
		return nil, fmt.Errorf("invalid on-hand quantity %q for %s: %w", body.OnHand, part, err)
	}
	if levels.Reserved, err = entities.QtyFromString(body.Reserved); err != nil {
		return nil, fmt.Errorf("invalid reserved quantity %q for %s: %w", body.Reserved, part, err)
	}
	if levels.InTransit, err = entities.QtyFromString(body.InTransit); err != nil {
		return nil, fmt.Errorf("invalid in-transit quantity %q for %s: %w", body.InTransit, part, err)
	}
	return levels, nil
}

// CreateReservation registers an inventory hold with the service.
func (c *Client) CreateReservation(ctx context.Context, r *entities.Reservation) error {
	payload, err := json.Marshal(reservationRequest{
		ID:       r.ID,
		KitID:    r.KitID,
		Part:     string(r.Part),
		Quantity: r.Quantity.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode reservation %s: %w", r.ID, err)
	}

	endpoint := c.baseURL + "/api/v1/reservations"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build reservation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create reservation %s: %w", r.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// The service found less stock than our snapshot did; the caller
		// re-reads availability and retries.
		return &entities.ConflictError{Resource: "inventory", ID: string(r.Part)}
	default:
		return fmt.Errorf("inventory service rejected reservation %s: status %d", r.ID, resp.StatusCode)
	}
}

// ReleaseReservation closes a hold; consumed converts it into actual
// consumption instead of returning quantity to the pool.
func (c *Client) ReleaseReservation(ctx context.Context, reservationID string, consumed bool) error {
	endpoint := fmt.Sprintf("%s/api/v1/reservations/%s?consumed=%t",
		c.baseURL, url.PathEscape(reservationID), consumed)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build release request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to release reservation %s: %w", reservationID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("inventory service rejected release of %s: status %d", reservationID, resp.StatusCode)
	}
	return nil
}
