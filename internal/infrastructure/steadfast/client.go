// Package steadfast implements the courier integration against the
// Steadfast bulk-courier HTTP API. The client is a thin external-call
// wrapper: one attempt per call, every failure classified into one of the
// domain courier errors so the orchestrator can decide about retries.
package steadfast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pixelandcode07/guptodhan-sub002/internal/domain"
)

type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type createOrderRequest struct {
	Invoice          string `json:"invoice"`
	RecipientName    string `json:"recipient_name"`
	RecipientPhone   string `json:"recipient_phone"`
	RecipientAddress string `json:"recipient_address"`
	CODAmount        int64  `json:"cod_amount"`
	Note             string `json:"note,omitempty"`
}

type createOrderResponse struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Consignment *struct {
		ConsignmentID json.Number `json:"consignment_id"`
		TrackingCode  string      `json:"tracking_code"`
		Status        string      `json:"status"`
	} `json:"consignment"`
}

// CreateShipment creates one consignment with the provider. The request's
// Reference travels as the provider "invoice" field, but dedup is not
// assumed: callers must guard against duplicate submissions themselves.
func (c *Client) CreateShipment(ctx context.Context, req domain.ShipmentRequest) (*domain.ShipmentResult, error) {
	payload := createOrderRequest{
		Invoice:          req.Reference,
		RecipientName:    req.RecipientName,
		RecipientPhone:   req.RecipientPhone,
		RecipientAddress: req.RecipientAddress,
		CODAmount:        req.CODAmount,
		Note:             req.Note,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create_order", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build shipment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Api-Key", c.apiKey)
	httpReq.Header.Set("Secret-Key", c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures are retryable by the caller.
		return nil, fmt.Errorf("%w: %v", domain.ErrCourierNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrCourierNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: provider returned status %d", domain.ErrCourierAuth, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: provider returned status %d", domain.ErrCourierNetwork, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrCourierRejected, resp.StatusCode, truncate(respBody, 200))
	}

	var parsed createOrderResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", domain.ErrCourierRejected, err)
	}

	if parsed.Status != http.StatusOK || parsed.Consignment == nil {
		msg := parsed.Message
		if msg == "" {
			msg = "provider reported failure"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrCourierRejected, msg)
	}

	trackingID := parsed.Consignment.TrackingCode
	parcelID := parsed.Consignment.ConsignmentID.String()

	// Both identifiers or it never happened; a half-created consignment is
	// surfaced for manual correction, not persisted.
	if trackingID == "" || parcelID == "" || parcelID == "0" {
		return nil, fmt.Errorf("%w: tracking=%q parcel=%q", domain.ErrPartialShipment, trackingID, parcelID)
	}

	return &domain.ShipmentResult{
		TrackingID: trackingID,
		ParcelID:   parcelID,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// IsRetryable reports whether the caller may safely re-issue the same
// transition request after err.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrCourierNetwork)
}

var _ domain.CourierClient = (*Client)(nil)
