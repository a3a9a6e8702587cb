package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "slotswap/pkg/errors"
	"slotswap/pkg/model"
)

const (
	DefaultIdentityHeader = "X-User-ID"
	defaultHTTPTimeout    = 10 * time.Second
	healthPollInterval    = 500 * time.Millisecond
)

// SlotSwapClient is a typed client for the slot swap HTTP API. Every call is
// made on behalf of UserID.
type SlotSwapClient struct {
	BaseURL        string
	UserID         string
	IdentityHeader string
	HTTPClient     *http.Client
}

func NewSlotSwapClient(baseURL string) *SlotSwapClient {
	return &SlotSwapClient{
		BaseURL:        baseURL,
		IdentityHeader: DefaultIdentityHeader,
		HTTPClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// As returns a copy of the client acting as userID.
func (c *SlotSwapClient) As(userID string) *SlotSwapClient {
	clone := *c
	clone.UserID = userID
	return &clone
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

type envelope[T any] struct {
	Data       T   `json:"data"`
	TotalCount int `json:"total_count"`
}

func (c *SlotSwapClient) CreateSlot(ctx context.Context, input *model.CreateSlotInput) (*model.Slot, error) {
	return call[*model.Slot](ctx, c, http.MethodPost, "/api/v1/slots", input)
}

func (c *SlotSwapClient) ListOwnSlots(ctx context.Context) ([]*model.Slot, error) {
	return call[[]*model.Slot](ctx, c, http.MethodGet, "/api/v1/slots", nil)
}

func (c *SlotSwapClient) SetSlotStatus(ctx context.Context, slotID string, status model.SlotStatus) (*model.Slot, error) {
	return call[*model.Slot](ctx, c, http.MethodPatch, "/api/v1/slots/id/"+url.PathEscape(slotID)+"/status", &model.SlotStatusUpdate{Status: status})
}

func (c *SlotSwapClient) DeleteSlot(ctx context.Context, slotID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/slots/id/"+url.PathEscape(slotID), nil)
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

func (c *SlotSwapClient) ListMarketplace(ctx context.Context) ([]model.MarketplaceSlot, error) {
	return call[[]model.MarketplaceSlot](ctx, c, http.MethodGet, "/api/v1/marketplace", nil)
}

func (c *SlotSwapClient) ProposeSwap(ctx context.Context, input *model.ProposeSwapInput) (*model.SwapRequest, error) {
	return call[*model.SwapRequest](ctx, c, http.MethodPost, "/api/v1/swaps", input)
}

func (c *SlotSwapClient) GetSwap(ctx context.Context, requestID string) (*model.SwapRequest, error) {
	return call[*model.SwapRequest](ctx, c, http.MethodGet, "/api/v1/swaps/id/"+url.PathEscape(requestID), nil)
}

func (c *SlotSwapClient) RespondSwap(ctx context.Context, requestID string, accept bool) (*model.SwapRequest, error) {
	return call[*model.SwapRequest](ctx, c, http.MethodPost, "/api/v1/swaps/id/"+url.PathEscape(requestID)+"/respond", &model.SwapResponse{Accept: &accept})
}

func (c *SlotSwapClient) ListIncoming(ctx context.Context) ([]model.IncomingRequest, error) {
	return call[[]model.IncomingRequest](ctx, c, http.MethodGet, "/api/v1/swaps/incoming", nil)
}

func (c *SlotSwapClient) ListOutgoing(ctx context.Context) ([]model.OutgoingRequest, error) {
	return call[[]model.OutgoingRequest](ctx, c, http.MethodGet, "/api/v1/swaps/outgoing", nil)
}

func call[T any](ctx context.Context, c *SlotSwapClient, method, path string, body any) (T, error) {
	var out envelope[T]

	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return out.Data, err
	}
	if err := checkStatus(resp); err != nil {
		return out.Data, err
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return out.Data, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return out.Data, nil
}

// checkStatus turns non-2xx responses into *apperrors.AppError so callers can
// match on the error code.
func checkStatus(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp apperrors.ErrorResponse
	if err := resp.DecodeJSON(&errResp); err != nil || errResp.Code == "" {
		return apperrors.New(apperrors.CodeInternal, fmt.Sprintf("unexpected status %d", resp.StatusCode), resp.StatusCode)
	}

	appErr := apperrors.New(errResp.Code, errResp.Message, resp.StatusCode)
	appErr.Details = errResp.Details
	return appErr
}

func (c *SlotSwapClient) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserID != "" {
		req.Header.Set(c.IdentityHeader, c.UserID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

// WaitForHealthy polls /health until it answers 200 or maxWait elapses.
func (c *SlotSwapClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		resp, err := c.do(ctx, http.MethodGet, "/health", nil)
		if err == nil && resp.StatusCode == http.StatusOK {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %v", maxWait)
		case <-ticker.C:
		}
	}
}
