// Package coupons talks to the discount-code service. Apply and remove are
// idempotent; removing a coupon that was never applied is a no-op.
package coupons

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// AppliedCoupon reports the discount granted for a code.
type AppliedCoupon struct {
	CouponCode string
	Discount   decimal.Decimal
}

// Service is the surface the checkout consumes.
type Service interface {
	Apply(ctx context.Context, sessionID, code string) (*AppliedCoupon, error)
	Remove(ctx context.Context, sessionID string) error
}

// Client calls the coupon service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds the coupon client.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("coupons base url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Apply validates the code against the session's cart and returns the discount.
func (c *Client) Apply(ctx context.Context, sessionID, code string) (*AppliedCoupon, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coupon client not configured")
	}
	trimmedCode := strings.TrimSpace(code)
	if trimmedCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	payload, err := json.Marshal(map[string]string{"session_id": sessionID, "code": trimmedCode})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal coupon request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/coupons/apply", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build apply coupon request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute apply coupon request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		reason := strings.TrimSpace(string(msg))
		if reason == "" {
			reason = "coupon code rejected"
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, reason)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "apply coupon failed")
	}

	var apiResp struct {
		CouponCode string `json:"coupon_code"`
		Discount   string `json:"discount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode apply coupon response")
	}
	discount, err := decimal.NewFromString(apiResp.Discount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected discount in coupon response")
	}
	return &AppliedCoupon{CouponCode: apiResp.CouponCode, Discount: discount}, nil
}

// Remove drops the coupon from the session's cart. A 404 means nothing was
// applied, which is not an error.
func (c *Client) Remove(ctx context.Context, sessionID string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "coupon client not configured")
	}

	payload, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal coupon request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/coupons/remove", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build remove coupon request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute remove coupon request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "remove coupon failed")
}
