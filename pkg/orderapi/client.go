// Package orderapi talks to the order service, the sole order-creation entry
// point. Submission is atomic: there is no partial or resumable variant.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/types"
)

const responseBodyReadLimit int64 = 4096

// GuestContact carries the contact fields for a guest checkout.
type GuestContact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// LockerSpec is one parcel-locker selection inside a shipment.
type LockerSpec struct {
	SlotIndex int    `json:"slot_index"`
	Code      string `json:"code"`
	Address   string `json:"address,omitempty"`
}

// ShipmentSpec is the committed shipping choice for one package.
type ShipmentSpec struct {
	PackageID        string         `json:"package_id"`
	WarehouseID      string         `json:"warehouse_id"`
	MethodID         string         `json:"method_id"`
	Price            string         `json:"price"`
	UseCustomAddress bool           `json:"use_custom_address"`
	CustomAddress    *types.Address `json:"custom_address,omitempty"`
	Lockers          []LockerSpec   `json:"lockers,omitempty"`
}

// OrderPayload is the finalized checkout submission. Exactly one of the
// guest address pair or the address-book identifier pair is populated.
type OrderPayload struct {
	Guest             *GuestContact  `json:"guest,omitempty"`
	CustomerID        *uuid.UUID     `json:"customer_id,omitempty"`
	ShippingAddress   *types.Address `json:"shipping_address,omitempty"`
	BillingAddress    *types.Address `json:"billing_address,omitempty"`
	ShippingAddressID *uuid.UUID     `json:"shipping_address_id,omitempty"`
	BillingAddressID  *uuid.UUID     `json:"billing_address_id,omitempty"`
	ItemIDs           []uuid.UUID    `json:"item_ids"`
	Shipments         []ShipmentSpec `json:"shipments"`
	// LockerCollectHours is how long locker parcels wait for pickup. Set
	// only when at least one shipment is locker-based.
	LockerCollectHours int    `json:"locker_collect_hours,omitempty"`
	PaymentMethod      string `json:"payment_method"`
	CouponCode         string `json:"coupon_code,omitempty"`
	AcceptTerms        bool   `json:"accept_terms"`
	AcceptNewsletter   bool   `json:"accept_newsletter"`
	InvoiceRequested   bool   `json:"invoice_requested"`
}

// SubmitResult is the order service's answer to a submission.
type SubmitResult struct {
	OrderID    uuid.UUID `json:"order_id"`
	PaymentURL string    `json:"payment_url,omitempty"`
}

// Submitter is the surface the checkout consumes.
type Submitter interface {
	Submit(ctx context.Context, payload OrderPayload) (*SubmitResult, error)
}

// Client calls the order service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds the order service client.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("orders base url is required")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Submit sends the finalized payload. Rejections come back as
// SUBMISSION_ERROR with the order service's message verbatim plus any
// field-level details it returned.
func (c *Client) Submit(ctx context.Context, payload OrderPayload) (*SubmitResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order client not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal order payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build submit request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute submit request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var result SubmitResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode submit response")
		}
		if result.OrderID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service returned no order id")
		}
		return &result, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	var rejection struct {
		Error struct {
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &rejection); err == nil && rejection.Error.Message != "" {
		submitErr := pkgerrors.New(pkgerrors.CodeSubmission, rejection.Error.Message)
		if len(rejection.Error.Details) > 0 {
			submitErr = submitErr.WithDetails(rejection.Error.Details)
		}
		return nil, submitErr
	}

	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "order submission failed")
}
