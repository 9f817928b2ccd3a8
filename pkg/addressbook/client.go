// Package addressbook talks to the customer address-book service. Only
// authenticated sessions use it; guest checkouts embed raw addresses in the
// order payload instead.
package addressbook

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

const responseBodyReadLimit int64 = 1024

// SavedAddress is one address-book record.
type SavedAddress struct {
	ID      uuid.UUID     `json:"id"`
	Address types.Address `json:"address"`
	Default bool          `json:"default"`
}

// Store is the surface the checkout consumes.
type Store interface {
	Create(ctx context.Context, customerID uuid.UUID, address types.Address) (uuid.UUID, error)
	List(ctx context.Context, customerID uuid.UUID) ([]SavedAddress, error)
}

// Client calls the address-book service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds the address-book client.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("address book base url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Create stores a new address for the customer and returns its identifier.
func (c *Client) Create(ctx context.Context, customerID uuid.UUID, address types.Address) (uuid.UUID, error) {
	if c == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeDependency, "address book client not configured")
	}
	if customerID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !address.Complete() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
			WithDetails(map[string]any{"missing": address.MissingFields()})
	}

	payload, err := json.Marshal(address)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal address")
	}

	url := fmt.Sprintf("%s/v1/customers/%s/addresses", c.baseURL, customerID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build create address request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute create address request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "create address failed")
	}

	var apiResp struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode create address response")
	}
	if apiResp.ID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeDependency, "create address returned no id")
	}
	return apiResp.ID, nil
}

// List returns the customer's saved addresses.
func (c *Client) List(ctx context.Context, customerID uuid.UUID) ([]SavedAddress, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address book client not configured")
	}
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	url := fmt.Sprintf("%s/v1/customers/%s/addresses", c.baseURL, customerID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build list addresses request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute list addresses request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "list addresses failed")
	}

	var apiResp struct {
		Addresses []SavedAddress `json:"addresses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode list addresses response")
	}
	return apiResp.Addresses, nil
}
