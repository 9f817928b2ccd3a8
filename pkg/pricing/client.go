// Package pricing talks to the catalog/pricing service that owns shipping
// prices. The storefront never computes shipping locally: prices depend on
// live weight and volume rules only the pricing service knows.
package pricing

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
	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/pkg/enums"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// QuoteItem is one cart position sent for quoting.
type QuoteItem struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// ShippingOption is one delivery method the pricing service offers a package.
type ShippingOption struct {
	Method            enums.ShippingMethod
	Name              string
	Price             decimal.Decimal
	Available         bool
	Forced            bool
	BlockedReason     string
	EstimatedDelivery string
}

// PackageQuote carries the options and parcel data for one shipping package.
type PackageQuote struct {
	WarehouseID       string
	Kind              enums.PackageKind
	Options           []ShippingOption
	LockerParcelCount int
	LockerEligible    bool
	CarrierOnly       bool
	LockerOnly        bool
}

// QuoteResult is the full pricing response for one cart selection.
// Warnings are free-text advisories rendered verbatim, never parsed.
type QuoteResult struct {
	Packages []PackageQuote
	Warnings []string
}

// Resolver is the surface the checkout consumes.
type Resolver interface {
	ResolveShippingOptions(ctx context.Context, items []QuoteItem) (*QuoteResult, error)
}

// Client calls the pricing service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the pricing client.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("pricing base url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type quoteRequest struct {
	Items []QuoteItem `json:"items"`
}

type optionPayload struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Price             string `json:"price"`
	Available         bool   `json:"available"`
	Forced            bool   `json:"forced"`
	BlockedReason     string `json:"blocked_reason,omitempty"`
	EstimatedDelivery string `json:"estimated_delivery,omitempty"`
}

type packagePayload struct {
	WarehouseID       string          `json:"warehouse_id"`
	Kind              string          `json:"kind"`
	Options           []optionPayload `json:"options"`
	LockerParcelCount int             `json:"locker_parcel_count"`
	LockerEligible    bool            `json:"locker_eligible"`
	CarrierOnly       bool            `json:"carrier_only"`
	LockerOnly        bool            `json:"locker_only"`
}

type quoteResponse struct {
	Packages []packagePayload `json:"packages"`
	Warnings []string         `json:"warnings"`
}

// ResolveShippingOptions quotes shipping for the supplied cart selection.
// Unknown method or kind identifiers in the response are rejected here, at
// the collaborator boundary, so nothing downstream has to handle them.
func (c *Client) ResolveShippingOptions(ctx context.Context, items []QuoteItem) (*QuoteResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing client not configured")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	payload, err := json.Marshal(quoteRequest{Items: items})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal quote request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/shipping/quote", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build quote request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute quote request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "quote request failed")
	}

	var apiResp quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode quote response")
	}

	return mapQuoteResponse(apiResp)
}

func mapQuoteResponse(apiResp quoteResponse) (*QuoteResult, error) {
	result := &QuoteResult{
		Packages: make([]PackageQuote, 0, len(apiResp.Packages)),
		Warnings: apiResp.Warnings,
	}

	for _, pkg := range apiResp.Packages {
		kind, err := enums.ParsePackageKind(pkg.Kind)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected package kind in quote")
		}

		options := make([]ShippingOption, 0, len(pkg.Options))
		forcedSeen := false
		for _, opt := range pkg.Options {
			method, err := enums.ParseShippingMethod(opt.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected shipping method in quote")
			}
			price, err := decimal.NewFromString(opt.Price)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected price in quote")
			}
			if opt.Forced {
				if forcedSeen {
					return nil, pkgerrors.New(pkgerrors.CodeDependency, "quote carries more than one forced method for a package")
				}
				forcedSeen = true
			}
			options = append(options, ShippingOption{
				Method:            method,
				Name:              opt.Name,
				Price:             price,
				Available:         opt.Available,
				Forced:            opt.Forced,
				BlockedReason:     opt.BlockedReason,
				EstimatedDelivery: opt.EstimatedDelivery,
			})
		}

		result.Packages = append(result.Packages, PackageQuote{
			WarehouseID:       pkg.WarehouseID,
			Kind:              kind,
			Options:           options,
			LockerParcelCount: pkg.LockerParcelCount,
			LockerEligible:    pkg.LockerEligible,
			CarrierOnly:       pkg.CarrierOnly,
			LockerOnly:        pkg.LockerOnly,
		})
	}

	return result, nil
}
