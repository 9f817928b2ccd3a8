package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/pkg/db/models"
	"github.com/sklepio/storefront-backend/pkg/enums"
	"github.com/sklepio/storefront-backend/pkg/money"
	"github.com/sklepio/storefront-backend/pkg/pricing"
)

// DefaultWarehouseID groups lines whose product carries no warehouse
// assignment. It is an internal bucket, never shown to the customer.
const DefaultWarehouseID = "default"

// Package is one shipping unit: the lines from a single warehouse sharing an
// oversized class, plus the quote data last applied to it.
type Package struct {
	ID          string            `json:"id"`
	WarehouseID string            `json:"warehouse_id"`
	Kind        enums.PackageKind `json:"kind"`
	Lines       []models.CartLine `json:"lines"`
	Subtotal    decimal.Decimal   `json:"subtotal"`

	FreeShipping      bool            `json:"free_shipping"`
	FreeShippingDelta decimal.Decimal `json:"free_shipping_delta"`

	// Quote-derived fields. Zero values until a quote is applied.
	Options           []pricing.ShippingOption `json:"options"`
	LockerParcelCount int                      `json:"locker_parcel_count"`
	LockerEligible    bool                     `json:"locker_eligible"`
	CarrierOnly       bool                     `json:"carrier_only"`
	LockerOnly        bool                     `json:"locker_only"`
	Quoted            bool                     `json:"quoted"`
}

// TotalQuantity sums the unit count across the package's lines.
func (p Package) TotalQuantity() int {
	total := 0
	for _, line := range p.Lines {
		total += line.Quantity
	}
	return total
}

// AvailableOptions filters the package's options to the selectable ones.
func (p Package) AvailableOptions() []pricing.ShippingOption {
	out := make([]pricing.ShippingOption, 0, len(p.Options))
	for _, opt := range p.Options {
		if opt.Available {
			out = append(out, opt)
		}
	}
	return out
}

// ForcedOption returns the forced option when the quote carries one. The
// pricing client guarantees at most one per package.
func (p Package) ForcedOption() *pricing.ShippingOption {
	for i := range p.Options {
		if p.Options[i].Forced {
			return &p.Options[i]
		}
	}
	return nil
}

// OptionFor returns the quoted option matching the method, if any.
func (p Package) OptionFor(method enums.ShippingMethod) *pricing.ShippingOption {
	for i := range p.Options {
		if p.Options[i].Method == method {
			return &p.Options[i]
		}
	}
	return nil
}

// PackageKey derives the partition key for a cart line. Lines with no
// warehouse fall into the default bucket.
func PackageKey(warehouseID *string, oversized bool) string {
	wh := DefaultWarehouseID
	if warehouseID != nil && *warehouseID != "" {
		wh = *warehouseID
	}
	kind := enums.PackageKindStandard
	if oversized {
		kind = enums.PackageKindOversized
	}
	return fmt.Sprintf("%s:%s", wh, kind)
}

// Partition groups cart lines into packages by warehouse and oversized class.
// Package order follows the first appearance of each key in the cart so the
// rendered list stays stable while quantities change. Subtotals round at each
// aggregation step; the sum of package subtotals always equals the cart
// subtotal.
func Partition(lines []models.CartLine, freeShippingThreshold decimal.Decimal) []Package {
	packages := make([]Package, 0, 2)
	index := make(map[string]int, 2)

	for _, line := range lines {
		key := PackageKey(line.WarehouseID, line.Oversized)
		at, ok := index[key]
		if !ok {
			wh := DefaultWarehouseID
			if line.WarehouseID != nil && *line.WarehouseID != "" {
				wh = *line.WarehouseID
			}
			kind := enums.PackageKindStandard
			if line.Oversized {
				kind = enums.PackageKindOversized
			}
			packages = append(packages, Package{
				ID:          key,
				WarehouseID: wh,
				Kind:        kind,
			})
			at = len(packages) - 1
			index[key] = at
		}
		packages[at].Lines = append(packages[at].Lines, line)
		packages[at].Subtotal = money.Sum(packages[at].Subtotal, money.Line(line.UnitPrice, line.Quantity))
	}

	for i := range packages {
		if freeShippingThreshold.IsPositive() {
			packages[i].FreeShipping = packages[i].Subtotal.GreaterThanOrEqual(freeShippingThreshold)
			packages[i].FreeShippingDelta = money.NonNegative(freeShippingThreshold.Sub(packages[i].Subtotal))
		}
	}
	return packages
}

// CartSubtotal sums the package subtotals.
func CartSubtotal(packages []Package) decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(packages))
	for _, pkg := range packages {
		amounts = append(amounts, pkg.Subtotal)
	}
	return money.Sum(amounts...)
}
