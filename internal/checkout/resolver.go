package checkout

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/pkg/db/models"
	"github.com/sklepio/storefront-backend/pkg/money"
	"github.com/sklepio/storefront-backend/pkg/pricing"
)

// itemsKey fingerprints the cart composition a quote was requested for.
// Quotes that arrive after the composition changed are discarded by
// comparing keys; order of lines does not matter.
func itemsKey(lines []models.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s:%d", line.VariantID, line.Quantity))
	}
	sort.Strings(parts)

	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func quoteItems(lines []models.CartLine) []pricing.QuoteItem {
	items := make([]pricing.QuoteItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, pricing.QuoteItem{VariantID: line.VariantID, Quantity: line.Quantity})
	}
	return items
}

// ApplyQuotes merges quote data onto partitioned packages by warehouse and
// kind. Packages the pricing service did not answer for stay unquoted;
// quotes for packages the cart no longer produces are dropped.
func ApplyQuotes(packages []Package, quotes []pricing.PackageQuote) []Package {
	byKey := make(map[string]pricing.PackageQuote, len(quotes))
	for _, quote := range quotes {
		wh := quote.WarehouseID
		if wh == "" {
			wh = DefaultWarehouseID
		}
		byKey[fmt.Sprintf("%s:%s", wh, quote.Kind)] = quote
	}

	for i := range packages {
		quote, ok := byKey[packages[i].ID]
		if !ok {
			continue
		}
		packages[i].Options = quote.Options
		packages[i].LockerParcelCount = quote.LockerParcelCount
		packages[i].LockerEligible = quote.LockerEligible
		packages[i].CarrierOnly = quote.CarrierOnly
		packages[i].LockerOnly = quote.LockerOnly
		packages[i].Quoted = true
	}
	return packages
}

// ReconcileSelections rebuilds the per-package selections after a quote
// lands. A forced option overrides whatever was chosen before. A prior
// choice survives when its method is still available, with the price
// refreshed from the quote. A choice whose method disappeared falls back to
// the first available option, as does a package with no prior choice.
// Packages with no available option end up with no selection at all.
func ReconcileSelections(packages []Package, previous []PackageShippingSelection) []PackageShippingSelection {
	prior := make(map[string]PackageShippingSelection, len(previous))
	for _, sel := range previous {
		prior[sel.PackageID] = sel
	}

	out := make([]PackageShippingSelection, 0, len(packages))
	for _, pkg := range packages {
		old, hadPrior := prior[pkg.ID]

		var chosen *pricing.ShippingOption
		if forced := pkg.ForcedOption(); forced != nil {
			chosen = forced
		} else if hadPrior {
			if opt := pkg.OptionFor(old.Method); opt != nil && opt.Available {
				chosen = opt
			}
		}
		if chosen == nil {
			if available := pkg.AvailableOptions(); len(available) > 0 {
				chosen = &available[0]
			}
		}
		if chosen == nil {
			continue
		}

		// Prices come from the quote as-is. The free-shipping flag is
		// presentation only; the pricing service already prices free
		// packages at zero.
		sel := PackageShippingSelection{
			PackageID:   pkg.ID,
			WarehouseID: pkg.WarehouseID,
			Method:      chosen.Method,
			Price:       money.Round2(chosen.Price),
		}

		if chosen.Method.LockerBased() {
			sel.LockerSelections = resizeLockerSelections(old.LockerSelections, pkg.LockerParcelCount)
		} else if hadPrior && old.Method == chosen.Method {
			sel.UseCustomAddress = old.UseCustomAddress
			sel.CustomAddress = old.CustomAddress
		}
		out = append(out, sel)
	}
	return out
}

// ShippingTotal sums the selected shipping prices.
func ShippingTotal(selections []PackageShippingSelection) decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(selections))
	for _, sel := range selections {
		amounts = append(amounts, sel.Price)
	}
	return money.Sum(amounts...)
}
