package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/pkg/enums"
	"github.com/sklepio/storefront-backend/pkg/money"
)

// Totals is the money summary rendered on every step.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	PaymentFee decimal.Decimal `json:"payment_fee"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

// onDeliveryFee is the handling surcharge for cash on delivery. The only fee
// priced locally; everything else comes from collaborator services.
var onDeliveryFee = decimal.NewFromFloat(4.99)

// PaymentFeeFor returns the surcharge a payment method adds to the order.
func PaymentFeeFor(method enums.PaymentMethod) decimal.Decimal {
	if method == enums.PaymentMethodOnDelivery {
		return onDeliveryFee
	}
	return decimal.Zero
}

// ComputeTotals aggregates the order summary. Each component is already
// rounded; the grand total rounds once more and is clamped at zero so an
// oversized discount can never produce a negative amount due.
func ComputeTotals(packages []Package, selections []PackageShippingSelection, paymentMethod enums.PaymentMethod, discount decimal.Decimal) Totals {
	subtotal := CartSubtotal(packages)
	shipping := ShippingTotal(selections)
	fee := PaymentFeeFor(paymentMethod)
	discount = money.NonNegative(money.Round2(discount))

	total := money.NonNegative(money.Sum(subtotal, shipping, fee).Sub(discount))
	return Totals{
		Subtotal:   subtotal,
		Shipping:   shipping,
		PaymentFee: fee,
		Discount:   discount,
		Total:      total,
	}
}
