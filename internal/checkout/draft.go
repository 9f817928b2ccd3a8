package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/pkg/enums"
	"github.com/sklepio/storefront-backend/pkg/pricing"
	"github.com/sklepio/storefront-backend/pkg/types"
)

// ContactInfo carries the customer contact fields collected on the address step.
type ContactInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// LockerSlotSelection is the locker chosen for one physical parcel.
type LockerSlotSelection struct {
	SlotIndex     int    `json:"slot_index"`
	LockerCode    string `json:"locker_code"`
	LockerAddress string `json:"locker_address,omitempty"`
}

// PackageShippingSelection is the committed shipping choice for one package.
type PackageShippingSelection struct {
	PackageID        string                `json:"package_id"`
	WarehouseID      string                `json:"warehouse_id"`
	Method           enums.ShippingMethod  `json:"method"`
	Price            decimal.Decimal       `json:"price"`
	LockerSelections []LockerSlotSelection `json:"locker_selections,omitempty"`
	UseCustomAddress bool                  `json:"use_custom_address"`
	CustomAddress    *types.Address        `json:"custom_address,omitempty"`
}

// Draft is the in-progress state of one checkout session. It lives in Redis
// for the duration of the session and is mutated only through the checkout
// service; every mutation replaces the stored record wholesale.
type Draft struct {
	SessionID        string                     `json:"session_id"`
	Step             enums.CheckoutStep         `json:"step"`
	Guest            bool                       `json:"guest"`
	CustomerID       *uuid.UUID                 `json:"customer_id,omitempty"`
	Contact          ContactInfo                `json:"contact"`
	Address          types.Address              `json:"address"`
	BillingDifferent bool                       `json:"billing_different"`
	BillingAddress   *types.Address             `json:"billing_address,omitempty"`
	InvoiceRequested bool                       `json:"invoice_requested"`
	Selections       []PackageShippingSelection `json:"selections"`
	PaymentMethod    enums.PaymentMethod        `json:"payment_method,omitempty"`
	AcceptTerms      bool                       `json:"accept_terms"`
	AcceptNewsletter bool                       `json:"accept_newsletter"`
	CouponCode       string                     `json:"coupon_code,omitempty"`
	Discount         decimal.Decimal            `json:"discount"`

	// Latest applied shipping quote plus the bookkeeping that lets a stale
	// in-flight response be recognized and discarded on arrival.
	Quotes          []pricing.PackageQuote `json:"quotes,omitempty"`
	QuoteWarnings   []string               `json:"quote_warnings,omitempty"`
	QuoteSeq        uint64                 `json:"quote_seq"`
	AppliedQuoteSeq uint64                 `json:"applied_quote_seq"`
	QuoteItemsKey   string                 `json:"quote_items_key,omitempty"`

	// Address-book records created during a failed submission are reused on
	// resubmission instead of creating duplicates.
	CreatedShippingAddressID *uuid.UUID `json:"created_shipping_address_id,omitempty"`
	CreatedBillingAddressID  *uuid.UUID `json:"created_billing_address_id,omitempty"`
}

// Authenticated reports whether the draft belongs to a signed-in customer.
func (d *Draft) Authenticated() bool {
	return d != nil && !d.Guest && d.CustomerID != nil
}

// SelectionFor returns a pointer into the draft's selection for the package,
// or nil when no choice has been made yet.
func (d *Draft) SelectionFor(packageID string) *PackageShippingSelection {
	if d == nil {
		return nil
	}
	for i := range d.Selections {
		if d.Selections[i].PackageID == packageID {
			return &d.Selections[i]
		}
	}
	return nil
}
