// Package checkout drives the multi-step checkout flow: it partitions the
// cart into shipping packages, resolves delivery options against the pricing
// service, walks the customer through the step machine and finally assembles
// and submits the order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/internal/cart"
	"github.com/sklepio/storefront-backend/pkg/addressbook"
	"github.com/sklepio/storefront-backend/pkg/coupons"
	"github.com/sklepio/storefront-backend/pkg/db/models"
	"github.com/sklepio/storefront-backend/pkg/enums"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/logger"
	"github.com/sklepio/storefront-backend/pkg/metrics"
	"github.com/sklepio/storefront-backend/pkg/orderapi"
	"github.com/sklepio/storefront-backend/pkg/pricing"
	"github.com/sklepio/storefront-backend/pkg/types"
)

// AddressInput carries everything the address step collects.
type AddressInput struct {
	Contact          ContactInfo
	Address          types.Address
	BillingDifferent bool
	BillingAddress   *types.Address
	InvoiceRequested bool
}

// PaymentInput carries the payment step's choices.
type PaymentInput struct {
	Method           enums.PaymentMethod
	AcceptTerms      bool
	AcceptNewsletter bool
}

// State is the full view of a checkout session: the stored draft plus the
// packages and totals derived from the live cart.
type State struct {
	Draft    *Draft
	Packages []Package
	Totals   Totals
	Warnings []string
}

// Submission is the outcome of a successful order submission.
type Submission struct {
	OrderID    uuid.UUID
	PaymentURL string
	Redirect   bool
}

// Service is the checkout flow's behavior surface.
type Service interface {
	Start(ctx context.Context, sessionID string, customerID *uuid.UUID) (*State, error)
	Current(ctx context.Context, sessionID string) (*State, error)
	SubmitAuthChoice(ctx context.Context, sessionID string, guest bool) (*State, error)
	SubmitAddress(ctx context.Context, sessionID string, input AddressInput) (*State, error)
	SavedAddresses(ctx context.Context, sessionID string) ([]addressbook.SavedAddress, error)
	RefreshShipping(ctx context.Context, sessionID string) (*State, error)
	SelectShippingMethod(ctx context.Context, sessionID, packageID string, method enums.ShippingMethod) (*State, error)
	SelectLockerSlot(ctx context.Context, sessionID, packageID string, slotIndex int, lockerCode, lockerAddress string) (*State, error)
	SetCustomAddressEnabled(ctx context.Context, sessionID, packageID string, enabled bool) (*State, error)
	SetCustomAddress(ctx context.Context, sessionID, packageID string, address types.Address) (*State, error)
	SubmitShipping(ctx context.Context, sessionID string) (*State, error)
	SubmitPayment(ctx context.Context, sessionID string, input PaymentInput) (*State, error)
	Back(ctx context.Context, sessionID string) (*State, error)
	Edit(ctx context.Context, sessionID string, step enums.CheckoutStep) (*State, error)
	PaymentCancelled(ctx context.Context, sessionID string) (*State, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (*State, error)
	RemoveCoupon(ctx context.Context, sessionID string) (*State, error)
	Submit(ctx context.Context, sessionID string) (*Submission, error)
}

type service struct {
	cart      cart.Repository
	drafts    DraftStore
	selection SelectionStore
	lock      SubmitLock
	pricing   pricing.Resolver
	coupons   coupons.Service
	addresses addressbook.Store
	orders    orderapi.Submitter
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger

	freeShippingThreshold decimal.Decimal
	lockerCollectWindow   time.Duration
}

// NewService wires the checkout service. Every collaborator is mandatory
// except metrics, which degrades to a no-op.
func NewService(
	cartRepo cart.Repository,
	drafts DraftStore,
	selection SelectionStore,
	lock SubmitLock,
	pricingClient pricing.Resolver,
	couponClient coupons.Service,
	addressClient addressbook.Store,
	orderClient orderapi.Submitter,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
	freeShippingThreshold decimal.Decimal,
	lockerCollectWindow time.Duration,
) (Service, error) {
	if cartRepo == nil {
		return nil, errors.New("cart repository is required")
	}
	if drafts == nil {
		return nil, errors.New("draft store is required")
	}
	if selection == nil {
		return nil, errors.New("selection store is required")
	}
	if lock == nil {
		return nil, errors.New("submit lock is required")
	}
	if pricingClient == nil {
		return nil, errors.New("pricing client is required")
	}
	if couponClient == nil {
		return nil, errors.New("coupon client is required")
	}
	if addressClient == nil {
		return nil, errors.New("address book client is required")
	}
	if orderClient == nil {
		return nil, errors.New("order client is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &service{
		cart:                  cartRepo,
		drafts:                drafts,
		selection:             selection,
		lock:                  lock,
		pricing:               pricingClient,
		coupons:               couponClient,
		addresses:             addressClient,
		orders:                orderClient,
		metrics:               checkoutMetrics,
		logg:                  logg,
		freeShippingThreshold: freeShippingThreshold,
		lockerCollectWindow:   lockerCollectWindow,
	}, nil
}

// loadLines reads the cart and narrows it to the persisted selection.
func (s *service) loadLines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	lines, err := s.cart.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	selected, err := s.selection.SelectedItemIDs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	lines = SelectLines(lines, selected)
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	return lines, nil
}

func (s *service) view(draft *Draft, lines []models.CartLine) *State {
	packages := Partition(lines, s.freeShippingThreshold)
	if draft.QuoteItemsKey == itemsKey(lines) {
		packages = ApplyQuotes(packages, draft.Quotes)
	}
	return &State{
		Draft:    draft,
		Packages: packages,
		Totals:   ComputeTotals(packages, draft.Selections, draft.PaymentMethod, draft.Discount),
		Warnings: draft.QuoteWarnings,
	}
}

func (s *service) load(ctx context.Context, sessionID string) (*Draft, []models.CartLine, error) {
	draft, err := s.drafts.Load(ctx, sessionID)
	if errors.Is(err, ErrDraftNotFound) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout in progress")
	}
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.loadLines(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return draft, lines, nil
}

func stepConflict(have enums.CheckoutStep, want string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("operation requires the %s step", want)).
		WithDetails(map[string]string{"current_step": have.String()})
}

// Start opens a checkout for the session, reusing an existing draft when one
// is already in progress. Authenticated customers skip the guest-or-account
// choice. A shipping quote is fetched eagerly so the shipping step renders
// instantly; its failure is swallowed because the step retries on entry.
func (s *service) Start(ctx context.Context, sessionID string, customerID *uuid.UUID) (*State, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	lines, err := s.loadLines(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	draft, err := s.drafts.Load(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrDraftNotFound) {
		return nil, err
	}
	if draft == nil {
		draft = &Draft{
			SessionID: sessionID,
			Step:      enums.StepAuthChoice,
			Guest:     true,
			Discount:  decimal.Zero,
		}
		if customerID != nil && *customerID != uuid.Nil {
			id := *customerID
			draft.CustomerID = &id
			draft.Guest = false
			draft.Step = enums.StepAddress
		}
		if err := s.drafts.Save(ctx, draft); err != nil {
			return nil, err
		}
	}

	if draft, lines, err = s.refreshQuotes(ctx, draft, lines, "eager"); err != nil {
		s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "eager shipping quote failed: "+err.Error())
	}
	return s.view(draft, lines), nil
}

// Current returns the session's checkout state without mutating it.
func (s *service) Current(ctx context.Context, sessionID string) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// SubmitAuthChoice records the guest-or-account decision and moves to the
// address step.
func (s *service) SubmitAuthChoice(ctx context.Context, sessionID string, guest bool) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepAuthChoice {
		return nil, stepConflict(draft.Step, enums.StepAuthChoice.String())
	}
	if !guest && draft.CustomerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to continue with an account")
	}
	draft.Guest = guest
	draft.Step = enums.StepAddress
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// SubmitAddress stores the contact and address data and advances to the
// shipping step. Data entered on later steps survives an edit round trip.
func (s *service) SubmitAddress(ctx context.Context, sessionID string, input AddressInput) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step < enums.StepAddress {
		return nil, stepConflict(draft.Step, enums.StepAddress.String())
	}

	if !input.Address.Complete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": input.Address.MissingFields()})
	}
	if draft.Guest && strings.TrimSpace(input.Contact.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required for guest checkout")
	}
	if input.BillingDifferent {
		if input.BillingAddress == nil || !input.BillingAddress.Complete() {
			missing := []string{}
			if input.BillingAddress != nil {
				missing = input.BillingAddress.MissingFields()
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing address is incomplete").
				WithDetails(map[string]any{"missing": missing})
		}
	}

	// A changed address invalidates any address-book record cached from a
	// previous failed submission.
	if draft.Address != input.Address {
		draft.CreatedShippingAddressID = nil
	}
	if input.BillingAddress == nil || draft.BillingAddress == nil || *draft.BillingAddress != *input.BillingAddress {
		draft.CreatedBillingAddressID = nil
	}

	draft.Contact = input.Contact
	draft.Address = input.Address
	draft.BillingDifferent = input.BillingDifferent
	draft.BillingAddress = nil
	if input.BillingDifferent {
		addr := *input.BillingAddress
		draft.BillingAddress = &addr
	}
	draft.InvoiceRequested = input.InvoiceRequested
	if draft.Step == enums.StepAddress {
		draft.Step = enums.StepShipping
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// SavedAddresses lists the signed-in customer's address book so the address
// step can offer the records for one-tap reuse. Guest sessions have none.
func (s *service) SavedAddresses(ctx context.Context, sessionID string) ([]addressbook.SavedAddress, error) {
	draft, err := s.drafts.Load(ctx, sessionID)
	if errors.Is(err, ErrDraftNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout in progress")
	}
	if err != nil {
		return nil, err
	}
	if !draft.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to use saved addresses")
	}
	return s.addresses.List(ctx, *draft.CustomerID)
}

// RefreshShipping fetches a fresh quote for the current cart. This is the
// authoritative fetch the shipping step issues on entry; unlike the eager
// fetch, failures propagate.
func (s *service) RefreshShipping(ctx context.Context, sessionID string) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	draft, lines, err = s.refreshQuotes(ctx, draft, lines, "shipping_step")
	if err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// refreshQuotes performs one quote round trip. The draft's QuoteSeq is
// bumped and persisted before the call; when the response lands, the stored
// draft is re-read and the response discarded if a later fetch superseded it
// or the cart composition changed while it was in flight.
func (s *service) refreshQuotes(ctx context.Context, draft *Draft, lines []models.CartLine, trigger string) (*Draft, []models.CartLine, error) {
	draft.QuoteSeq++
	seq := draft.QuoteSeq
	key := itemsKey(lines)
	if err := s.drafts.Save(ctx, draft); err != nil {
		return draft, lines, err
	}

	start := time.Now()
	result, err := s.pricing.ResolveShippingOptions(ctx, quoteItems(lines))
	s.metrics.ObserveQuote(trigger, time.Since(start))
	if err != nil {
		s.metrics.IncQuoteFailure(trigger)
		return draft, lines, err
	}

	current, err := s.drafts.Load(ctx, draft.SessionID)
	if err != nil {
		return draft, lines, err
	}
	if current.QuoteSeq != seq {
		// A later fetch owns the draft now; this response is stale.
		return current, lines, nil
	}
	freshLines, err := s.loadLines(ctx, draft.SessionID)
	if err != nil {
		return current, lines, err
	}
	if itemsKey(freshLines) != key {
		return current, freshLines, nil
	}

	current.Quotes = result.Packages
	current.QuoteWarnings = result.Warnings
	current.AppliedQuoteSeq = seq
	current.QuoteItemsKey = key

	packages := ApplyQuotes(Partition(freshLines, s.freeShippingThreshold), current.Quotes)
	current.Selections = ReconcileSelections(packages, current.Selections)
	if err := s.drafts.Save(ctx, current); err != nil {
		return current, freshLines, err
	}
	return current, freshLines, nil
}

// SelectShippingMethod commits a delivery method for one package.
func (s *service) SelectShippingMethod(ctx context.Context, sessionID, packageID string, method enums.ShippingMethod) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepShipping {
		return nil, stepConflict(draft.Step, enums.StepShipping.String())
	}

	state := s.view(draft, lines)
	pkg := findPackage(state.Packages, packageID)
	if pkg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown package").
			WithDetails(map[string]string{"package_id": packageID})
	}
	if forced := pkg.ForcedOption(); forced != nil && forced.Method != method {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery method is fixed for this package").
			WithDetails(map[string]string{"package_id": packageID, "forced_method": forced.Method.String()})
	}
	opt := pkg.OptionFor(method)
	if opt == nil || !opt.Available {
		reason := "delivery method not offered for this package"
		if opt != nil && opt.BlockedReason != "" {
			reason = opt.BlockedReason
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, reason).
			WithDetails(map[string]string{"package_id": packageID, "method": method.String()})
	}

	sel := draft.SelectionFor(packageID)
	if sel == nil {
		draft.Selections = append(draft.Selections, PackageShippingSelection{
			PackageID:   packageID,
			WarehouseID: pkg.WarehouseID,
		})
		sel = &draft.Selections[len(draft.Selections)-1]
	}
	sel.Method = method
	sel.Price = opt.Price
	if method.LockerBased() {
		sel.UseCustomAddress = false
		sel.CustomAddress = nil
		sel.LockerSelections = resizeLockerSelections(sel.LockerSelections, pkg.LockerParcelCount)
	} else {
		sel.LockerSelections = nil
	}

	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// SelectLockerSlot records the locker chosen for one parcel of a locker
// shipment.
func (s *service) SelectLockerSlot(ctx context.Context, sessionID, packageID string, slotIndex int, lockerCode, lockerAddress string) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepShipping {
		return nil, stepConflict(draft.Step, enums.StepShipping.String())
	}
	sel := draft.SelectionFor(packageID)
	if sel == nil || !sel.Method.LockerBased() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "package is not a locker shipment").
			WithDetails(map[string]string{"package_id": packageID})
	}
	if slotIndex < 0 || slotIndex >= len(sel.LockerSelections) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot index out of range").
			WithDetails(map[string]string{"package_id": packageID, "slot": fmt.Sprintf("%d", slotIndex)})
	}
	if strings.TrimSpace(lockerCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "locker code is required")
	}
	sel.LockerSelections[slotIndex] = LockerSlotSelection{
		SlotIndex:     slotIndex,
		LockerCode:    strings.TrimSpace(lockerCode),
		LockerAddress: strings.TrimSpace(lockerAddress),
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// SetCustomAddressEnabled toggles the per-package delivery address override.
// Toggling off keeps the entered address until the shipping step is left.
func (s *service) SetCustomAddressEnabled(ctx context.Context, sessionID, packageID string, enabled bool) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepShipping {
		return nil, stepConflict(draft.Step, enums.StepShipping.String())
	}
	sel := draft.SelectionFor(packageID)
	if sel == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown package").
			WithDetails(map[string]string{"package_id": packageID})
	}
	if enabled {
		if err := enableCustomAddress(sel); err != nil {
			return nil, err
		}
	} else {
		disableCustomAddress(sel)
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// SetCustomAddress stores a per-package delivery address and switches the
// override on.
func (s *service) SetCustomAddress(ctx context.Context, sessionID, packageID string, address types.Address) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepShipping {
		return nil, stepConflict(draft.Step, enums.StepShipping.String())
	}
	sel := draft.SelectionFor(packageID)
	if sel == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown package").
			WithDetails(map[string]string{"package_id": packageID})
	}
	if !address.Complete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is incomplete").
			WithDetails(map[string]any{"missing": address.MissingFields()})
	}
	if err := setCustomAddress(sel, address); err != nil {
		return nil, err
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// SubmitShipping validates every package's delivery choice and advances to
// the payment step. Disabled address overrides are dropped on the way out.
func (s *service) SubmitShipping(ctx context.Context, sessionID string) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepShipping {
		return nil, stepConflict(draft.Step, enums.StepShipping.String())
	}

	state := s.view(draft, lines)
	if err := validateShipping(state.Packages, draft.Selections); err != nil {
		return nil, err
	}

	dropDisabledOverrides(draft.Selections)
	draft.Step = enums.StepPayment
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// SubmitPayment records the payment choice and consents and advances to the
// summary.
func (s *service) SubmitPayment(ctx context.Context, sessionID string, input PaymentInput) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepPayment {
		return nil, stepConflict(draft.Step, enums.StepPayment.String())
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	draft.PaymentMethod = input.Method
	draft.AcceptTerms = input.AcceptTerms
	draft.AcceptNewsletter = input.AcceptNewsletter
	draft.Step = enums.StepSummary
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// Back steps one stage towards the address step, never past it. Leaving the
// shipping step backwards also discards disabled address overrides.
func (s *service) Back(ctx context.Context, sessionID string) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step > enums.StepAddress {
		if draft.Step == enums.StepShipping {
			dropDisabledOverrides(draft.Selections)
		}
		draft.Step--
		if err := s.drafts.Save(ctx, draft); err != nil {
			return nil, err
		}
	}
	return s.view(draft, lines), nil
}

// Edit jumps from the summary straight to an earlier step. Data entered on
// the steps in between is preserved.
func (s *service) Edit(ctx context.Context, sessionID string, step enums.CheckoutStep) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepSummary {
		return nil, stepConflict(draft.Step, enums.StepSummary.String())
	}
	if step < enums.StepAddress || step >= enums.StepSummary {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot edit that step").
			WithDetails(map[string]string{"step": step.String()})
	}
	draft.Step = step
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// PaymentCancelled re-enters the flow at the payment step after the customer
// abandons the external payment page. The draft survives the redirect.
func (s *service) PaymentCancelled(ctx context.Context, sessionID string) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step < enums.StepPayment {
		return nil, stepConflict(draft.Step, enums.StepPayment.String())
	}
	draft.Step = enums.StepPayment
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

func findPackage(packages []Package, packageID string) *Package {
	for i := range packages {
		if packages[i].ID == packageID {
			return &packages[i]
		}
	}
	return nil
}
