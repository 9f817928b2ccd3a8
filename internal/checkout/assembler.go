package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/pkg/db/models"
	"github.com/sklepio/storefront-backend/pkg/enums"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/orderapi"
)

// BuildPayload assembles the finalized order payload from the draft and the
// cart lines being purchased. Guest checkouts embed raw addresses; account
// checkouts reference address-book records the caller created first. The
// locker collect window is forwarded only when a locker shipment exists.
func BuildPayload(draft *Draft, lines []models.CartLine, lockerWindow time.Duration) (orderapi.OrderPayload, error) {
	if draft == nil {
		return orderapi.OrderPayload{}, pkgerrors.New(pkgerrors.CodeInternal, "draft is required")
	}

	payload := orderapi.OrderPayload{
		ItemIDs:          make([]uuid.UUID, 0, len(lines)),
		Shipments:        make([]orderapi.ShipmentSpec, 0, len(draft.Selections)),
		PaymentMethod:    draft.PaymentMethod.String(),
		CouponCode:       draft.CouponCode,
		AcceptTerms:      draft.AcceptTerms,
		AcceptNewsletter: draft.AcceptNewsletter,
		InvoiceRequested: draft.InvoiceRequested,
	}
	for _, line := range lines {
		payload.ItemIDs = append(payload.ItemIDs, line.ID)
	}

	if draft.Authenticated() {
		payload.CustomerID = draft.CustomerID
		if draft.CreatedShippingAddressID == nil {
			return orderapi.OrderPayload{}, pkgerrors.New(pkgerrors.CodeInternal, "shipping address record not created")
		}
		payload.ShippingAddressID = draft.CreatedShippingAddressID
		if draft.BillingDifferent {
			if draft.CreatedBillingAddressID == nil {
				return orderapi.OrderPayload{}, pkgerrors.New(pkgerrors.CodeInternal, "billing address record not created")
			}
			payload.BillingAddressID = draft.CreatedBillingAddressID
		}
	} else {
		contact := orderapi.GuestContact{
			Email:     strings.TrimSpace(draft.Contact.Email),
			FirstName: draft.Contact.FirstName,
			LastName:  draft.Contact.LastName,
			Phone:     draft.Contact.Phone,
		}
		payload.Guest = &contact
		addr := draft.Address
		payload.ShippingAddress = &addr
		if draft.BillingDifferent && draft.BillingAddress != nil {
			billing := *draft.BillingAddress
			payload.BillingAddress = &billing
		}
	}

	for _, sel := range draft.Selections {
		spec := orderapi.ShipmentSpec{
			PackageID:        sel.PackageID,
			WarehouseID:      sel.WarehouseID,
			MethodID:         sel.Method.String(),
			Price:            sel.Price.StringFixed(2),
			UseCustomAddress: sel.UseCustomAddress,
		}
		if sel.UseCustomAddress && sel.CustomAddress != nil {
			custom := *sel.CustomAddress
			spec.CustomAddress = &custom
		}
		for _, slot := range sel.LockerSelections {
			spec.Lockers = append(spec.Lockers, orderapi.LockerSpec{
				SlotIndex: slot.SlotIndex,
				Code:      slot.LockerCode,
				Address:   slot.LockerAddress,
			})
		}
		payload.Shipments = append(payload.Shipments, spec)
		if sel.Method.LockerBased() && lockerWindow > 0 {
			payload.LockerCollectHours = int(lockerWindow.Hours())
		}
	}
	return payload, nil
}

// SelectionsFromPayload reverses BuildPayload's shipment mapping. Used when
// a draft has to be reconstructed from a payload, and in round-trip checks.
func SelectionsFromPayload(payload orderapi.OrderPayload) ([]PackageShippingSelection, error) {
	out := make([]PackageShippingSelection, 0, len(payload.Shipments))
	for _, spec := range payload.Shipments {
		method, err := enums.ParseShippingMethod(spec.MethodID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown method in shipment")
		}
		price, err := decimal.NewFromString(spec.Price)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unparseable price in shipment")
		}
		sel := PackageShippingSelection{
			PackageID:        spec.PackageID,
			WarehouseID:      spec.WarehouseID,
			Method:           method,
			Price:            price,
			UseCustomAddress: spec.UseCustomAddress,
		}
		if spec.CustomAddress != nil {
			addr := *spec.CustomAddress
			sel.CustomAddress = &addr
		}
		for _, locker := range spec.Lockers {
			sel.LockerSelections = append(sel.LockerSelections, LockerSlotSelection{
				SlotIndex:     locker.SlotIndex,
				LockerCode:    locker.Code,
				LockerAddress: locker.Address,
			})
		}
		out = append(out, sel)
	}
	return out, nil
}

// Submit finalizes the checkout. For account customers the shipping and
// billing addresses are first written to the address book; the created ids
// are cached on the draft so a failed submission reuses them instead of
// creating duplicates. On success the draft and the cart selection are
// cleared and the caller redirects to the payment url when one is returned.
func (s *service) Submit(ctx context.Context, sessionID string) (*Submission, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != enums.StepSummary {
		return nil, stepConflict(draft.Step, enums.StepSummary.String())
	}
	if !draft.AcceptTerms {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terms must be accepted")
	}
	if !draft.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	state := s.view(draft, lines)
	if err := validateShipping(state.Packages, draft.Selections); err != nil {
		return nil, err
	}

	acquired, err := s.lock.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}
	defer func() {
		if err := s.lock.Release(ctx, sessionID); err != nil {
			s.logg.Warn(ctx, "release submit lock failed: "+err.Error())
		}
	}()

	if draft.Authenticated() {
		if err := s.ensureAddressRecords(ctx, draft); err != nil {
			s.metrics.IncSubmission("address_failed")
			return nil, err
		}
	}

	payload, err := BuildPayload(draft, lines, s.lockerCollectWindow)
	if err != nil {
		return nil, err
	}

	result, err := s.orders.Submit(ctx, payload)
	if err != nil {
		s.metrics.IncSubmission("rejected")
		return nil, err
	}
	s.metrics.IncSubmission("accepted")

	// Best effort cleanup. The order exists either way.
	cleanupCtx := s.logg.WithSessionID(ctx, sessionID)
	if err := s.selection.Clear(ctx, sessionID); err != nil {
		s.logg.Warn(cleanupCtx, "clear cart selection after submit failed: "+err.Error())
	}
	if err := s.drafts.Delete(ctx, sessionID); err != nil {
		s.logg.Warn(cleanupCtx, "delete draft after submit failed: "+err.Error())
	}

	return &Submission{
		OrderID:    result.OrderID,
		PaymentURL: result.PaymentURL,
		Redirect:   result.PaymentURL != "",
	}, nil
}

// ensureAddressRecords creates the address-book entries an account
// submission references. Ids cached from a previous attempt are kept; the
// draft is saved after each create so a later failure cannot orphan more
// than the records already made.
func (s *service) ensureAddressRecords(ctx context.Context, draft *Draft) error {
	if draft.CreatedShippingAddressID == nil {
		id, err := s.addresses.Create(ctx, *draft.CustomerID, draft.Address)
		if err != nil {
			return err
		}
		draft.CreatedShippingAddressID = &id
		if err := s.drafts.Save(ctx, draft); err != nil {
			return err
		}
	}
	if draft.BillingDifferent && draft.CreatedBillingAddressID == nil {
		if draft.BillingAddress == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "billing address missing from draft")
		}
		id, err := s.addresses.Create(ctx, *draft.CustomerID, *draft.BillingAddress)
		if err != nil {
			return err
		}
		draft.CreatedBillingAddressID = &id
		if err := s.drafts.Save(ctx, draft); err != nil {
			return err
		}
	}
	return nil
}
