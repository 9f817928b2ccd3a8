package controllers

import (
	"net/http"

	"github.com/sklepio/storefront-backend/api/middleware"
	"github.com/sklepio/storefront-backend/api/responses"
	"github.com/sklepio/storefront-backend/api/validators"
	checkoutsvc "github.com/sklepio/storefront-backend/internal/checkout"
	"github.com/sklepio/storefront-backend/pkg/enums"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/logger"
	"github.com/sklepio/storefront-backend/pkg/types"
)

type contactPayload struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type authChoiceRequest struct {
	Guest *bool `json:"guest" validate:"required"`
}

type addressRequest struct {
	Contact          contactPayload `json:"contact"`
	Address          types.Address  `json:"address" validate:"required"`
	BillingDifferent bool           `json:"billing_different"`
	BillingAddress   *types.Address `json:"billing_address,omitempty"`
	InvoiceRequested bool           `json:"invoice_requested"`
}

type selectMethodRequest struct {
	PackageID string `json:"package_id" validate:"required"`
	Method    string `json:"method" validate:"required"`
}

type lockerSlotRequest struct {
	PackageID     string `json:"package_id" validate:"required"`
	SlotIndex     *int   `json:"slot_index" validate:"required,min=0"`
	LockerCode    string `json:"locker_code" validate:"required"`
	LockerAddress string `json:"locker_address"`
}

type overrideToggleRequest struct {
	PackageID string `json:"package_id" validate:"required"`
	Enabled   *bool  `json:"enabled" validate:"required"`
}

type overrideAddressRequest struct {
	PackageID string        `json:"package_id" validate:"required"`
	Address   types.Address `json:"address" validate:"required"`
}

type paymentRequest struct {
	Method           string `json:"method" validate:"required"`
	AcceptTerms      bool   `json:"accept_terms"`
	AcceptNewsletter bool   `json:"accept_newsletter"`
}

type editRequest struct {
	Step *int `json:"step" validate:"required,min=1,max=3"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required"`
}

// writeState funnels every state-returning handler through one response shape.
func writeState(w http.ResponseWriter, r *http.Request, logg *logger.Logger, state *checkoutsvc.State, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, newStateResponse(state))
}

func CheckoutStart(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		customerID := middleware.CustomerIDFromContext(r.Context())
		state, err := svc.Start(r.Context(), sessionID, customerID)
		writeState(w, r, logg, state, err)
	}
}

func CheckoutState(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.Current(r.Context(), middleware.SessionIDFromContext(r.Context()))
		writeState(w, r, logg, state, err)
	}
}

func CheckoutAuthChoice(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload authChoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.SubmitAuthChoice(r.Context(), middleware.SessionIDFromContext(r.Context()), *payload.Guest)
		writeState(w, r, logg, state, err)
	}
}

func CheckoutAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.SubmitAddress(r.Context(), middleware.SessionIDFromContext(r.Context()), checkoutsvc.AddressInput{
			Contact: checkoutsvc.ContactInfo{
				Email:     payload.Contact.Email,
				FirstName: payload.Contact.FirstName,
				LastName:  payload.Contact.LastName,
				Phone:     payload.Contact.Phone,
			},
			Address:          payload.Address,
			BillingDifferent: payload.BillingDifferent,
			BillingAddress:   payload.BillingAddress,
			InvoiceRequested: payload.InvoiceRequested,
		})
		writeState(w, r, logg, state, err)
	}
}

func CheckoutSavedAddresses(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saved, err := svc.SavedAddresses(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSavedAddressesResponse(saved))
	}
}

func CheckoutRefreshShipping(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.RefreshShipping(r.Context(), middleware.SessionIDFromContext(r.Context()))
		writeState(w, r, logg, state, err)
	}
}

func CheckoutSelectMethod(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload selectMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParseShippingMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown shipping method"))
			return
		}
		state, err := svc.SelectShippingMethod(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.PackageID, method)
		writeState(w, r, logg, state, err)
	}
}

func CheckoutSelectLocker(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload lockerSlotRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.SelectLockerSlot(r.Context(), middleware.SessionIDFromContext(r.Context()),
			payload.PackageID, *payload.SlotIndex, payload.LockerCode, payload.LockerAddress)
		writeState(w, r, logg, state, err)
	}
}

func CheckoutToggleOverride(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload overrideToggleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.SetCustomAddressEnabled(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.PackageID, *payload.Enabled)
		writeState(w, r, logg, state, err)
	}
}

func CheckoutSetOverrideAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload overrideAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.SetCustomAddress(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.PackageID, payload.Address)
		writeState(w, r, logg, state, err)
	}
}

func CheckoutSubmitShipping(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.SubmitShipping(r.Context(), middleware.SessionIDFromContext(r.Context()))
		writeState(w, r, logg, state, err)
	}
}

func CheckoutSubmitPayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method"))
			return
		}
		state, err := svc.SubmitPayment(r.Context(), middleware.SessionIDFromContext(r.Context()), checkoutsvc.PaymentInput{
			Method:           method,
			AcceptTerms:      payload.AcceptTerms,
			AcceptNewsletter: payload.AcceptNewsletter,
		})
		writeState(w, r, logg, state, err)
	}
}

func CheckoutBack(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.Back(r.Context(), middleware.SessionIDFromContext(r.Context()))
		writeState(w, r, logg, state, err)
	}
}

func CheckoutEdit(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload editRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.Edit(r.Context(), middleware.SessionIDFromContext(r.Context()), enums.CheckoutStep(*payload.Step))
		writeState(w, r, logg, state, err)
	}
}

func CheckoutPaymentCancelled(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.PaymentCancelled(r.Context(), middleware.SessionIDFromContext(r.Context()))
		writeState(w, r, logg, state, err)
	}
}

func CheckoutApplyCoupon(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload couponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.ApplyCoupon(r.Context(), middleware.SessionIDFromContext(r.Context()), payload.Code)
		writeState(w, r, logg, state, err)
	}
}

func CheckoutRemoveCoupon(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.RemoveCoupon(r.Context(), middleware.SessionIDFromContext(r.Context()))
		writeState(w, r, logg, state, err)
	}
}

func CheckoutSubmit(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submission, err := svc.Submit(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submissionResponse{
			OrderID:    submission.OrderID,
			PaymentURL: submission.PaymentURL,
			Redirect:   submission.Redirect,
		})
	}
}
