package controllers

import (
	"github.com/google/uuid"

	checkoutsvc "github.com/sklepio/storefront-backend/internal/checkout"
	"github.com/sklepio/storefront-backend/pkg/addressbook"
	"github.com/sklepio/storefront-backend/pkg/types"
)

type stateResponse struct {
	Step       int                 `json:"step"`
	StepName   string              `json:"step_name"`
	Guest      bool                `json:"guest"`
	Packages   []packageResponse   `json:"packages"`
	Selections []selectionResponse `json:"selections"`
	Totals     totalsResponse      `json:"totals"`
	Warnings   []string            `json:"warnings,omitempty"`
	CouponCode string              `json:"coupon_code,omitempty"`
}

type packageResponse struct {
	ID                string           `json:"id"`
	WarehouseID       string           `json:"warehouse_id"`
	Kind              string           `json:"kind"`
	Subtotal          string           `json:"subtotal"`
	FreeShipping      bool             `json:"free_shipping"`
	FreeShippingDelta string           `json:"free_shipping_delta"`
	Quoted            bool             `json:"quoted"`
	LockerParcelCount int              `json:"locker_parcel_count,omitempty"`
	LockerEligible    bool             `json:"locker_eligible"`
	CarrierOnly       bool             `json:"carrier_only"`
	LockerOnly        bool             `json:"locker_only"`
	Lines             []lineResponse   `json:"lines"`
	Options           []optionResponse `json:"options"`
}

type lineResponse struct {
	ID          uuid.UUID `json:"id"`
	VariantID   uuid.UUID `json:"variant_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	ImageURL    string    `json:"image_url,omitempty"`
}

type optionResponse struct {
	Method            string `json:"method"`
	Label             string `json:"label"`
	Price             string `json:"price"`
	Available         bool   `json:"available"`
	Forced            bool   `json:"forced"`
	BlockedReason     string `json:"blocked_reason,omitempty"`
	EstimatedDelivery string `json:"estimated_delivery,omitempty"`
}

type selectionResponse struct {
	PackageID        string           `json:"package_id"`
	Method           string           `json:"method"`
	Price            string           `json:"price"`
	UseCustomAddress bool             `json:"use_custom_address"`
	CustomAddress    *types.Address   `json:"custom_address,omitempty"`
	Lockers          []lockerResponse `json:"lockers,omitempty"`
}

type lockerResponse struct {
	SlotIndex     int    `json:"slot_index"`
	LockerCode    string `json:"locker_code,omitempty"`
	LockerAddress string `json:"locker_address,omitempty"`
}

type totalsResponse struct {
	Subtotal   string `json:"subtotal"`
	Shipping   string `json:"shipping"`
	PaymentFee string `json:"payment_fee"`
	Discount   string `json:"discount"`
	Total      string `json:"total"`
}

type savedAddressResponse struct {
	ID      uuid.UUID     `json:"id"`
	Address types.Address `json:"address"`
	Default bool          `json:"default"`
}

func newSavedAddressesResponse(saved []addressbook.SavedAddress) []savedAddressResponse {
	out := make([]savedAddressResponse, 0, len(saved))
	for _, record := range saved {
		out = append(out, savedAddressResponse{
			ID:      record.ID,
			Address: record.Address,
			Default: record.Default,
		})
	}
	return out
}

type submissionResponse struct {
	OrderID    uuid.UUID `json:"order_id"`
	PaymentURL string    `json:"payment_url,omitempty"`
	Redirect   bool      `json:"redirect"`
}

func newStateResponse(state *checkoutsvc.State) stateResponse {
	if state == nil || state.Draft == nil {
		return stateResponse{}
	}

	resp := stateResponse{
		Step:       int(state.Draft.Step),
		StepName:   state.Draft.Step.String(),
		Guest:      state.Draft.Guest,
		Warnings:   state.Warnings,
		CouponCode: state.Draft.CouponCode,
		Totals: totalsResponse{
			Subtotal:   state.Totals.Subtotal.StringFixed(2),
			Shipping:   state.Totals.Shipping.StringFixed(2),
			PaymentFee: state.Totals.PaymentFee.StringFixed(2),
			Discount:   state.Totals.Discount.StringFixed(2),
			Total:      state.Totals.Total.StringFixed(2),
		},
		Packages:   make([]packageResponse, 0, len(state.Packages)),
		Selections: make([]selectionResponse, 0, len(state.Draft.Selections)),
	}

	for _, pkg := range state.Packages {
		pr := packageResponse{
			ID:                pkg.ID,
			WarehouseID:       pkg.WarehouseID,
			Kind:              pkg.Kind.String(),
			Subtotal:          pkg.Subtotal.StringFixed(2),
			FreeShipping:      pkg.FreeShipping,
			FreeShippingDelta: pkg.FreeShippingDelta.StringFixed(2),
			Quoted:            pkg.Quoted,
			LockerParcelCount: pkg.LockerParcelCount,
			LockerEligible:    pkg.LockerEligible,
			CarrierOnly:       pkg.CarrierOnly,
			LockerOnly:        pkg.LockerOnly,
			Lines:             make([]lineResponse, 0, len(pkg.Lines)),
			Options:           make([]optionResponse, 0, len(pkg.Options)),
		}
		for _, l := range pkg.Lines {
			pr.Lines = append(pr.Lines, lineResponse{
				ID:          l.ID,
				VariantID:   l.VariantID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice.StringFixed(2),
				ImageURL:    l.ImageURL,
			})
		}
		for _, opt := range pkg.Options {
			pr.Options = append(pr.Options, optionResponse{
				Method:            opt.Method.String(),
				Label:             opt.Method.Label(),
				Price:             opt.Price.StringFixed(2),
				Available:         opt.Available,
				Forced:            opt.Forced,
				BlockedReason:     opt.BlockedReason,
				EstimatedDelivery: opt.EstimatedDelivery,
			})
		}
		resp.Packages = append(resp.Packages, pr)
	}

	for _, sel := range state.Draft.Selections {
		sr := selectionResponse{
			PackageID:        sel.PackageID,
			Method:           sel.Method.String(),
			Price:            sel.Price.StringFixed(2),
			UseCustomAddress: sel.UseCustomAddress,
			CustomAddress:    sel.CustomAddress,
		}
		for _, locker := range sel.LockerSelections {
			sr.Lockers = append(sr.Lockers, lockerResponse{
				SlotIndex:     locker.SlotIndex,
				LockerCode:    locker.LockerCode,
				LockerAddress: locker.LockerAddress,
			})
		}
		resp.Selections = append(resp.Selections, sr)
	}
	return resp
}
