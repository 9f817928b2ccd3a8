package checkout

import (
	"go.uber.org/multierr"

	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
)

// validateShipping checks every package against its committed selection.
// All problems are collected before reporting so the customer can fix the
// whole step in one pass.
func validateShipping(packages []Package, selections []PackageShippingSelection) error {
	byPackage := make(map[string]PackageShippingSelection, len(selections))
	for _, sel := range selections {
		byPackage[sel.PackageID] = sel
	}

	var errs error
	for _, pkg := range packages {
		if !pkg.Quoted {
			errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeValidation, "shipping options are not loaded yet").
				WithDetails(map[string]string{"package_id": pkg.ID}))
			continue
		}
		if len(pkg.AvailableOptions()) == 0 {
			errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeValidation, "no delivery method is available for this package").
				WithDetails(map[string]string{"package_id": pkg.ID}))
			continue
		}

		sel, ok := byPackage[pkg.ID]
		if !ok {
			errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeValidation, "select a delivery method").
				WithDetails(map[string]string{"package_id": pkg.ID}))
			continue
		}
		opt := pkg.OptionFor(sel.Method)
		if opt == nil || !opt.Available {
			errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeValidation, "selected delivery method is no longer available").
				WithDetails(map[string]string{"package_id": pkg.ID, "method": sel.Method.String()}))
			continue
		}
		if forced := pkg.ForcedOption(); forced != nil && forced.Method != sel.Method {
			errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery method is fixed for this package").
				WithDetails(map[string]string{"package_id": pkg.ID, "forced_method": forced.Method.String()}))
			continue
		}

		if sel.Method.LockerBased() {
			if err := validateLockerSelections(pkg, sel); err != nil {
				errs = multierr.Append(errs, err)
			}
			continue
		}
		if sel.UseCustomAddress {
			if sel.CustomAddress == nil || !sel.CustomAddress.Complete() {
				errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeValidation, "per-package delivery address is incomplete").
					WithDetails(map[string]string{"package_id": pkg.ID}))
			}
		}
	}
	return errs
}
