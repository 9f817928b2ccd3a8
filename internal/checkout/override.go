package checkout

import (
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/types"
)

// Per-package custom delivery addresses. A package shipped by courier or
// freight may go somewhere other than the main checkout address; locker
// methods have no destination address so the override is meaningless there.

func enableCustomAddress(sel *PackageShippingSelection) error {
	if sel.Method.LockerBased() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "locker deliveries have no destination address").
			WithDetails(map[string]string{"package_id": sel.PackageID})
	}
	sel.UseCustomAddress = true
	return nil
}

// disableCustomAddress turns the override off but keeps the entered address
// so toggling back on within the same step restores it. The address is
// dropped for good when the shipping step is left.
func disableCustomAddress(sel *PackageShippingSelection) {
	sel.UseCustomAddress = false
}

func setCustomAddress(sel *PackageShippingSelection, addr types.Address) error {
	if err := enableCustomAddress(sel); err != nil {
		return err
	}
	sel.CustomAddress = &addr
	return nil
}

// dropDisabledOverrides discards addresses whose override is switched off.
// Called whenever the shipping step is exited in either direction.
func dropDisabledOverrides(selections []PackageShippingSelection) {
	for i := range selections {
		if !selections[i].UseCustomAddress {
			selections[i].CustomAddress = nil
		}
	}
}
