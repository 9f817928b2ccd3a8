package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklepio/storefront-backend/pkg/db/models"
	"github.com/sklepio/storefront-backend/pkg/enums"
	"github.com/sklepio/storefront-backend/pkg/pricing"
)

func TestItemsKeyIgnoresLineOrder(t *testing.T) {
	t.Parallel()

	a := line("wh-a", false, 2, "10.00")
	b := line("wh-b", false, 1, "5.00")

	assert.Equal(t, itemsKey([]models.CartLine{a, b}), itemsKey([]models.CartLine{b, a}))
}

func TestItemsKeyChangesWithQuantity(t *testing.T) {
	t.Parallel()

	a := line("wh-a", false, 2, "10.00")
	before := itemsKey([]models.CartLine{a})
	a.Quantity = 3
	assert.NotEqual(t, before, itemsKey([]models.CartLine{a}))
}

func TestApplyQuotesMatchesByWarehouseAndKind(t *testing.T) {
	t.Parallel()

	packages := Partition([]models.CartLine{
		line("wh-a", false, 1, "10.00"),
		line("wh-a", true, 1, "200.00"),
	}, decimal.Zero)

	quotes := []pricing.PackageQuote{
		{
			WarehouseID:       "wh-a",
			Kind:              enums.PackageKindStandard,
			Options:           []pricing.ShippingOption{courierOption("12.99"), paczkomatOption("9.99")},
			LockerEligible:    true,
			LockerParcelCount: 2,
		},
	}
	packages = ApplyQuotes(packages, quotes)

	require.Len(t, packages, 2)
	assert.True(t, packages[0].Quoted)
	assert.Len(t, packages[0].Options, 2)
	assert.Equal(t, 2, packages[0].LockerParcelCount)
	assert.False(t, packages[1].Quoted, "unanswered package stays unquoted")
}

func TestReconcileSelectionsForcedOverridesPriorChoice(t *testing.T) {
	t.Parallel()

	forced := pricing.ShippingOption{
		Method:    enums.ShippingMethodOversizedFreight,
		Name:      "Transport gabarytowy",
		Price:     decimal.RequireFromString("149.00"),
		Available: true,
		Forced:    true,
	}
	packages := []Package{{
		ID:          "wh-a:oversized",
		WarehouseID: "wh-a",
		Options:     []pricing.ShippingOption{courierOption("12.99"), forced},
		Quoted:      true,
	}}
	prior := []PackageShippingSelection{{
		PackageID: "wh-a:oversized",
		Method:    enums.ShippingMethodCourier,
		Price:     decimal.RequireFromString("12.99"),
	}}

	out := ReconcileSelections(packages, prior)
	require.Len(t, out, 1)
	assert.Equal(t, enums.ShippingMethodOversizedFreight, out[0].Method)
	assert.True(t, out[0].Price.Equal(forced.Price))
}

func TestReconcileSelectionsKeepsSurvivingChoiceAndRefreshesPrice(t *testing.T) {
	t.Parallel()

	packages := []Package{{
		ID:          "wh-a:standard",
		WarehouseID: "wh-a",
		Options:     []pricing.ShippingOption{paczkomatOption("8.99"), courierOption("15.99")},
		Quoted:      true,
	}}
	prior := []PackageShippingSelection{{
		PackageID: "wh-a:standard",
		Method:    enums.ShippingMethodCourier,
		Price:     decimal.RequireFromString("12.99"),
	}}

	out := ReconcileSelections(packages, prior)
	require.Len(t, out, 1)
	assert.Equal(t, enums.ShippingMethodCourier, out[0].Method)
	assert.True(t, out[0].Price.Equal(decimal.RequireFromString("15.99")))
}

func TestReconcileSelectionsFallsBackWhenMethodDisappears(t *testing.T) {
	t.Parallel()

	packages := []Package{{
		ID:          "wh-a:standard",
		WarehouseID: "wh-a",
		Options:     []pricing.ShippingOption{courierOption("15.99")},
		Quoted:      true,
	}}
	prior := []PackageShippingSelection{{
		PackageID: "wh-a:standard",
		Method:    enums.ShippingMethodPaczkomat,
	}}

	out := ReconcileSelections(packages, prior)
	require.Len(t, out, 1)
	assert.Equal(t, enums.ShippingMethodCourier, out[0].Method)
}

func TestReconcileSelectionsNoAvailableOptionMeansNoSelection(t *testing.T) {
	t.Parallel()

	blocked := courierOption("15.99")
	blocked.Available = false
	blocked.BlockedReason = "poza strefą dostaw"
	packages := []Package{{
		ID:      "wh-a:standard",
		Options: []pricing.ShippingOption{blocked},
		Quoted:  true,
	}}

	out := ReconcileSelections(packages, nil)
	assert.Empty(t, out)
}

func TestReconcileSelectionsSizesLockerSlots(t *testing.T) {
	t.Parallel()

	packages := []Package{{
		ID:                "wh-a:standard",
		WarehouseID:       "wh-a",
		Options:           []pricing.ShippingOption{paczkomatOption("8.99")},
		LockerParcelCount: 3,
		LockerEligible:    true,
		Quoted:            true,
	}}
	prior := []PackageShippingSelection{{
		PackageID:        "wh-a:standard",
		Method:           enums.ShippingMethodPaczkomat,
		LockerSelections: []LockerSlotSelection{{SlotIndex: 0, LockerCode: "WAW01A"}},
	}}

	out := ReconcileSelections(packages, prior)
	require.Len(t, out, 1)
	require.Len(t, out[0].LockerSelections, 3)
	assert.Equal(t, "WAW01A", out[0].LockerSelections[0].LockerCode)
	assert.False(t, out[0].UseCustomAddress, "locker shipments cannot carry an address override")
}
