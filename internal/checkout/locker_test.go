package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklepio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
)

func slotQuantities(slots []SlotAssignment) []int {
	out := make([]int, len(slots))
	for i, slot := range slots {
		for _, item := range slot.Items {
			out[i] += item.Quantity
		}
	}
	return out
}

func TestAllocateSlotsSevenUnitsThreeParcels(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{
		line("wh-a", false, 4, "10.00"),
		line("wh-a", false, 3, "5.00"),
	}
	slots := AllocateSlots(lines, 3)

	require.Len(t, slots, 3)
	assert.Equal(t, []int{3, 3, 1}, slotQuantities(slots))
}

func TestAllocateSlotsLineSpansParcels(t *testing.T) {
	t.Parallel()

	single := line("wh-a", false, 7, "10.00")
	slots := AllocateSlots([]models.CartLine{single}, 3)

	require.Len(t, slots, 3)
	assert.Equal(t, []int{3, 3, 1}, slotQuantities(slots))
	for _, slot := range slots {
		require.Len(t, slot.Items, 1)
		assert.Equal(t, single.ID, slot.Items[0].LineID)
	}
}

func TestAllocateSlotsOverflowLandsInFinalParcel(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{line("wh-a", false, 10, "1.00")}
	slots := AllocateSlots(lines, 4)

	quantities := slotQuantities(slots)
	require.Len(t, quantities, 4)
	// ceil(10/4) = 3 per slot, remainder in the last.
	assert.Equal(t, []int{3, 3, 3, 1}, quantities)
}

func TestAllocateSlotsSingleParcel(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{
		line("wh-a", false, 2, "10.00"),
		line("wh-a", false, 5, "2.00"),
	}
	slots := AllocateSlots(lines, 1)

	require.Len(t, slots, 1)
	assert.Equal(t, []int{7}, slotQuantities(slots))
	require.Len(t, slots[0].Items, 2)
}

func TestValidateLockerSelectionsNamesIncompleteSlot(t *testing.T) {
	t.Parallel()

	pkg := Package{ID: "wh-a:standard", LockerParcelCount: 3}
	sel := PackageShippingSelection{
		PackageID: pkg.ID,
		LockerSelections: []LockerSlotSelection{
			{SlotIndex: 0, LockerCode: "WAW01A"},
			{SlotIndex: 1},
			{SlotIndex: 2, LockerCode: "WAW07C"},
		},
	}

	err := validateLockerSelections(pkg, sel)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Message(), "parcel 2 of 3")
}

func TestValidateLockerSelectionsSingleParcelMessage(t *testing.T) {
	t.Parallel()

	pkg := Package{ID: "wh-a:standard", LockerParcelCount: 1}
	err := validateLockerSelections(pkg, PackageShippingSelection{PackageID: pkg.ID})
	require.Error(t, err)
	assert.Equal(t, "select a parcel locker", pkgerrors.As(err).Message())
}

func TestResizeLockerSelectionsPreservesPickedSlots(t *testing.T) {
	t.Parallel()

	existing := []LockerSlotSelection{
		{SlotIndex: 0, LockerCode: "WAW01A"},
		{SlotIndex: 2, LockerCode: "KRK11B"},
	}
	resized := resizeLockerSelections(existing, 2)

	require.Len(t, resized, 2)
	assert.Equal(t, "WAW01A", resized[0].LockerCode)
	assert.Empty(t, resized[1].LockerCode)
}
