package checkout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sklepio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
)

// SlotItem is a quantity of one cart line assigned to a locker slot. A line
// may span slots, in which case it appears in more than one assignment.
type SlotItem struct {
	LineID    uuid.UUID `json:"line_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// SlotAssignment is the contents of one physical parcel.
type SlotAssignment struct {
	SlotIndex int        `json:"slot_index"`
	Items     []SlotItem `json:"items"`
}

// AllocateSlots distributes the package's units across n locker parcels.
// Units fill slots greedily at ceil(total/n) per slot, so every slot except
// possibly the last holds exactly the target count. The parcel count comes
// from the pricing service's volume model and is never recomputed here.
func AllocateSlots(lines []models.CartLine, n int) []SlotAssignment {
	if n < 1 {
		n = 1
	}

	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	if total == 0 {
		return []SlotAssignment{{SlotIndex: 0}}
	}

	perSlot := (total + n - 1) / n
	slots := make([]SlotAssignment, n)
	for i := range slots {
		slots[i].SlotIndex = i
	}

	cur := 0
	filled := 0
	for _, line := range lines {
		remaining := line.Quantity
		for remaining > 0 {
			if filled >= perSlot && cur < n-1 {
				cur++
				filled = 0
			}
			take := remaining
			if cur < n-1 && perSlot-filled < take {
				take = perSlot - filled
			}
			slots[cur].Items = append(slots[cur].Items, SlotItem{
				LineID:    line.ID,
				VariantID: line.VariantID,
				Quantity:  take,
			})
			filled += take
			remaining -= take
		}
	}
	return slots
}

// resizeLockerSelections grows or shrinks the slot list to n entries while
// preserving lockers already picked for surviving slot indexes.
func resizeLockerSelections(existing []LockerSlotSelection, n int) []LockerSlotSelection {
	if n < 1 {
		n = 1
	}
	out := make([]LockerSlotSelection, n)
	for i := range out {
		out[i].SlotIndex = i
	}
	for _, sel := range existing {
		if sel.SlotIndex >= 0 && sel.SlotIndex < n {
			out[sel.SlotIndex] = sel
		}
	}
	return out
}

// validateLockerSelections checks that every parcel of a locker shipment has
// a locker picked. With multiple parcels the error names the slot so the
// customer knows which parcel is incomplete.
func validateLockerSelections(pkg Package, sel PackageShippingSelection) error {
	n := pkg.LockerParcelCount
	if n < 1 {
		n = 1
	}
	picked := make(map[int]bool, len(sel.LockerSelections))
	for _, slot := range sel.LockerSelections {
		if strings.TrimSpace(slot.LockerCode) != "" {
			picked[slot.SlotIndex] = true
		}
	}
	for i := 0; i < n; i++ {
		if picked[i] {
			continue
		}
		if n == 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "select a parcel locker").
				WithDetails(map[string]string{"package_id": pkg.ID})
		}
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("select a parcel locker for parcel %d of %d", i+1, n)).
			WithDetails(map[string]string{"package_id": pkg.ID, "slot": fmt.Sprintf("%d", i)})
	}
	return nil
}
