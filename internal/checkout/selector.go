package checkout

import (
	"github.com/google/uuid"

	"github.com/sklepio/storefront-backend/pkg/db/models"
)

// SelectLines narrows the cart to the lines the customer ticked for
// checkout. The selection set can lag behind the cart: lines get removed,
// merged or re-added with new ids. When nothing in the set matches a live
// line the whole cart goes to checkout rather than an empty order.
func SelectLines(lines []models.CartLine, selectedIDs []uuid.UUID) []models.CartLine {
	if len(selectedIDs) == 0 {
		return lines
	}
	wanted := make(map[uuid.UUID]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		wanted[id] = true
	}

	out := make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		if wanted[line.ID] {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return lines
	}
	return out
}
