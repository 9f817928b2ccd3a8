package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklepio/storefront-backend/pkg/db/models"
	"github.com/sklepio/storefront-backend/pkg/enums"
	"github.com/sklepio/storefront-backend/pkg/money"
)

func TestPartitionGroupsByWarehouseAndKind(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{
		line("wh-a", false, 1, "10.00"),
		line("wh-b", false, 2, "5.00"),
		line("wh-a", true, 1, "99.00"),
		line("wh-a", false, 3, "1.50"),
	}
	packages := Partition(lines, decimal.Zero)

	require.Len(t, packages, 3)
	assert.Equal(t, "wh-a:standard", packages[0].ID)
	assert.Equal(t, "wh-b:standard", packages[1].ID)
	assert.Equal(t, "wh-a:oversized", packages[2].ID)
	assert.Equal(t, enums.PackageKindOversized, packages[2].Kind)
	assert.Len(t, packages[0].Lines, 2)
	assert.Equal(t, 4, packages[0].TotalQuantity())
}

func TestPartitionDefaultWarehouseBucket(t *testing.T) {
	t.Parallel()

	packages := Partition([]models.CartLine{line("", false, 1, "10.00")}, decimal.Zero)
	require.Len(t, packages, 1)
	assert.Equal(t, DefaultWarehouseID, packages[0].WarehouseID)
	assert.Equal(t, "default:standard", packages[0].ID)
}

func TestPartitionSubtotalsSumToCartSubtotal(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{
		line("wh-a", false, 3, "33.33"),
		line("wh-b", false, 7, "0.07"),
		line("wh-b", true, 1, "123.45"),
		line("", false, 2, "19.99"),
	}
	packages := Partition(lines, decimal.Zero)

	var cartTotal decimal.Decimal
	for _, l := range lines {
		cartTotal = money.Sum(cartTotal, money.Line(l.UnitPrice, l.Quantity))
	}
	assert.True(t, CartSubtotal(packages).Equal(cartTotal),
		"package subtotals %s must sum to cart subtotal %s", CartSubtotal(packages), cartTotal)
}

func TestPartitionFreeShippingThreshold(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{
		line("wh-a", false, 1, "350.00"),
		line("wh-b", false, 1, "100.00"),
	}
	packages := Partition(lines, decimal.NewFromInt(300))

	require.Len(t, packages, 2)
	assert.True(t, packages[0].FreeShipping)
	assert.True(t, packages[0].FreeShippingDelta.IsZero())
	assert.False(t, packages[1].FreeShipping)
	assert.True(t, packages[1].FreeShippingDelta.Equal(decimal.NewFromInt(200)))
}

func TestPartitionStableOrderAcrossQuantityChanges(t *testing.T) {
	t.Parallel()

	first := line("wh-a", false, 1, "10.00")
	second := line("wh-b", false, 1, "10.00")

	before := Partition([]models.CartLine{first, second}, decimal.Zero)
	second.Quantity = 5
	after := Partition([]models.CartLine{first, second}, decimal.Zero)

	require.Len(t, before, 2)
	require.Len(t, after, 2)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[1].ID, after[1].ID)
}
