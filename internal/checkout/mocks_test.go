package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/internal/cart"
	"github.com/sklepio/storefront-backend/pkg/addressbook"
	"github.com/sklepio/storefront-backend/pkg/coupons"
	"github.com/sklepio/storefront-backend/pkg/db/models"
	"github.com/sklepio/storefront-backend/pkg/enums"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/logger"
	"github.com/sklepio/storefront-backend/pkg/orderapi"
	"github.com/sklepio/storefront-backend/pkg/pricing"
	"github.com/sklepio/storefront-backend/pkg/types"
)

var errDependencyDown = pkgerrors.New(pkgerrors.CodeDependency, "collaborator unavailable")

type fakeCartRepo struct {
	lines map[string][]models.CartLine
}

func (f *fakeCartRepo) ListBySession(_ context.Context, sessionID string) ([]models.CartLine, error) {
	return f.lines[sessionID], nil
}

var _ cart.Repository = (*fakeCartRepo)(nil)

// fakeDraftStore mirrors the Redis store's marshal/unmarshal round trip so
// pointer aliasing bugs show up in tests the same way they would in
// production.
type fakeDraftStore struct {
	drafts map[string]string
	saves  int
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{drafts: map[string]string{}}
}

func (f *fakeDraftStore) Load(_ context.Context, sessionID string) (*Draft, error) {
	raw, ok := f.drafts[sessionID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (f *fakeDraftStore) Save(_ context.Context, draft *Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	f.drafts[draft.SessionID] = string(raw)
	f.saves++
	return nil
}

func (f *fakeDraftStore) Delete(_ context.Context, sessionID string) error {
	delete(f.drafts, sessionID)
	return nil
}

type fakeSelectionStore struct {
	ids     map[string][]uuid.UUID
	cleared int
}

func newFakeSelectionStore() *fakeSelectionStore {
	return &fakeSelectionStore{ids: map[string][]uuid.UUID{}}
}

func (f *fakeSelectionStore) SelectedItemIDs(_ context.Context, sessionID string) ([]uuid.UUID, error) {
	return f.ids[sessionID], nil
}

func (f *fakeSelectionStore) Clear(_ context.Context, sessionID string) error {
	delete(f.ids, sessionID)
	f.cleared++
	return nil
}

type fakeLock struct {
	held map[string]bool
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]bool{}}
}

func (f *fakeLock) Acquire(_ context.Context, sessionID string) (bool, error) {
	if f.held[sessionID] {
		return false, nil
	}
	f.held[sessionID] = true
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, sessionID string) error {
	delete(f.held, sessionID)
	return nil
}

type fakePricing struct {
	result *pricing.QuoteResult
	err    error
	calls  int
	// onCall lets a test mutate state mid-flight to exercise staleness.
	onCall func(call int)
}

func (f *fakePricing) ResolveShippingOptions(_ context.Context, _ []pricing.QuoteItem) (*pricing.QuoteResult, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCoupons struct {
	applied *coupons.AppliedCoupon
	err     error
	removed int
}

func (f *fakeCoupons) Apply(_ context.Context, _, _ string) (*coupons.AppliedCoupon, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.applied, nil
}

func (f *fakeCoupons) Remove(_ context.Context, _ string) error {
	f.removed++
	return nil
}

type fakeAddresses struct {
	created []types.Address
	saved   []addressbook.SavedAddress
	fail    bool
}

func (f *fakeAddresses) Create(_ context.Context, _ uuid.UUID, address types.Address) (uuid.UUID, error) {
	if f.fail {
		return uuid.Nil, errDependencyDown
	}
	f.created = append(f.created, address)
	return uuid.New(), nil
}

func (f *fakeAddresses) List(_ context.Context, _ uuid.UUID) ([]addressbook.SavedAddress, error) {
	return f.saved, nil
}

var _ addressbook.Store = (*fakeAddresses)(nil)

type fakeOrders struct {
	result  *orderapi.SubmitResult
	err     error
	calls   int
	lastReq orderapi.OrderPayload
}

func (f *fakeOrders) Submit(_ context.Context, payload orderapi.OrderPayload) (*orderapi.SubmitResult, error) {
	f.calls++
	f.lastReq = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func courierOption(price string) pricing.ShippingOption {
	return pricing.ShippingOption{
		Method:    enums.ShippingMethodCourier,
		Name:      "Kurier",
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
}

func paczkomatOption(price string) pricing.ShippingOption {
	return pricing.ShippingOption{
		Method:    enums.ShippingMethodPaczkomat,
		Name:      "Paczkomat",
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
}

func line(warehouseID string, oversized bool, qty int, unitPrice string) models.CartLine {
	var wh *string
	if warehouseID != "" {
		wh = &warehouseID
	}
	return models.CartLine{
		ID:          uuid.New(),
		SessionID:   "sess-1",
		VariantID:   uuid.New(),
		ProductID:   uuid.New(),
		ProductName: fmt.Sprintf("product %s", uuid.NewString()[:8]),
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(unitPrice),
		WarehouseID: wh,
		Oversized:   oversized,
	}
}

func testAddress() types.Address {
	return types.Address{
		FirstName:  "Anna",
		LastName:   "Kowalska",
		Phone:      "+48 600 100 200",
		Street:     "Marszałkowska 1",
		PostalCode: "00-001",
		City:       "Warszawa",
	}
}
