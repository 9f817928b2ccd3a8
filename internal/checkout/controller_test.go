package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklepio/storefront-backend/pkg/addressbook"
	"github.com/sklepio/storefront-backend/pkg/coupons"
	"github.com/sklepio/storefront-backend/pkg/db/models"
	"github.com/sklepio/storefront-backend/pkg/enums"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/orderapi"
	"github.com/sklepio/storefront-backend/pkg/pricing"
)

const testSession = "sess-1"

type fixture struct {
	svc       Service
	cart      *fakeCartRepo
	drafts    *fakeDraftStore
	selection *fakeSelectionStore
	lock      *fakeLock
	pricing   *fakePricing
	coupons   *fakeCoupons
	addresses *fakeAddresses
	orders    *fakeOrders
}

func quoteFor(lines []models.CartLine) *pricing.QuoteResult {
	result := &pricing.QuoteResult{}
	for _, pkg := range Partition(lines, decimal.Zero) {
		result.Packages = append(result.Packages, pricing.PackageQuote{
			WarehouseID:       pkg.WarehouseID,
			Kind:              pkg.Kind,
			Options:           []pricing.ShippingOption{courierOption("12.99"), paczkomatOption("8.99")},
			LockerEligible:    true,
			LockerParcelCount: 1,
		})
	}
	return result
}

func newFixture(t *testing.T, lines []models.CartLine) *fixture {
	t.Helper()

	f := &fixture{
		cart:      &fakeCartRepo{lines: map[string][]models.CartLine{testSession: lines}},
		drafts:    newFakeDraftStore(),
		selection: newFakeSelectionStore(),
		lock:      newFakeLock(),
		pricing:   &fakePricing{result: quoteFor(lines)},
		coupons:   &fakeCoupons{},
		addresses: &fakeAddresses{},
		orders:    &fakeOrders{result: &orderapi.SubmitResult{OrderID: uuid.New(), PaymentURL: "https://pay.example/p/1"}},
	}
	svc, err := NewService(
		f.cart, f.drafts, f.selection, f.lock,
		f.pricing, f.coupons, f.addresses, f.orders,
		nil, quietLogger(), decimal.NewFromInt(300), 72*time.Hour,
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) advanceToShipping(t *testing.T) *State {
	t.Helper()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, testSession, nil)
	require.NoError(t, err)
	_, err = f.svc.SubmitAuthChoice(ctx, testSession, true)
	require.NoError(t, err)
	state, err := f.svc.SubmitAddress(ctx, testSession, AddressInput{
		Contact: ContactInfo{Email: "anna@example.com", FirstName: "Anna", LastName: "Kowalska", Phone: "+48 600 100 200"},
		Address: testAddress(),
	})
	require.NoError(t, err)
	require.Equal(t, enums.StepShipping, state.Draft.Step)
	return state
}

func (f *fixture) advanceToSummary(t *testing.T) *State {
	t.Helper()
	ctx := context.Background()

	f.advanceToShipping(t)
	_, err := f.svc.SubmitShipping(ctx, testSession)
	require.NoError(t, err)
	state, err := f.svc.SubmitPayment(ctx, testSession, PaymentInput{
		Method:      enums.PaymentMethodBlik,
		AcceptTerms: true,
	})
	require.NoError(t, err)
	require.Equal(t, enums.StepSummary, state.Draft.Step)
	return state
}

func TestStartCreatesDraftWithEagerQuote(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 2, "49.99")})
	state, err := f.svc.Start(context.Background(), testSession, nil)
	require.NoError(t, err)

	assert.Equal(t, enums.StepAuthChoice, state.Draft.Step)
	assert.True(t, state.Draft.Guest)
	assert.Equal(t, 1, f.pricing.calls)
	require.Len(t, state.Packages, 1)
	assert.True(t, state.Packages[0].Quoted)
	require.Len(t, state.Draft.Selections, 1)
	assert.Equal(t, enums.ShippingMethodCourier, state.Draft.Selections[0].Method)
}

func TestStartAuthenticatedSkipsAuthChoice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	customerID := uuid.New()
	state, err := f.svc.Start(context.Background(), testSession, &customerID)
	require.NoError(t, err)

	assert.Equal(t, enums.StepAddress, state.Draft.Step)
	assert.False(t, state.Draft.Guest)
	require.NotNil(t, state.Draft.CustomerID)
	assert.Equal(t, customerID, *state.Draft.CustomerID)
}

func TestStartEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	_, err := f.svc.Start(context.Background(), testSession, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestStartSwallowsEagerQuoteFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.pricing.err = errDependencyDown

	state, err := f.svc.Start(context.Background(), testSession, nil)
	require.NoError(t, err, "eager quote failure must not block checkout entry")
	require.Len(t, state.Packages, 1)
	assert.False(t, state.Packages[0].Quoted)
}

func TestRefreshShippingPropagatesFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)
	f.pricing.err = errDependencyDown

	_, err := f.svc.RefreshShipping(context.Background(), testSession)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestGuestFlowEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{
		line("wh-a", false, 2, "49.99"),
		line("wh-b", false, 1, "10.00"),
	})
	f.advanceToSummary(t)

	submission, err := f.svc.Submit(context.Background(), testSession)
	require.NoError(t, err)
	assert.True(t, submission.Redirect)
	assert.Equal(t, "https://pay.example/p/1", submission.PaymentURL)

	// Draft and cart selection are gone after a successful submission.
	_, err = f.svc.Current(context.Background(), testSession)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	assert.Equal(t, 1, f.selection.cleared)

	payload := f.orders.lastReq
	require.NotNil(t, payload.Guest)
	assert.Equal(t, "anna@example.com", payload.Guest.Email)
	require.NotNil(t, payload.ShippingAddress)
	assert.Len(t, payload.ItemIDs, 2)
	assert.Len(t, payload.Shipments, 2)
}

func TestSelectShippingMethodRejectsForcedMismatch(t *testing.T) {
	t.Parallel()

	lines := []models.CartLine{line("wh-a", true, 1, "500.00")}
	f := newFixture(t, lines)
	f.pricing.result = &pricing.QuoteResult{Packages: []pricing.PackageQuote{{
		WarehouseID: "wh-a",
		Kind:        enums.PackageKindOversized,
		Options: []pricing.ShippingOption{{
			Method:    enums.ShippingMethodOversizedFreight,
			Name:      "Transport gabarytowy",
			Price:     decimal.RequireFromString("149.00"),
			Available: true,
			Forced:    true,
		}},
	}}}
	f.advanceToShipping(t)

	_, err := f.svc.SelectShippingMethod(context.Background(), testSession, "wh-a:oversized", enums.ShippingMethodCourier)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestSelectShippingMethodUnknownPackage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)

	_, err := f.svc.SelectShippingMethod(context.Background(), testSession, "wh-z:standard", enums.ShippingMethodCourier)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSelectShippingMethodSwitchToLockerClearsOverride(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)
	ctx := context.Background()

	_, err := f.svc.SetCustomAddress(ctx, testSession, "wh-a:standard", testAddress())
	require.NoError(t, err)

	state, err := f.svc.SelectShippingMethod(ctx, testSession, "wh-a:standard", enums.ShippingMethodPaczkomat)
	require.NoError(t, err)

	sel := state.Draft.SelectionFor("wh-a:standard")
	require.NotNil(t, sel)
	assert.False(t, sel.UseCustomAddress)
	assert.Nil(t, sel.CustomAddress)
	require.Len(t, sel.LockerSelections, 1)
}

func TestSubmitShippingRequiresLockerCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)
	ctx := context.Background()

	_, err := f.svc.SelectShippingMethod(ctx, testSession, "wh-a:standard", enums.ShippingMethodPaczkomat)
	require.NoError(t, err)

	_, err = f.svc.SubmitShipping(ctx, testSession)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.SelectLockerSlot(ctx, testSession, "wh-a:standard", 0, "WAW01A", "Marszałkowska 1")
	require.NoError(t, err)

	state, err := f.svc.SubmitShipping(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, enums.StepPayment, state.Draft.Step)
}

func TestCustomAddressOverrideOnLockerMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)
	ctx := context.Background()

	_, err := f.svc.SelectShippingMethod(ctx, testSession, "wh-a:standard", enums.ShippingMethodPaczkomat)
	require.NoError(t, err)

	_, err = f.svc.SetCustomAddressEnabled(ctx, testSession, "wh-a:standard", true)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestDisabledOverrideSurvivesWithinStepDroppedOnExit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)
	ctx := context.Background()

	_, err := f.svc.SetCustomAddress(ctx, testSession, "wh-a:standard", testAddress())
	require.NoError(t, err)
	state, err := f.svc.SetCustomAddressEnabled(ctx, testSession, "wh-a:standard", false)
	require.NoError(t, err)

	sel := state.Draft.SelectionFor("wh-a:standard")
	require.NotNil(t, sel)
	assert.False(t, sel.UseCustomAddress)
	assert.NotNil(t, sel.CustomAddress, "address is kept while still on the shipping step")

	state, err = f.svc.SubmitShipping(ctx, testSession)
	require.NoError(t, err)
	sel = state.Draft.SelectionFor("wh-a:standard")
	require.NotNil(t, sel)
	assert.Nil(t, sel.CustomAddress, "leaving the step discards the disabled override")
}

func TestBackClampsAtAddressStep(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)
	ctx := context.Background()

	state, err := f.svc.Back(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, enums.StepAddress, state.Draft.Step)

	state, err = f.svc.Back(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, enums.StepAddress, state.Draft.Step, "back never reaches the auth choice again")
}

func TestEditFromSummaryPreservesLaterSteps(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToSummary(t)
	ctx := context.Background()

	state, err := f.svc.Edit(ctx, testSession, enums.StepAddress)
	require.NoError(t, err)
	assert.Equal(t, enums.StepAddress, state.Draft.Step)
	assert.Equal(t, enums.PaymentMethodBlik, state.Draft.PaymentMethod, "payment choice survives the edit")
	assert.NotEmpty(t, state.Draft.Selections, "shipping choices survive the edit")

	// Resubmitting the edited step moves forward one step, not back to zero.
	state, err = f.svc.SubmitAddress(ctx, testSession, AddressInput{
		Contact: state.Draft.Contact,
		Address: testAddress(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.StepAddress+1, state.Draft.Step)
}

func TestEditRequiresSummary(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)

	_, err := f.svc.Edit(context.Background(), testSession, enums.StepAddress)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestPaymentCancelledReturnsToPaymentStep(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToSummary(t)

	state, err := f.svc.PaymentCancelled(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, enums.StepPayment, state.Draft.Step)
	assert.Equal(t, enums.PaymentMethodBlik, state.Draft.PaymentMethod)
}

func TestStaleQuoteResponseDiscarded(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)
	ctx := context.Background()

	// While the quote is in flight a newer fetch claims the draft.
	f.pricing.onCall = func(int) {
		draft, err := f.drafts.Load(ctx, testSession)
		if err != nil {
			panic(err)
		}
		draft.QuoteSeq++
		if err := f.drafts.Save(ctx, draft); err != nil {
			panic(err)
		}
	}
	before, err := f.drafts.Load(ctx, testSession)
	require.NoError(t, err)

	_, err = f.svc.RefreshShipping(ctx, testSession)
	require.NoError(t, err)

	after, err := f.drafts.Load(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, before.AppliedQuoteSeq, after.AppliedQuoteSeq, "superseded response must not apply")
}

func TestApplyAndRemoveCoupon(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "100.00")})
	f.coupons.applied = &coupons.AppliedCoupon{CouponCode: "LATO10", Discount: decimal.RequireFromString("10.00")}
	f.advanceToShipping(t)
	ctx := context.Background()

	state, err := f.svc.ApplyCoupon(ctx, testSession, "LATO10")
	require.NoError(t, err)
	assert.Equal(t, "LATO10", state.Draft.CouponCode)
	assert.True(t, state.Totals.Discount.Equal(decimal.RequireFromString("10.00")))

	// Applying the same code again yields the same discount, not a second one.
	state, err = f.svc.ApplyCoupon(ctx, testSession, "LATO10")
	require.NoError(t, err)
	assert.Equal(t, "LATO10", state.Draft.CouponCode)
	assert.True(t, state.Totals.Discount.Equal(decimal.RequireFromString("10.00")))

	state, err = f.svc.RemoveCoupon(ctx, testSession)
	require.NoError(t, err)
	assert.Empty(t, state.Draft.CouponCode)
	assert.True(t, state.Totals.Discount.IsZero())

	// Removing again stays a no-op.
	_, err = f.svc.RemoveCoupon(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, 2, f.coupons.removed)
}

func TestSavedAddressesListsAddressBook(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	recordID := uuid.New()
	f.addresses.saved = []addressbook.SavedAddress{{ID: recordID, Address: testAddress(), Default: true}}
	customerID := uuid.New()
	_, err := f.svc.Start(context.Background(), testSession, &customerID)
	require.NoError(t, err)

	saved, err := f.svc.SavedAddresses(context.Background(), testSession)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, recordID, saved[0].ID)
	assert.True(t, saved[0].Default)
}

func TestSavedAddressesRequireAccountSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	_, err := f.svc.Start(context.Background(), testSession, nil)
	require.NoError(t, err)

	_, err = f.svc.SavedAddresses(context.Background(), testSession)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestSubmitRequiresTermsAcceptance(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToShipping(t)
	ctx := context.Background()

	_, err := f.svc.SubmitShipping(ctx, testSession)
	require.NoError(t, err)
	_, err = f.svc.SubmitPayment(ctx, testSession, PaymentInput{Method: enums.PaymentMethodCard, AcceptTerms: false})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, testSession)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestSubmitConflictsWhileInFlight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToSummary(t)

	f.lock.held[testSession] = true
	_, err := f.svc.Submit(context.Background(), testSession)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestSubmitRejectionKeepsDraft(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []models.CartLine{line("wh-a", false, 1, "10.00")})
	f.advanceToSummary(t)
	f.orders.err = pkgerrors.New(pkgerrors.CodeSubmission, "coupon expired").
		WithDetails(map[string]string{"coupon_code": "invalid"})

	_, err := f.svc.Submit(context.Background(), testSession)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeSubmission, typed.Code())
	assert.Equal(t, "coupon expired", typed.Message())

	// The customer can fix the problem and resubmit.
	state, err := f.svc.Current(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, enums.StepSummary, state.Draft.Step)
	assert.False(t, f.lock.held[testSession], "lock released after a rejection")
}
