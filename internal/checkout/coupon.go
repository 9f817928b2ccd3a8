package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sklepio/storefront-backend/pkg/money"
)

// ApplyCoupon validates the code with the coupon service and records the
// discount on the draft. Applying a new code replaces the previous one.
func (s *service) ApplyCoupon(ctx context.Context, sessionID, code string) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	applied, err := s.coupons.Apply(ctx, sessionID, code)
	if err != nil {
		return nil, err
	}
	draft.CouponCode = applied.CouponCode
	draft.Discount = money.Round2(applied.Discount)
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}

// RemoveCoupon drops the coupon from the draft. Removing when none is
// applied is a no-op.
func (s *service) RemoveCoupon(ctx context.Context, sessionID string) (*State, error) {
	draft, lines, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.coupons.Remove(ctx, sessionID); err != nil {
		return nil, err
	}
	draft.CouponCode = ""
	draft.Discount = decimal.Zero
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return s.view(draft, lines), nil
}
