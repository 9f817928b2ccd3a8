package enums

import "fmt"

// CheckoutStep identifies one stage of the checkout flow.
type CheckoutStep int

const (
	StepAuthChoice CheckoutStep = 0
	StepAddress    CheckoutStep = 1
	StepShipping   CheckoutStep = 2
	StepPayment    CheckoutStep = 3
	StepSummary    CheckoutStep = 4
)

var checkoutStepNames = map[CheckoutStep]string{
	StepAuthChoice: "auth_choice",
	StepAddress:    "address",
	StepShipping:   "shipping",
	StepPayment:    "payment",
	StepSummary:    "summary",
}

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	if name, ok := checkoutStepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// IsValid reports whether the value is a known CheckoutStep.
func (s CheckoutStep) IsValid() bool {
	_, ok := checkoutStepNames[s]
	return ok
}
