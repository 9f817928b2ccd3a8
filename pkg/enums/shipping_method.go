package enums

import "fmt"

// ShippingMethod is the closed set of delivery methods the storefront can
// render. Identifiers arriving from the pricing service that are not in this
// set are rejected at the response boundary instead of falling through to a
// generic treatment.
type ShippingMethod string

const (
	ShippingMethodCourier          ShippingMethod = "courier"
	ShippingMethodCourierCOD       ShippingMethod = "courier_cod"
	ShippingMethodPaczkomat        ShippingMethod = "paczkomat"
	ShippingMethodPickupPoint      ShippingMethod = "pickup_point"
	ShippingMethodOversizedFreight ShippingMethod = "oversized_freight"
)

var validShippingMethods = []ShippingMethod{
	ShippingMethodCourier,
	ShippingMethodCourierCOD,
	ShippingMethodPaczkomat,
	ShippingMethodPickupPoint,
	ShippingMethodOversizedFreight,
}

// String implements fmt.Stringer.
func (m ShippingMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ShippingMethod.
func (m ShippingMethod) IsValid() bool {
	for _, candidate := range validShippingMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseShippingMethod converts raw input into a ShippingMethod.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	for _, candidate := range validShippingMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping method %q", value)
}

// LockerBased reports whether the method delivers to a parcel locker and
// therefore has no destination address.
func (m ShippingMethod) LockerBased() bool {
	return m == ShippingMethodPaczkomat
}

// Label returns the human-readable name for the method. The switch is
// exhaustive over the valid set; unknown values never reach this point
// because ParseShippingMethod guards the response boundary.
func (m ShippingMethod) Label() string {
	switch m {
	case ShippingMethodCourier:
		return "Kurier"
	case ShippingMethodCourierCOD:
		return "Kurier za pobraniem"
	case ShippingMethodPaczkomat:
		return "Paczkomat"
	case ShippingMethodPickupPoint:
		return "Odbiór w punkcie"
	case ShippingMethodOversizedFreight:
		return "Transport gabarytowy"
	}
	return string(m)
}
