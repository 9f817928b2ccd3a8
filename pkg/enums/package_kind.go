package enums

import "fmt"

// PackageKind separates standard goods from oversized ("gabaryt") goods,
// which have different carrier eligibility.
type PackageKind string

const (
	PackageKindStandard  PackageKind = "standard"
	PackageKindOversized PackageKind = "oversized"
)

var validPackageKinds = []PackageKind{
	PackageKindStandard,
	PackageKindOversized,
}

// String implements fmt.Stringer.
func (k PackageKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PackageKind.
func (k PackageKind) IsValid() bool {
	for _, candidate := range validPackageKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePackageKind converts raw input into a PackageKind.
func ParsePackageKind(value string) (PackageKind, error) {
	for _, candidate := range validPackageKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package kind %q", value)
}
