package types

import "strings"

// Address is the delivery address shape used across the checkout flow.
// Apartment is the only optional field.
type Address struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Street     string `json:"street" validate:"required"`
	Apartment  string `json:"apartment,omitempty"`
	PostalCode string `json:"postal_code" validate:"required"`
	City       string `json:"city" validate:"required"`
}

// Complete reports whether every required field carries a value.
func (a Address) Complete() bool {
	for _, field := range []string{a.FirstName, a.LastName, a.Phone, a.Street, a.PostalCode, a.City} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// MissingFields lists the required fields that are still empty, in a stable order.
func (a Address) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"phone", a.Phone},
		{"street", a.Street},
		{"postal_code", a.PostalCode},
		{"city", a.City},
	}
	missing := []string{}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}
