package rules

import (
	"strings"

	"splitter/pkg/models"
)

// Variant is a named sub-schedule of a vendor.
type Variant struct {
	Name     string
	Strategy Strategy
}

// ServiceTypeRule dispatches on Invoice.ServiceType for vendors that bill
// mutually exclusive services into separate tables.
type ServiceTypeRule struct {
	Variants []Variant
}

// BuildLines implements Strategy.
func (r ServiceTypeRule) BuildLines(inv models.Invoice) ([]models.LineItem, error) {
	serviceType := strings.ToLower(strings.TrimSpace(inv.ServiceType))
	for _, v := range r.Variants {
		if v.Name == serviceType {
			return v.Strategy.BuildLines(inv)
		}
	}
	return nil, &InvalidServiceTypeError{
		VendorID: inv.VendorID,
		Got:      serviceType,
		Allowed:  r.ServiceTypes(),
	}
}

// Tables implements Strategy.
func (r ServiceTypeRule) Tables() []TableSchema {
	var tables []TableSchema
	for _, v := range r.Variants {
		tables = append(tables, v.Strategy.Tables()...)
	}
	return tables
}

// ServiceTypes lists the accepted service types.
func (r ServiceTypeRule) ServiceTypes() []string {
	names := make([]string, len(r.Variants))
	for i, v := range r.Variants {
		names[i] = v.Name
	}
	return names
}
