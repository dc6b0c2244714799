package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownVendorRule is returned when no strategy can serve a vendor ID.
	ErrUnknownVendorRule = errors.New("no allocation rule for vendor")

	// ErrMissingAccount is returned when a single-line custom entry has no
	// cost center or GL account.
	ErrMissingAccount = errors.New("cost center and GL account are required")

	// ErrInvalidServiceType is returned when a vendor with sub-schedules gets
	// no or an unknown service type.
	ErrInvalidServiceType = errors.New("invalid service type")
)

// UnknownVendorRuleError reports a vendor ID no strategy accepts.
type UnknownVendorRuleError struct {
	VendorID int64
}

// Error implements the error interface.
func (e *UnknownVendorRuleError) Error() string {
	return fmt.Sprintf("rules: no allocation rule for vendor_id=%d", e.VendorID)
}

// Is implements error matching for Go 1.13+ error handling.
func (e *UnknownVendorRuleError) Is(target error) bool {
	return target == ErrUnknownVendorRule
}

// MissingAccountError reports a custom concept without a split and without
// the CC/GL pair the single line needs.
type MissingAccountError struct {
	VendorID int64
	Table    string
	Concept  string
}

// Error implements the error interface.
func (e *MissingAccountError) Error() string {
	return fmt.Sprintf(
		"rules: custom concept %q for vendor_id=%d (%s) needs a CC and GL account, or a custom split",
		e.Concept, e.VendorID, e.Table,
	)
}

// Is implements error matching for Go 1.13+ error handling.
func (e *MissingAccountError) Is(target error) bool {
	return target == ErrMissingAccount
}

// InvalidServiceTypeError reports a missing or unsupported service type.
type InvalidServiceTypeError struct {
	VendorID int64
	Got      string
	Allowed  []string
}

// Error implements the error interface.
func (e *InvalidServiceTypeError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("rules: vendor_id=%d requires a service type (one of: %s)",
			e.VendorID, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("rules: service type %q is not valid for vendor_id=%d (one of: %s)",
		e.Got, e.VendorID, strings.Join(e.Allowed, ", "))
}

// Is implements error matching for Go 1.13+ error handling.
func (e *InvalidServiceTypeError) Is(target error) bool {
	return target == ErrInvalidServiceType
}
