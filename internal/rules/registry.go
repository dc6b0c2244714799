package rules

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"splitter/internal/logger"
	"splitter/pkg/models"
)

// Registry maps vendor IDs to strategies. It is built once and never
// mutated afterwards, so a single instance can be shared freely.
type Registry struct {
	rules    map[int64]Strategy
	fallback Strategy
	schemas  map[string][]string
	log      zerolog.Logger
}

// Option customizes a Registry at construction.
type Option func(*Registry)

// WithRule registers s for vendorID, replacing a built-in rule.
func WithRule(vendorID int64, s Strategy) Option {
	return func(r *Registry) {
		r.rules[vendorID] = s
	}
}

// WithFallback replaces the strategy used for vendors without a rule. A nil
// fallback makes unknown vendors an error.
func WithFallback(s Strategy) Option {
	return func(r *Registry) {
		r.fallback = s
	}
}

// NewRegistry builds the registry with the built-in vendor rules and the
// generic fallback, then applies opts.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rules:    builtinRules(),
		fallback: GenericRule{},
		schemas:  make(map[string][]string),
		log:      logger.WithComponent("rules"),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, s := range r.rules {
		for _, t := range s.Tables() {
			r.schemas[t.Name] = t.Headers
		}
	}

	r.log.Debug().
		Int("vendors", len(r.rules)).
		Int("tables", len(r.schemas)).
		Msg("Rule registry built")

	return r
}

// BuildLines evaluates the rule of inv.VendorID, or the fallback.
func (r *Registry) BuildLines(inv models.Invoice) ([]models.LineItem, error) {
	const op = "BuildLines"

	if inv.VendorID <= 0 {
		return nil, &UnknownVendorRuleError{VendorID: inv.VendorID}
	}

	s, ok := r.rules[inv.VendorID]
	if !ok {
		if r.fallback == nil {
			return nil, &UnknownVendorRuleError{VendorID: inv.VendorID}
		}
		s = r.fallback
		r.log.Debug().Int64("vendor_id", inv.VendorID).Msg("No dedicated rule, using generic fallback")
	}

	lines, err := s.BuildLines(inv)
	if err != nil {
		return nil, fmt.Errorf("%s: vendor_id=%d: %w", op, inv.VendorID, err)
	}

	r.log.Debug().
		Int64("vendor_id", inv.VendorID).
		Str("bill_number", inv.BillNumber).
		Int("lines", len(lines)).
		Msg("Lines built")

	return lines, nil
}

// HeadersFor returns the header schema of table. Tables without a
// registered schema (generic fallback tables) get the base headers.
func (r *Registry) HeadersFor(table string) []string {
	if headers, ok := r.schemas[table]; ok {
		out := make([]string, len(headers))
		copy(out, headers)
		return out
	}
	return models.BaseHeaders()
}

// Strategy returns the dedicated rule of vendorID.
func (r *Registry) Strategy(vendorID int64) (Strategy, bool) {
	s, ok := r.rules[vendorID]
	return s, ok
}

// VendorIDs lists the vendors with dedicated rules in ascending order.
func (r *Registry) VendorIDs() []int64 {
	ids := make([]int64, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
