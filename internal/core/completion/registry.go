package completion

import (
	"sort"
	"strings"
)

// Default aggregation names, matching the stock course outline levels.
var (
	DefaultRegisteredTypes = []string{"course", "chapter", "sequential", "vertical"}
	DefaultTrackedTypes    = []string{"course", "chapter"}
)

// Registry declares which aggregator types get their own persisted Aggregate
// row (registered) and which of those are eligible for lifecycle
// notifications (tracked). It is built once from configuration and passed to
// the components that need it; nothing looks it up at call time.
type Registry struct {
	registered map[string]struct{}
	tracked    map[string]struct{}
}

// NewRegistry builds a registry from the configured type names.
// Blank names are ignored and matching is case-insensitive.
func NewRegistry(registered, tracked []string) Registry {
	return Registry{
		registered: toSet(registered),
		tracked:    toSet(tracked),
	}
}

// DefaultRegistry returns the registry used when nothing is configured.
func DefaultRegistry() Registry {
	return NewRegistry(DefaultRegisteredTypes, DefaultTrackedTypes)
}

// IsRegistered reports whether aggregator blocks of this type are persisted.
func (r Registry) IsRegistered(aggregationName string) bool {
	_, ok := r.registered[NormalizeName(aggregationName)]
	return ok
}

// IsTracked reports whether changes to this type may be notified.
func (r Registry) IsTracked(aggregationName string) bool {
	_, ok := r.tracked[NormalizeName(aggregationName)]
	return ok
}

// Registered returns the registered names in sorted order.
func (r Registry) Registered() []string { return sortedKeys(r.registered) }

// Tracked returns the tracked names in sorted order.
func (r Registry) Tracked() []string { return sortedKeys(r.tracked) }

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = NormalizeName(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// NormalizeName is the canonical form of an aggregation name: trimmed and
// lower case.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
