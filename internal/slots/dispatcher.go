package slots

import (
	"time"

	"github.com/wolfman30/practice-booking/internal/practice"
)

// Dispatcher maps a practice to its rules and generates the day's catalog.
// It is immutable once built and safe for concurrent use.
type Dispatcher struct {
	rules map[practice.ID]Rules
}

// NewDispatcher builds a dispatcher over the given rules table.
func NewDispatcher(rules map[practice.ID]Rules) *Dispatcher {
	table := make(map[practice.ID]Rules, len(rules))
	for id, r := range rules {
		table[id] = r
	}
	return &Dispatcher{rules: table}
}

// DefaultDispatcher serves the built-in rules table.
func DefaultDispatcher() *Dispatcher {
	return &Dispatcher{rules: BuiltinRules()}
}

// SlotsFor returns the catalog for a practice and day. Unknown practices get
// an empty catalog, never an error.
func (d *Dispatcher) SlotsFor(id practice.ID, date time.Time) []Slot {
	rules, ok := d.rules[id]
	if !ok {
		return []Slot{}
	}
	return Generate(rules, date)
}

// Rules returns the rules configured for a practice.
func (d *Dispatcher) Rules(id practice.ID) (Rules, bool) {
	r, ok := d.rules[id]
	return r, ok
}

// WithRules returns a copy of the dispatcher with one entry replaced.
func (d *Dispatcher) WithRules(id practice.ID, rules Rules) *Dispatcher {
	next := NewDispatcher(d.rules)
	next.rules[id] = rules
	return next
}
