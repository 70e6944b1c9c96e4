package practice

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies a practice (tenant). The set is closed; new practices are
// added here together with their rules table entry.
type ID string

const (
	KrebsNottuln ID = "physio_krebs_nottuln"
	Default20Min ID = "physio_default_20min"
	Default30Min ID = "physio_default_30min"
)

// ErrUnknownPractice is returned by Parse for identifiers outside the known set.
var ErrUnknownPractice = errors.New("practice: unknown practice id")

var known = map[ID]struct{}{
	KrebsNottuln: {},
	Default20Min: {},
	Default30Min: {},
}

// All returns the known practice IDs in a stable order.
func All() []ID {
	return []ID{KrebsNottuln, Default20Min, Default30Min}
}

// Known reports whether id belongs to the closed set.
func Known(id ID) bool {
	_, ok := known[id]
	return ok
}

// Parse validates a raw identifier from the HTTP edge.
func Parse(raw string) (ID, error) {
	id := ID(strings.TrimSpace(raw))
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownPractice)
	}
	if !Known(id) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPractice, raw)
	}
	return id, nil
}

func (id ID) String() string { return string(id) }
