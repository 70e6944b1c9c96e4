package slots

import "time"

// classifiers are evaluated top-down; the first category whose ranges contain
// the slot start wins. House visits outrank administrative blocks.
var classifiers = []Category{
	CategoryHouseVisit,
	CategoryAdministrative,
}

// Generate partitions the day's opening window into consecutive slots of
// rules.Duration. A trailing remainder shorter than the duration is dropped.
func Generate(rules Rules, date time.Time) []Slot {
	plan, ok := rules.Day(date.Weekday())
	if !ok || rules.Duration <= 0 {
		return []Slot{}
	}
	step := ClockTime(rules.Duration / time.Minute)
	if step <= 0 {
		return []Slot{}
	}

	out := []Slot{}
	for cursor := plan.Open; cursor+step <= plan.Close; cursor += step {
		out = append(out, NewSlot(cursor.On(date), rules.Duration, classify(plan.Blocked, cursor)))
	}
	return out
}

func classify(blocked []BlockedRange, start ClockTime) Category {
	for _, category := range classifiers {
		for _, b := range blocked {
			if b.Category == category && b.Contains(start) {
				return category
			}
		}
	}
	return CategoryTreatment
}
