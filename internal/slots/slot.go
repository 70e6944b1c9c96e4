package slots

import "time"

// Category tags what a slot is used for.
type Category string

const (
	CategoryTreatment      Category = "treatment"
	CategoryAdministrative Category = "administrative"
	CategoryHouseVisit     Category = "house-visit"
)

// Slot is a half-open interval [Start, End) of one practice day.
type Slot struct {
	Start           time.Time `json:"start_time"`
	End             time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Category        Category  `json:"category"`
	Bookable        bool      `json:"bookable"`
}

// NewSlot derives Bookable from the category; only treatment slots can be booked.
func NewSlot(start time.Time, duration time.Duration, category Category) Slot {
	return Slot{
		Start:           start,
		End:             start.Add(duration),
		DurationMinutes: int(duration / time.Minute),
		Category:        category,
		Bookable:        category == CategoryTreatment,
	}
}
