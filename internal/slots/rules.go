package slots

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRules is wrapped by Validate failures.
var ErrInvalidRules = errors.New("slots: invalid rules")

// BlockedRange removes [Start, End) from bookable treatment time.
type BlockedRange struct {
	Start    ClockTime `json:"start"`
	End      ClockTime `json:"end"`
	Category Category  `json:"category"`
}

// Contains reports whether t lies in the range; End is exclusive.
func (b BlockedRange) Contains(t ClockTime) bool {
	return b.Start <= t && t < b.End
}

// DayPlan is the opening window of one weekday.
type DayPlan struct {
	Open    ClockTime      `json:"open"`
	Close   ClockTime      `json:"close"`
	Blocked []BlockedRange `json:"blocked,omitempty"`
}

// Rules is a practice's weekly calendar. A weekday missing from Week is closed.
type Rules struct {
	Duration time.Duration
	Week     map[time.Weekday]DayPlan
}

// Day returns the plan for a weekday.
func (r Rules) Day(day time.Weekday) (DayPlan, bool) {
	plan, ok := r.Week[day]
	return plan, ok
}

// Validate checks rules submitted through the admin API.
func (r Rules) Validate() error {
	if r.Duration <= 0 || r.Duration%time.Minute != 0 {
		return fmt.Errorf("%w: duration must be a positive number of minutes", ErrInvalidRules)
	}
	for day, plan := range r.Week {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRules, day)
		}
		if plan.Open < 0 || plan.Close > endOfDay || plan.Open > plan.Close {
			return fmt.Errorf("%w: %s window %s-%s", ErrInvalidRules, day, plan.Open, plan.Close)
		}
		for _, b := range plan.Blocked {
			if b.Start < 0 || b.End > endOfDay || b.Start >= b.End {
				return fmt.Errorf("%w: %s blocked range %s-%s", ErrInvalidRules, day, b.Start, b.End)
			}
			switch b.Category {
			case CategoryAdministrative, CategoryHouseVisit:
			default:
				return fmt.Errorf("%w: %s blocked range category %q", ErrInvalidRules, day, b.Category)
			}
		}
	}
	return nil
}

type rulesJSON struct {
	DurationMinutes int                `json:"duration_minutes"`
	Week            map[string]DayPlan `json:"week"`
}

// MarshalJSON renders the week keyed by lower-case weekday name.
func (r Rules) MarshalJSON() ([]byte, error) {
	out := rulesJSON{
		DurationMinutes: int(r.Duration / time.Minute),
		Week:            make(map[string]DayPlan, len(r.Week)),
	}
	for day, plan := range r.Week {
		out.Week[strings.ToLower(day.String())] = plan
	}
	return json.Marshal(out)
}

func (r *Rules) UnmarshalJSON(data []byte) error {
	var in rulesJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	week := make(map[time.Weekday]DayPlan, len(in.Week))
	for name, plan := range in.Week {
		day, ok := parseWeekday(name)
		if !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidRules, name)
		}
		week[day] = plan
	}
	r.Duration = time.Duration(in.DurationMinutes) * time.Minute
	r.Week = week
	return nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, true
		}
	}
	return 0, false
}
