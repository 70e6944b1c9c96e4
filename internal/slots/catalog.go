package slots

import (
	"time"

	"github.com/wolfman30/practice-booking/internal/practice"
)

func admin(from, to ClockTime) BlockedRange {
	return BlockedRange{Start: from, End: to, Category: CategoryAdministrative}
}

func houseVisit(from, to ClockTime) BlockedRange {
	return BlockedRange{Start: from, End: to, Category: CategoryHouseVisit}
}

// flatWeek opens Monday to Friday with the same window and no blocked time.
func flatWeek(duration time.Duration, open, closing ClockTime) Rules {
	week := make(map[time.Weekday]DayPlan, 5)
	for d := time.Monday; d <= time.Friday; d++ {
		week[d] = DayPlan{Open: open, Close: closing}
	}
	return Rules{Duration: duration, Week: week}
}

// KrebsNottulnRules is the premium weekly plan. Sunday is closed.
func KrebsNottulnRules() Rules {
	return Rules{
		Duration: 20 * time.Minute,
		Week: map[time.Weekday]DayPlan{
			time.Monday: {
				Open:  Clock(8, 30),
				Close: Clock(18, 30),
				Blocked: []BlockedRange{
					admin(Clock(8, 0), Clock(8, 30)),
					admin(Clock(10, 30), Clock(11, 0)),
					admin(Clock(13, 0), Clock(14, 0)),
					admin(Clock(16, 0), Clock(16, 30)),
				},
			},
			time.Tuesday: {
				Open:  Clock(8, 30),
				Close: Clock(19, 0),
				Blocked: []BlockedRange{
					admin(Clock(16, 0), Clock(16, 20)),
					houseVisit(Clock(8, 30), Clock(14, 0)),
				},
			},
			time.Wednesday: {
				Open:  Clock(6, 30),
				Close: Clock(18, 0),
				Blocked: []BlockedRange{
					admin(Clock(6, 30), Clock(7, 0)),
					admin(Clock(9, 0), Clock(9, 30)),
					admin(Clock(11, 30), Clock(12, 0)),
					admin(Clock(14, 0), Clock(14, 30)),
					houseVisit(Clock(15, 0), Clock(18, 0)),
				},
			},
			time.Thursday: {
				Open:  Clock(8, 0),
				Close: Clock(19, 0),
				Blocked: []BlockedRange{
					admin(Clock(8, 0), Clock(8, 30)),
					admin(Clock(10, 30), Clock(11, 0)),
					admin(Clock(13, 0), Clock(14, 0)),
					admin(Clock(16, 0), Clock(16, 30)),
					admin(Clock(18, 30), Clock(19, 0)),
				},
			},
			time.Friday: {
				Open:  Clock(14, 0),
				Close: Clock(18, 30),
				Blocked: []BlockedRange{
					admin(Clock(14, 0), Clock(14, 30)),
					admin(Clock(16, 30), Clock(17, 0)),
				},
			},
			time.Saturday: {
				Open:  Clock(12, 0),
				Close: Clock(16, 0),
			},
		},
	}
}

// Default20Rules is the flat weekday plan with 20 minute slots.
func Default20Rules() Rules {
	return flatWeek(20*time.Minute, Clock(8, 0), Clock(18, 0))
}

// Default30Rules is the flat weekday plan with 30 minute slots.
func Default30Rules() Rules {
	return flatWeek(30*time.Minute, Clock(8, 0), Clock(18, 0))
}

// BuiltinRules returns a fresh copy of the built-in rules table.
func BuiltinRules() map[practice.ID]Rules {
	return map[practice.ID]Rules{
		practice.KrebsNottuln: KrebsNottulnRules(),
		practice.Default20Min: Default20Rules(),
		practice.Default30Min: Default30Rules(),
	}
}
