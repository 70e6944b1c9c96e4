package slots

import (
	"reflect"
	"testing"
	"time"

	"github.com/wolfman30/practice-booking/internal/practice"
)

// 2025-01-06 is a Monday.
func day(offset int) time.Time {
	return time.Date(2025, 1, 6+offset, 0, 0, 0, 0, time.UTC)
}

func countCategories(slots []Slot) map[Category]int {
	out := map[Category]int{}
	for _, s := range slots {
		out[s.Category]++
	}
	return out
}

func TestGenerate_FlatWindow(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		want  int
	}{
		{"20 minute practice", Default20Rules(), 30},
		{"30 minute practice", Default30Rules(), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.rules, day(0))
			if len(got) != tt.want {
				t.Fatalf("expected %d slots, got %d", tt.want, len(got))
			}
			for i, s := range got {
				if !s.Bookable || s.Category != CategoryTreatment {
					t.Fatalf("slot %d should be bookable treatment: %+v", i, s)
				}
				if s.End.Sub(s.Start) != tt.rules.Duration {
					t.Fatalf("slot %d has wrong length %s", i, s.End.Sub(s.Start))
				}
				if i > 0 && !got[i-1].End.Equal(s.Start) {
					t.Fatalf("slot %d not contiguous with previous", i)
				}
			}
			if want := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC); !got[0].Start.Equal(want) {
				t.Fatalf("first slot at %s, want %s", got[0].Start, want)
			}
			if want := time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC); !got[len(got)-1].End.Equal(want) {
				t.Fatalf("last slot ends %s, want %s", got[len(got)-1].End, want)
			}
		})
	}
}

func TestGenerate_ClosedDays(t *testing.T) {
	if got := Generate(Default20Rules(), day(5)); len(got) != 0 {
		t.Fatalf("expected no Saturday slots for default practice, got %d", len(got))
	}
	if got := Generate(KrebsNottulnRules(), day(6)); len(got) != 0 {
		t.Fatalf("expected no Sunday slots, got %d", len(got))
	}
	if got := Generate(Rules{Duration: 0, Week: Default20Rules().Week}, day(0)); len(got) != 0 {
		t.Fatalf("expected zero duration to produce nothing, got %d", len(got))
	}
	inverted := Rules{Duration: 20 * time.Minute, Week: map[time.Weekday]DayPlan{
		time.Monday: {Open: Clock(18, 0), Close: Clock(8, 0)},
	}}
	if got := Generate(inverted, day(0)); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice for open >= close, got %v", got)
	}
}

func TestGenerate_DropsRemainder(t *testing.T) {
	rules := Rules{Duration: 30 * time.Minute, Week: map[time.Weekday]DayPlan{
		time.Monday: {Open: Clock(8, 0), Close: Clock(9, 10)},
	}}
	got := Generate(rules, day(0))
	if len(got) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(got))
	}
	if got[1].End.Format("15:04") != "09:00" {
		t.Fatalf("expected last slot to end at 09:00, got %s", got[1].End.Format("15:04"))
	}
}

func TestGenerate_KrebsMonday(t *testing.T) {
	got := Generate(KrebsNottulnRules(), day(0))
	if len(got) != 30 {
		t.Fatalf("expected 30 slots, got %d", len(got))
	}
	admin := map[string]bool{}
	for _, s := range got {
		if s.Category == CategoryAdministrative {
			admin[s.Start.Format("15:04")] = true
		}
	}
	for _, want := range []string{"10:30", "10:50", "13:10", "13:30", "13:50", "16:10"} {
		if !admin[want] {
			t.Fatalf("expected %s to be administrative, got %v", want, admin)
		}
	}
	if len(admin) != 6 {
		t.Fatalf("expected 6 administrative slots, got %d", len(admin))
	}
	// 12:50-13:10 straddles the admin block but starts outside it.
	for _, s := range got {
		if s.Start.Format("15:04") == "12:50" && s.Category != CategoryTreatment {
			t.Fatalf("12:50 slot should be treatment, got %s", s.Category)
		}
	}
	if got[0].Category != CategoryTreatment || got[0].Start.Format("15:04") != "08:30" {
		t.Fatalf("unexpected first slot %+v", got[0])
	}
}

func TestGenerate_KrebsTuesdayHouseVisits(t *testing.T) {
	got := Generate(KrebsNottulnRules(), day(1))
	if len(got) != 31 {
		t.Fatalf("expected 31 slots, got %d", len(got))
	}
	counts := countCategories(got)
	if counts[CategoryHouseVisit] != 17 {
		t.Fatalf("expected 17 house-visit slots, got %d", counts[CategoryHouseVisit])
	}
	if counts[CategoryAdministrative] != 1 {
		t.Fatalf("expected 1 administrative slot, got %d", counts[CategoryAdministrative])
	}
	for _, s := range got {
		if s.Category == CategoryHouseVisit && s.Bookable {
			t.Fatalf("house-visit slot must not be bookable: %+v", s)
		}
		if s.Start.Format("15:04") == "14:10" && s.Category != CategoryTreatment {
			t.Fatalf("14:10 should be the first treatment slot, got %s", s.Category)
		}
	}
	if last := got[len(got)-1]; last.End.Format("15:04") != "18:50" {
		t.Fatalf("expected last slot to end 18:50, got %s", last.End.Format("15:04"))
	}
}

func TestGenerate_KrebsOtherDays(t *testing.T) {
	tests := []struct {
		name       string
		offset     int
		total      int
		admin      int
		houseVisit int
	}{
		{"wednesday", 2, 34, 6, 8},
		{"thursday", 3, 33, 9, 0},
		{"friday", 4, 13, 3, 0},
		{"saturday", 5, 12, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(KrebsNottulnRules(), day(tt.offset))
			if len(got) != tt.total {
				t.Fatalf("expected %d slots, got %d", tt.total, len(got))
			}
			counts := countCategories(got)
			if counts[CategoryAdministrative] != tt.admin {
				t.Fatalf("expected %d admin slots, got %d", tt.admin, counts[CategoryAdministrative])
			}
			if counts[CategoryHouseVisit] != tt.houseVisit {
				t.Fatalf("expected %d house-visit slots, got %d", tt.houseVisit, counts[CategoryHouseVisit])
			}
		})
	}
}

func TestGenerate_HouseVisitOutranksAdministrative(t *testing.T) {
	rules := Rules{Duration: 20 * time.Minute, Week: map[time.Weekday]DayPlan{
		time.Monday: {
			Open:  Clock(9, 0),
			Close: Clock(10, 0),
			Blocked: []BlockedRange{
				admin(Clock(9, 0), Clock(10, 0)),
				houseVisit(Clock(9, 20), Clock(9, 40)),
			},
		},
	}}
	got := Generate(rules, day(0))
	want := []Category{CategoryAdministrative, CategoryHouseVisit, CategoryAdministrative}
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(got))
	}
	for i, c := range want {
		if got[i].Category != c {
			t.Fatalf("slot %d category = %s, want %s", i, got[i].Category, c)
		}
	}
}

func TestGenerate_UsesCalendarDayOfInput(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	got := Generate(Default20Rules(), time.Date(2025, 1, 6, 0, 30, 0, 0, berlin))
	if len(got) == 0 {
		t.Fatalf("expected Monday slots")
	}
	if got[0].Start.Location() != time.UTC || got[0].Start.Day() != 6 || got[0].Start.Hour() != 8 {
		t.Fatalf("expected wall-clock 08:00 on Jan 6 in UTC, got %s", got[0].Start)
	}
}

func TestNewSlotBookableFollowsCategory(t *testing.T) {
	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	for _, c := range []Category{CategoryTreatment, CategoryAdministrative, CategoryHouseVisit} {
		s := NewSlot(start, 20*time.Minute, c)
		if s.Bookable != (c == CategoryTreatment) {
			t.Fatalf("category %s bookable = %v", c, s.Bookable)
		}
		if s.DurationMinutes != 20 {
			t.Fatalf("expected 20 minutes, got %d", s.DurationMinutes)
		}
	}
}

func TestGenerate_RepeatableAcrossWeek(t *testing.T) {
	d := DefaultDispatcher()
	builtin := BuiltinRules()
	for _, id := range practice.All() {
		for offset := 0; offset < 7; offset++ {
			date := day(offset)
			first := d.SlotsFor(id, date)
			second := d.SlotsFor(id, date)
			if !reflect.DeepEqual(first, second) {
				t.Fatalf("%s %s: dispatcher catalogs differ between calls", id, date.Weekday())
			}
			a := Generate(builtin[id], date)
			b := Generate(builtin[id], date)
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("%s %s: generated catalogs differ between calls", id, date.Weekday())
			}
			if !reflect.DeepEqual(first, a) {
				t.Fatalf("%s %s: dispatcher and generator disagree", id, date.Weekday())
			}
		}
	}
}
