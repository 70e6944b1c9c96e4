package dashboard

import (
	"math"
	"time"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/tickets"
)

// Summary is the per-practice overview for the current day.
type Summary struct {
	Date                   string `json:"date"`
	TicketsToday           int    `json:"tickets_today"`
	OpenCallbacks          int    `json:"open_callbacks"`
	SuccessRate            int    `json:"success_rate"`
	AvgResponseTimeMinutes *int   `json:"avg_response_time_minutes"`
}

// StatusCounts counts records per lifecycle status.
type StatusCounts struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Booked   int `json:"booked"`
	Callback int `json:"callback"`
	Closed   int `json:"closed"`
}

// Today returns the records created on now's calendar day (UTC).
func Today(records []*tickets.Record, now time.Time) []*tickets.Record {
	y, m, d := now.UTC().Date()
	out := make([]*tickets.Record, 0, len(records))
	for _, r := range records {
		ry, rm, rd := r.CreatedAt.UTC().Date()
		if ry == y && rm == m && rd == d {
			out = append(out, r)
		}
	}
	return out
}

// CountByStatus tallies records by status.
func CountByStatus(records []*tickets.Record) StatusCounts {
	c := StatusCounts{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case booking.StatusOpen:
			c.Open++
		case booking.StatusBooked:
			c.Booked++
		case booking.StatusCallback:
			c.Callback++
		case booking.StatusClosed:
			c.Closed++
		}
	}
	return c
}

// Summarize computes today's figures. The success rate is the rounded
// percentage of today's records that are booked; the average response time
// only counts booked tickets whose slot starts after creation.
func Summarize(records []*tickets.Record, now time.Time) Summary {
	today := Today(records, now)
	s := Summary{
		Date:         now.UTC().Format("2006-01-02"),
		TicketsToday: len(today),
	}

	booked := 0
	var minutes []int
	for _, r := range today {
		switch r.Status {
		case booking.StatusCallback:
			s.OpenCallbacks++
		case booking.StatusBooked:
			booked++
			if r.SlotStart == nil {
				continue
			}
			if m := int(r.SlotStart.Sub(r.CreatedAt) / time.Minute); m >= 0 {
				minutes = append(minutes, m)
			}
		}
	}

	if s.TicketsToday > 0 {
		s.SuccessRate = int(math.Round(float64(booked) / float64(s.TicketsToday) * 100))
	}
	if len(minutes) > 0 {
		sum := 0
		for _, m := range minutes {
			sum += m
		}
		avg := int(math.Round(float64(sum) / float64(len(minutes))))
		s.AvgResponseTimeMinutes = &avg
	}
	return s
}
