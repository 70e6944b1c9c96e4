// Package intent classifies German caller utterances by keyword.
package intent

import "strings"

// Intent is what the caller wants.
type Intent string

const (
	Booking  Intent = "booking"
	Callback Intent = "callback"
	Cancel   Intent = "cancel"
	Unknown  Intent = "unknown"
)

var (
	bookingKeywords = []string{
		"termin",
		"termin machen",
		"termin vereinbaren",
		"buchen",
		"vereinbaren",
		"zeit",
		"kommen",
		"dringend",
	}
	cancelKeywords = []string{
		"absagen",
		"stornieren",
		"verschieben",
		"doch nicht",
		"nicht kommen",
	}
	callbackKeywords = []string{
		"rückruf",
		"zurückrufen",
		"anrufen",
		"bitte anrufen",
		"melden",
		"kontakt",
	}
)

// Detect matches lower-cased text against the keyword lists. Booking wins
// over cancel and cancel over callback, so "nicht kommen" counts as booking
// because it contains "kommen".
func Detect(text string) Intent {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, bookingKeywords):
		return Booking
	case containsAny(t, cancelKeywords):
		return Cancel
	case containsAny(t, callbackKeywords):
		return Callback
	}
	return Unknown
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
