package tenancy

import (
	"context"

	"github.com/wolfman30/practice-booking/internal/practice"
)

type ctxKey string

const practiceKey ctxKey = "booking.practice_id"

// WithPracticeID stores the practice id in context.
func WithPracticeID(ctx context.Context, id practice.ID) context.Context {
	return context.WithValue(ctx, practiceKey, id)
}

// PracticeIDFromContext extracts the practice id if present.
func PracticeIDFromContext(ctx context.Context) (practice.ID, bool) {
	val := ctx.Value(practiceKey)
	if val == nil {
		return "", false
	}
	id, ok := val.(practice.ID)
	return id, ok && id != ""
}
