package router

import (
	"net/http"
	"strings"

	"github.com/wolfman30/practice-booking/internal/http/middleware"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/tenancy"
)

const practiceHeader = "X-Practice-Id"

// requirePracticeID resolves the tenant from the X-Practice-Id header or the
// practice_id query parameter. Staff tokens scoped to other practices are
// rejected.
func requirePracticeID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(practiceHeader))
		if raw == "" {
			raw = strings.TrimSpace(r.URL.Query().Get("practice_id"))
		}
		if raw == "" {
			http.Error(w, "missing X-Practice-Id", http.StatusBadRequest)
			return
		}
		id, err := practice.Parse(raw)
		if err != nil {
			http.Error(w, "unknown practice", http.StatusBadRequest)
			return
		}
		if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok && !claims.AllowsPractice(string(id)) {
			http.Error(w, "practice not permitted", http.StatusForbidden)
			return
		}
		ctx := tenancy.WithPracticeID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
