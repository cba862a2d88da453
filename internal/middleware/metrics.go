package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/teamboard/internal/metrics"
)

// Metrics records request count and latency per chi route pattern. The
// pattern keeps label cardinality bounded.
//
// The route label is the pattern without its trailing slash, so
// POST /teams/abc/join/ is counted as route="/teams/{id}/join". The root
// stays "/" and requests that matched no route are "unmatched".
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = routeLabel(rctx.RoutePattern())
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(pattern string) string {
	switch pattern {
	case "":
		return "unmatched"
	case "/":
		return pattern
	}
	return strings.TrimSuffix(pattern, "/")
}
