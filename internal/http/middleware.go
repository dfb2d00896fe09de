package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/application"
)

// ActorHeader names the request header carrying the pre-resolved user id.
// Identity is established upstream; this service trusts the header as-is.
const ActorHeader = "X-User-ID"

// ResolveActor copies the acting user id from the request header into the
// context. Requests without the header pass through; handlers that mutate
// state reject them later.
func ResolveActor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := strings.TrimSpace(r.Header.Get(ActorHeader)); userID != "" {
				ctx := ContextWithActor(r.Context(), application.Actor{UserID: userID})
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger attaches a request scoped logger with a per-process request id
// and logs the request lifecycle.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
