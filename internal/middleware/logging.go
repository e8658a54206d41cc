package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type logFieldsKey struct{}

// logFields is filled in by handlers further down the chain and read back
// when the request completes.
type logFields struct {
	userID uuid.UUID
}

// RequestLogger logs one line per request. 5xx responses log at error, 4xx
// at warn and everything else at debug.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			fields := &logFields{}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), logFieldsKey{}, fields)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"latency", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			}
			if fields.userID != uuid.Nil {
				attrs = append(attrs, "user_id", fields.userID)
			}

			switch {
			case status >= 500:
				log.Error("request completed", attrs...)
			case status >= 400:
				log.Warn("request completed", attrs...)
			default:
				log.Debug("request completed", attrs...)
			}
		})
	}
}

func setLogUser(ctx context.Context, userID uuid.UUID) {
	if fields, ok := ctx.Value(logFieldsKey{}).(*logFields); ok {
		fields.userID = userID
	}
}
