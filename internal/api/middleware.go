package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"sote-minimart/internal/session"
)

const CashierHeader = "X-Cashier-ID"

// CashierMiddleware binds the signed-in cashier to the request context. A
// request naming a different cashier in X-Cashier-ID is refused; session
// routes are exempt so a cashier can sign in.
func CashierMiddleware(auth *session.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/session" {
				next.ServeHTTP(w, r)
				return
			}

			id, signedIn := auth.Current()
			claimed := r.Header.Get(CashierHeader)

			if claimed != "" && (!signedIn || claimed != id.CashierID) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "cashier_mismatch",
					"message": "request is not from the signed-in cashier",
				})
				return
			}

			if signedIn {
				r = r.WithContext(session.WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
