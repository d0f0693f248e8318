// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/marenhollis/outfitter/internal/logging"
)

// RequestIDWithLogging assigns each request an id, echoes it in the
// X-Request-ID header and binds a request-scoped logger into the context.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			reqLogger := logging.With().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			ctx = logging.ContextWithLogger(ctx, reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userLimiters holds a token bucket per user for the event ingestion path.
// Event storms from a single misbehaving client must not starve writes for
// everyone else.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   float64
	burst    int
}

func newUserLimiters(perSec float64, burst int) *userLimiters {
	return &userLimiters{
		limiters: map[string]*rate.Limiter{},
		perSec:   perSec,
		burst:    burst,
	}
}

// allow reports whether the user may ingest another event right now.
func (u *userLimiters) allow(userID string) bool {
	u.mu.Lock()
	l, ok := u.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(u.perSec), u.burst)
		u.limiters[userID] = l
	}
	u.mu.Unlock()
	return l.Allow()
}
