// Package middleware holds the HTTP middleware specific to the API. Generic
// request logging, recovery and request ids come from chi.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/tally/internal/http/respond"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
	cacheTimeout         = 2 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// recorder tees the response so it can be replayed later.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rec *recorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *recorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}

	rec.body.Write(b)

	return rec.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a mutating request whose
// Idempotency-Key was already seen, so a retried payment or import is not
// applied twice. Requests without the header pass through. Server errors
// are not stored; the key is released and the client may retry.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			cacheKey := idempotencyPrefix + r.Method + ":" + r.URL.Path + ":" + key

			ctx, cancel := context.WithTimeout(r.Context(), cacheTimeout)
			defer cancel()

			cached, err := cache.Get(ctx, cacheKey).Result()
			switch {
			case err == nil:
				replay(w, key, cached, logger)
				return
			case !errors.Is(err, redis.Nil):
				logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
				respond.Message(w, http.StatusInternalServerError, "idempotency store failure")

				return
			}

			reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
			if err != nil {
				logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
				respond.Message(w, http.StatusInternalServerError, "idempotency reservation failure")

				return
			}

			if !reserved {
				respond.Message(w, http.StatusConflict, "duplicate request currently processing")
				return
			}

			// Release the reservation if the handler panics.
			defer func() {
				if p := recover(); p != nil {
					release(r.Context(), cache, cacheKey)
					panic(p)
				}
			}()

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status == 0 || rec.status >= http.StatusInternalServerError {
				release(r.Context(), cache, cacheKey)
				return
			}

			persistCtx, persistCancel := context.WithTimeout(context.WithoutCancel(r.Context()), cacheTimeout)
			defer persistCancel()

			stored := storedResponse{
				Status:  rec.status,
				Body:    rec.body.String(),
				Headers: map[string]string{},
			}

			for name := range w.Header() {
				stored.Headers[name] = w.Header().Get(name)
			}

			payload, err := json.Marshal(stored)
			if err != nil {
				logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
				cache.Del(persistCtx, cacheKey)

				return
			}

			if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
				logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
				cache.Del(persistCtx, cacheKey)
			}
		})
	}
}

// release drops the reservation even when the request context is done.
func release(ctx context.Context, cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	cache.Del(ctx, cacheKey)
}

func replay(w http.ResponseWriter, key, cached string, logger *slog.Logger) {
	if cached == inProgressMarker {
		respond.Message(w, http.StatusConflict, "duplicate request currently processing")
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		respond.Message(w, http.StatusConflict, "duplicate request")

		return
	}

	for name, value := range stored.Headers {
		if name == "Content-Length" {
			continue
		}

		w.Header().Set(name, value)
	}

	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)

	if _, err := w.Write([]byte(stored.Body)); err != nil {
		logger.Warn("failed to write replayed response", slog.String("key", key), slog.Any("error", err))
	}
}
