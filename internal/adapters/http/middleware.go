package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyTokenRaw  ctxKey = "token_raw"
	ctxKeyClaims    ctxKey = "auth_claims"
)

// authMiddleware resolves the bearer token into claims for the rest of the chain.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeMissingBearerError(r.Context(), w, "authenticate")
			return
		}
		claims, err := h.service.ValidateToken(r.Context(), raw)
		if err != nil {
			writeMappedError(r.Context(), w, "authenticate", err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyTokenRaw, raw)
		ctx = context.WithValue(ctx, ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

const maxRequestIDLen = 128

// requestIDMiddleware echoes a caller supplied X-Request-Id when it is short printable
// ASCII and mints a fresh one otherwise.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(chimw.RequestIDHeader)
		if !validRequestID(reqID) {
			reqID = uuid.NewString()
		}
		w.Header().Set(chimw.RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

func validRequestID(v string) bool {
	if v == "" || len(v) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 0x21 || v[i] > 0x7e {
			return false
		}
	}
	return true
}

// recoverMiddleware turns a handler panic into the standard 500 envelope.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			httpLogger().ErrorContext(r.Context(), "handler panicked",
				"operation", "http_request",
				"outcome", "failure",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestIDFromContext(r.Context()),
				"panic", fmt.Sprint(rec),
			)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware writes one access record per request, keyed by the matched route
// pattern so ids in the path do not fan out the log.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		statusCode := ww.Status()
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		outcome := "success"
		if statusCode >= 400 {
			outcome = "failure"
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		level := slog.LevelInfo
		switch {
		case statusCode >= 500:
			level = slog.LevelError
		case statusCode >= 400:
			level = slog.LevelWarn
		}
		httpLogger().LogAttrs(r.Context(), level, "http request completed",
			slog.String("operation", "http_request"),
			slog.String("outcome", outcome),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.String("path", r.URL.Path),
			slog.Int("status_code", statusCode),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", requestIDFromContext(r.Context())),
		)
	})
}

func requestIDFromContext(ctx context.Context) string {
	v := ctx.Value(ctxKeyRequestID)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func bearerTokenFromHeader(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("missing bearer token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// errorMapping pairs a domain sentinel with its HTTP rendering. An empty message means the
// error text is safe to show the client.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// domainErrors is checked in order, so more specific sentinels come before ErrConflict.
var domainErrors = []errorMapping{
	{domain.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"},
	{domain.ErrSessionExpired, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired"},
	{domain.ErrSessionRevoked, http.StatusUnauthorized, "SESSION_REVOKED", "session revoked"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "not allowed"},
	{domain.ErrAccountLocked, http.StatusTooManyRequests, "ACCOUNT_LOCKED", "account temporarily locked"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"},
	{domain.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK", ""},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION", ""},
	{domain.ErrIdempotencyConflict, http.StatusConflict, "IDEMPOTENCY_CONFLICT", ""},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT", ""},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
}

// mapDomainError turns a domain sentinel into status, error code and client message.
// Anything unrecognised is an opaque 500.
func mapDomainError(err error) (int, string, string) {
	for _, m := range domainErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.message == "" {
			return m.status, m.code, err.Error()
		}
		return m.status, m.code, m.message
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
}

func claimsFromContext(ctx context.Context) (ports.AuthClaims, bool) {
	v := ctx.Value(ctxKeyClaims)
	claims, ok := v.(ports.AuthClaims)
	return claims, ok
}

func tokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ctxKeyTokenRaw).(string)
	return token, ok && token != ""
}
