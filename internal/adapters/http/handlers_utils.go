package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// parseIntDefault reads a query integer, falling back when it is absent or malformed.
func parseIntDefault(raw string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return n
	}
	return fallback
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", domain.ErrInvalidInput, param)
	}
	return id, nil
}

// readIP is the peer address of the connection. Forwarding headers only count when the
// router was built with TrustProxyHeaders, which rewrites RemoteAddr before this runs.
func readIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// actor returns the authenticated caller or writes a 401.
func actor(w http.ResponseWriter, r *http.Request, operation string) (ports.AuthClaims, bool) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, operation)
	}
	return claims, ok
}

// fail logs a handled failure and writes the error envelope.
func fail(ctx context.Context, w http.ResponseWriter, operation string, status int, code, msg string, err error) {
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	fail(ctx, w, operation, status, code, msg, err)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	fail(ctx, w, operation, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
}

func writeMissingBearerError(ctx context.Context, w http.ResponseWriter, operation string) {
	fail(ctx, w, operation, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
}
