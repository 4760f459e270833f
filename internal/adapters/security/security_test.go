package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("shopper42")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "shopper42" {
		t.Fatal("hash must not equal the password")
	}
	if err := h.Compare(hash, "shopper42"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := h.Compare(hash, "wrong-password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := h.Compare("not-a-hash", "shopper42"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for malformed hash, got %v", err)
	}
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	t.Parallel()
	if got := NewBcryptHasher(0).cost; got != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
	if got := NewBcryptHasher(2).cost; got != bcrypt.MinCost {
		t.Fatalf("expected min cost, got %d", got)
	}
	if got := NewBcryptHasher(99).cost; got != bcrypt.MaxCost {
		t.Fatalf("expected max cost, got %d", got)
	}
}

func testClaims(now time.Time) ports.AuthClaims {
	return ports.AuthClaims{
		UserID:    uuid.New(),
		Email:     "shopper@example.com",
		Role:      domain.RoleCustomer,
		SessionID: uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestJWTSignerRoundTrip(t *testing.T) {
	t.Parallel()
	signer, err := NewEphemeralJWTSigner("test-key")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	claims := testClaims(now)

	token, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := signer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.UserID != claims.UserID || got.SessionID != claims.SessionID {
		t.Fatalf("ids mismatch: %+v", got)
	}
	if got.Email != claims.Email || got.Role != claims.Role || got.KeyID != "test-key" {
		t.Fatalf("claims mismatch: %+v", got)
	}
	if !got.ExpiresAt.Equal(claims.ExpiresAt) {
		t.Fatalf("expiry mismatch: %v vs %v", got.ExpiresAt, claims.ExpiresAt)
	}
}

func TestJWTSignerRejectsExpiredAndForeignTokens(t *testing.T) {
	t.Parallel()
	signer, err := NewEphemeralJWTSigner("test-key")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	other, err := NewEphemeralJWTSigner("test-key")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	past := time.Now().Add(-3 * time.Hour)
	expired, err := signer.Sign(testClaims(past))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(expired); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	foreign, err := other.Sign(testClaims(time.Now()))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(foreign); err == nil {
		t.Fatal("expected signature failure for token from another key")
	}

	if _, err := signer.Sign(ports.AuthClaims{}); err == nil {
		t.Fatal("expected error for claims without ids")
	}
}

func TestNewJWTSignerFromPEM(t *testing.T) {
	t.Parallel()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	signer, err := NewJWTSigner("pem-key", string(privPEM), string(pubPEM))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	token, err := signer.Sign(testClaims(time.Now()))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(token); err != nil {
		t.Fatalf("parse: %v", err)
	}

	jwks, err := signer.PublicJWKs()
	if err != nil {
		t.Fatalf("jwks: %v", err)
	}
	if len(jwks) != 1 || jwks[0]["kid"] != "pem-key" || jwks[0]["alg"] != "RS256" {
		t.Fatalf("unexpected jwks: %+v", jwks)
	}

	if _, err := NewJWTSigner("", string(privPEM), string(pubPEM)); err == nil {
		t.Fatal("expected error for missing kid")
	}
	if _, err := NewJWTSigner("k", "garbage", string(pubPEM)); err == nil {
		t.Fatal("expected error for bad private key")
	}

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	otherPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(other)})
	if _, err := NewJWTSigner("k", string(otherPEM), string(pubPEM)); err == nil {
		t.Fatal("expected error for mismatched keypair")
	}
}
