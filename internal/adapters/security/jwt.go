package security

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/ports"
)

// TokenIssuer is written to the iss claim and required on parse.
const TokenIssuer = "storefront"

const clockSkew = 30 * time.Second

var errClaimsShape = errors.New("invalid token claims")

// JWTSigner signs and verifies RS256 storefront access tokens under a single key id.
type JWTSigner struct {
	kid    string
	signer *rsa.PrivateKey
}

// NewJWTSigner builds a signer from a PEM keypair. The public half must belong to the
// private key.
func NewJWTSigner(kid, privateKeyPEM, publicKeyPEM string) (*JWTSigner, error) {
	if kid == "" {
		return nil, errors.New("jwt key id (kid) is required")
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, errors.New("jwt public key does not match private key")
	}
	return &JWTSigner{kid: kid, signer: priv}, nil
}

// NewEphemeralJWTSigner generates a throwaway keypair. Tokens it signs do not survive a
// restart, so it is only used when JWT_ALLOW_EPHEMERAL is set.
func NewEphemeralJWTSigner(kid string) (*JWTSigner, error) {
	if kid == "" {
		kid = "ephemeral-key-1"
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return &JWTSigner{kid: kid, signer: key}, nil
}

// accessClaims carries the user id in sub and the session id in jti.
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) Sign(claims ports.AuthClaims) (string, error) {
	if claims.UserID == uuid.Nil || claims.SessionID == uuid.Nil {
		return "", errors.New("user id and session id are required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims{
		Email: claims.Email,
		Role:  claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   claims.UserID.String(),
			ID:        claims.SessionID.String(),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	token.Header["kid"] = s.kid
	return token.SignedString(s.signer)
}

func (s *JWTSigner) ParseAndValidate(raw string) (ports.AuthClaims, error) {
	var claims accessClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if _, err := parser.ParseWithClaims(raw, &claims, s.verificationKey); err != nil {
		return ports.AuthClaims{}, err
	}
	return claims.toAuthClaims(s.kid)
}

func (s *JWTSigner) verificationKey(token *jwt.Token) (any, error) {
	if kid, _ := token.Header["kid"].(string); kid != s.kid {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return &s.signer.PublicKey, nil
}

func (c accessClaims) toAuthClaims(kid string) (ports.AuthClaims, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: sub: %v", errClaimsShape, err)
	}
	sessionID, err := uuid.Parse(c.ID)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: jti: %v", errClaimsShape, err)
	}
	out := ports.AuthClaims{
		UserID:    userID,
		Email:     c.Email,
		Role:      c.Role,
		SessionID: sessionID,
		ExpiresAt: c.ExpiresAt.Time.UTC(),
		KeyID:     kid,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	return out, nil
}

// PublicJWKs exposes the verification key so other services can check storefront tokens.
func (s *JWTSigner) PublicJWKs() ([]map[string]any, error) {
	pub := s.signer.PublicKey
	if pub.N == nil {
		return nil, errors.New("jwt signer has no public key")
	}
	b64 := base64.RawURLEncoding.EncodeToString
	return []map[string]any{{
		"kid": s.kid,
		"kty": "RSA",
		"alg": jwt.SigningMethodRS256.Alg(),
		"use": "sig",
		"n":   b64(pub.N.Bytes()),
		"e":   b64(big.NewInt(int64(pub.E)).Bytes()),
	}}, nil
}
