// Package sseauth issues and validates the short-lived HMAC tokens that
// guard the admin stream. EventSource cannot set an Authorization header,
// so the dashboard first trades its Basic Auth credentials for a token and
// passes it as a query parameter.
package sseauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TokenPrefix identifies the token version/type.
	TokenPrefix = "sse1"

	// DefaultTTL is the token validity used when no TTL is given.
	DefaultTTL = 5 * time.Minute

	// ScopeAdminStream is the scope claim for admin firehose tokens.
	ScopeAdminStream = "admin-stream"
)

// Errors returned by token validation.
var (
	ErrInvalidFormat    = errors.New("invalid token format")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidScope     = errors.New("invalid token scope")
)

// Claims represents the token payload.
type Claims struct {
	Exp   int64  `json:"exp"`   // Expiration time (Unix timestamp)
	Iat   int64  `json:"iat"`   // Issued at time (Unix timestamp)
	Scope string `json:"scope"` // Token scope (e.g., "admin-stream")
}

// GenerateToken creates a new stream token valid for ttl from now.
// A non-positive ttl falls back to DefaultTTL.
// Format: sse1.<payload_b64>.<sig_b64>
// Signature: HMAC-SHA256(secret, "sse1."+payload_b64)
func GenerateToken(secret []byte, scope string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	claims := Claims{
		Exp:   now.Add(ttl).Unix(),
		Iat:   now.Unix(),
		Scope: scope,
	}

	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)
	sigInput := TokenPrefix + "." + payloadB64

	return sigInput + "." + base64.RawURLEncoding.EncodeToString(sign(secret, sigInput)), nil
}

// ValidateToken verifies a token and returns its claims.
// Signature comparison is constant-time.
func ValidateToken(token string, secret []byte, expectedScope string, now time.Time) (Claims, error) {
	if len(secret) == 0 {
		return Claims{}, errors.New("secret cannot be empty")
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidFormat
	}
	prefix, payloadB64, sigB64 := parts[0], parts[1], parts[2]
	if prefix != TokenPrefix {
		return Claims{}, ErrInvalidFormat
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return Claims{}, ErrInvalidFormat
	}
	if !hmac.Equal(sig, sign(secret, prefix+"."+payloadB64)) {
		return Claims{}, ErrInvalidSignature
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return Claims{}, ErrInvalidFormat
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Claims{}, ErrInvalidFormat
	}

	if now.Unix() > claims.Exp {
		return Claims{}, ErrTokenExpired
	}
	if claims.Scope != expectedScope {
		return Claims{}, ErrInvalidScope
	}

	return claims, nil
}

func sign(secret []byte, input string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(input))
	return mac.Sum(nil)
}
