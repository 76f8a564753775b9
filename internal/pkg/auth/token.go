package auth

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

// ErrUnauthenticated covers every way a credential can fail verification:
// missing, malformed, bad signature or expired. Callers must not distinguish
// between these cases in responses.
var ErrUnauthenticated = errors.New("invalid or expired credential")

// Claims are the signed contents of an access token. Role and identity are
// read exclusively from here after signature verification, never from
// request bodies or query parameters.
type Claims struct {
	UserID    uint  `json:"user_id"`
	IsAdmin   bool  `json:"is_admin"`
	ExpiresAt int64 `json:"exp"`
}

// Principal is the verified identity for a single request.
type Principal struct {
	UserID  uint
	IsAdmin bool
}

// IssueToken creates a signed access token for the given user.
func IssueToken(userID uint, isAdmin bool, ttl time.Duration, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for token generation")
	}
	claims := Claims{
		UserID:    userID,
		IsAdmin:   isAdmin,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sig := mac.Sum(nil)
	token := fmt.Sprintf("%s.%s", base64.RawURLEncoding.EncodeToString(payload), base64.RawURLEncoding.EncodeToString(sig))
	return token, nil
}

// VerifyToken checks the token signature and expiry and returns the embedded
// principal. It is a pure function of the token and secret; any failure maps
// to ErrUnauthenticated.
func VerifyToken(token, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("secret is required for token verification")
	}
	parts := strings.SplitN(strings.TrimSpace(token), ".", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, ErrUnauthenticated
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrUnauthenticated
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrUnauthenticated
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payloadBytes)
	expected := mac.Sum(nil)
	if !hmac.Equal(sigBytes, expected) {
		return nil, ErrUnauthenticated
	}
	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, ErrUnauthenticated
	}
	if time.Now().Unix() > claims.ExpiresAt {
		return nil, ErrUnauthenticated
	}
	return &Principal{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
}
