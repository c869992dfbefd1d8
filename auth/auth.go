// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingSub   = errors.New("token has no subject")
)

// Identity is the caller as established by the identity provider
type Identity struct {
	UserID string
	Name   string
}

// NewPollID returns a short URL-safe id for a poll
func NewPollID() string {
	u := uuid.New()
	return base62Encode(u[:8])
}

// NewOptionID returns a short id for a poll option
func NewOptionID() string {
	u := uuid.New()
	return base62Encode(u[8:])
}

// IssueToken signs an HS256 token for id. Used by tests and local tooling;
// production tokens come from the identity provider with the same secret.
func IssueToken(secret string, id Identity, ttl time.Duration) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)

	claims["sub"] = id.UserID
	claims["name"] = id.Name
	claims["iat"] = time.Now().Unix()
	claims["exp"] = time.Now().Add(ttl).Unix()

	return token.SignedString([]byte(secret))
}

// ParseToken verifies a bearer token and extracts the identity
func ParseToken(secret, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, ErrMissingSub
	}
	name, _ := claims["name"].(string)

	return Identity{UserID: sub, Name: name}, nil
}

// base62Encode converts bytes to base62 (0-9, a-z, A-Z)
// This creates URL-friendly ids without special characters
func base62Encode(data []byte) string {
	const base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	var num uint64
	for i := 0; i < len(data) && i < 8; i++ {
		num = num<<8 | uint64(data[i])
	}

	if num == 0 {
		return "0"
	}

	result := make([]byte, 0, 11) // max length for uint64
	for num > 0 {
		result = append(result, base62Chars[num%62])
		num /= 62
	}

	// Reverse the string
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}
