// Package utils provides helper functions for token creation and retries.
package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles accepted by the yard API.
const (
	RoleOperator   = "OPERATOR"
	RoleSupervisor = "SUPERVISOR"
	RoleViewer     = "VIEWER"
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string and Exp the UTC expiration time.
type AccessToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires_at"`
}

// NewAccessToken builds and signs an HS256 JWT for an operator.  subject
// becomes the "sub" claim and is recorded as the actor of every write the
// token performs.  The token carries sub, role, exp and iat.
func NewAccessToken(secret, subject, role string, ttl time.Duration) (AccessToken, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return AccessToken{}, errors.New("subject is required")
	}
	if !ValidRole(role) {
		return AccessToken{}, errors.New("unknown role " + role)
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": strings.ToUpper(role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ValidRole reports whether role is one of the yard roles (case-insensitive).
func ValidRole(role string) bool {
	switch strings.ToUpper(role) {
	case RoleOperator, RoleSupervisor, RoleViewer:
		return true
	}
	return false
}
