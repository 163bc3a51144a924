// Package auth turns bearer tokens issued by the hotel's identity provider
// into a request identity.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an access token. The subject carries the numeric
// user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid access token")
