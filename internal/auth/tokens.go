package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Token audiences keep sessions and nonces from standing in for each other
const (
	audienceSession = "seopilot-session"
	audienceNonce   = "seopilot-nonce"
)

// Principal is an authenticated administrator
type Principal struct {
	Username     string   `json:"username"`
	Capabilities []string `json:"capabilities"`
}

// Can reports whether the principal holds capability
func (p Principal) Can(capability string) bool {
	return slices.Contains(p.Capabilities, capability)
}

// SessionClaims are carried by session tokens
type SessionClaims struct {
	Caps []string `json:"caps"`
	jwt.RegisteredClaims
}

// NonceClaims bind a nonce to a user and one action
type NonceClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}
