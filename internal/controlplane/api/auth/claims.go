// Package auth provides JWT authentication for the corevisor control API.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the privilege level carried by a token.
type Role string

const (
	// RoleAdmin can call every endpoint.
	RoleAdmin Role = "admin"
	// RoleAddon can only manage its own service data.
	RoleAddon Role = "addon"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleAddon:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q (valid: admin, addon)", s)
	}
}

// Claims represents JWT claims for corevisor authentication.
//
// For addon tokens the subject is the add-on slug.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the caller's role ("admin" or "addon").
	Role Role `json:"role"`
}

// IsAdmin returns true if the caller has the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Addon returns the add-on slug of an addon token, or "" for other roles.
func (c *Claims) Addon() string {
	if c.Role != RoleAddon {
		return ""
	}
	return c.Subject
}
