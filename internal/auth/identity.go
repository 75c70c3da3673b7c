// Package auth resolves the caller's identity from a bearer token once per
// request and carries it on the gin context.
package auth

import (
	"github.com/gin-gonic/gin"
)

// Role is the kind of account a token was issued to
type Role string

const (
	RoleUser   Role = "USER"
	RoleDriver Role = "DRIVER"
	RoleAdmin  Role = "ADMIN"
)

// IsValid validates the role
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

const identityKey = "identity"

// SetIdentity stores id on the request context
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the identity set by Authenticate
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
