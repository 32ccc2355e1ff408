// Package auth carries the caller identity issued by the upstream identity provider.
package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const callerKey = "storefront.caller"

// Caller is the authenticated principal of a request. The zero value is anonymous.
type Caller struct {
	ID string
}

// Authenticated reports whether the identity provider supplied a principal.
func (c Caller) Authenticated() bool {
	return c.ID != ""
}

// Middleware resolves the caller from the header set by the identity gateway.
// A missing header yields an anonymous caller; services decide whether that is fatal.
func Middleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		c.Set(callerKey, Caller{ID: id})
		c.Next()
	}
}

// FromGin returns the caller resolved by Middleware.
func FromGin(c *gin.Context) Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(Caller); ok {
			return caller
		}
	}
	return Caller{}
}
