package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequirePermission gates a route on a single permission carried in the
// token claims. Roles never reach handlers; only permissions do.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasPermission(c, permission) {
			abortForbidden(c, permission)
			return
		}
		c.Next()
	}
}

// RequireAnyPermission gates a route on at least one of the given permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range permissions {
			if HasPermission(c, p) {
				c.Next()
				return
			}
		}
		required := ""
		if len(permissions) > 0 {
			required = permissions[0]
		}
		abortForbidden(c, required)
	}
}

// HasPermission reports whether the authenticated token grants the permission
func HasPermission(c *gin.Context, permission string) bool {
	for _, p := range GetJWTPermissions(c) {
		if p == permission {
			return true
		}
	}
	return false
}

func abortForbidden(c *gin.Context, permission string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "FORBIDDEN",
			"message": "Missing required permission: " + permission,
		},
	})
}
