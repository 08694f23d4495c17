package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/mailroom_backend/utils"
)

const roleAdmin = "admin"

// AuthMiddleware validates the bearer JWT when API_SECRET is configured and scopes the
// request to the token's tenant. With no secret configured every request passes.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.JwtSecretConfigured() || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		auth := strings.TrimSpace(c.Request.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		token := strings.TrimSpace(auth[len("bearer "):])

		claims, err := utils.JwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		isAdmin := strings.EqualFold(claims.Role, roleAdmin)
		tenantId := strings.TrimSpace(claims.TenantId)
		// Only admins may act without a tenant; anyone else would run unscoped.
		if tenantId == "" && !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "token has no tenant"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		if tenantId != "" {
			ctx = utils.SetTenantIdInContext(ctx, tenantId)
		}
		if isAdmin {
			ctx = utils.SetIsAdminInContext(ctx, true)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
