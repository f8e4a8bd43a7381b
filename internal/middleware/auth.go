package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/askgate/internal/pkg/errcode"
	"github.com/xxxsen/askgate/internal/pkg/response"
	"github.com/xxxsen/askgate/internal/pkg/token"
)

const ContextClientIDKey = "client_id"

// APIAuth checks a bearer token on mutating routes. An empty secret disables
// the check, which is the single-tenant default.
func APIAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := token.Parse(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextClientIDKey, claims.ClientID)
		c.Next()
	}
}
