package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/gocomet/ride-booking/pkg/errors"
)

func abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.Status, gin.H{"code": err.Code, "message": err.Message})
}

// Authenticate resolves the bearer token into an Identity. The token is read
// from the Authorization header, or from the token query parameter for
// websocket upgrades.
func Authenticate(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			abort(c, apperrors.ErrMissingToken)
			return
		}

		id, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			abort(c, apperrors.ErrInvalidToken)
			return
		}

		SetIdentity(c, id)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			abort(c, apperrors.ErrMissingToken)
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		abort(c, apperrors.ErrRoleNotAllowed)
	}
}
