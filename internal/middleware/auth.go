package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
)

// UserLookup resolves the account behind a token.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// AuthMiddleware verifies the bearer token and loads the caller's current role and status.
// The role stored in the database wins over the one in the token.
func AuthMiddleware(tokens *utils.Tokens, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must use the Bearer scheme"})
			return
		}
		claims, err := tokens.ValidateJWT(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		id, _ := claims.ID()

		user, err := users.GetUser(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
			return
		}
		if err != nil {
			Logger(c).Error().Err(err).Int64("user_id", id).Msg("auth: load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if user.Status == models.StatusSuspended {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account is suspended"})
			return
		}

		// Set user info in the context for handlers to use
		c.Set(UserIDKey, user.ID)
		c.Set(UserRoleKey, user.Role)

		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed set.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, c.GetString(UserRoleKey)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the id and role placed in the context by AuthMiddleware.
func CurrentUser(c *gin.Context) (int64, string) {
	return c.GetInt64(UserIDKey), c.GetString(UserRoleKey)
}
