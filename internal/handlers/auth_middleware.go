package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/utils"
)

// AuthMiddleware rejects requests without a valid bearer token and stores the caller in the context
func AuthMiddleware(auth Authenticator, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			message := msgTokenFailed
			if errors.Is(err, ErrMissingToken) {
				message = msgNoToken
			}
			abortWithError(c, http.StatusUnauthorized, message, nil)
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.FromContext(c, logger).Debug("Token rejected", "error", err)
			abortWithError(c, http.StatusUnauthorized, msgTokenFailed, nil)
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("user_role", user.Role)
		c.Set("user_email", user.Email)

		c.Next()
	}
}

// RequireRoleMiddleware checks if user has required role
func RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, msgNoToken, nil)
			return
		}

		if role != models.RoleAdmin && !slices.Contains(requiredRoles, role) {
			message := msgNotAuthorized
			if slices.Equal(requiredRoles, []models.UserRole{models.RoleAdmin}) {
				message = msgNotAdmin
			}
			abortWithError(c, http.StatusForbidden, message, nil)
			return
		}

		c.Next()
	}
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
