package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sitestats/api/utils"
)

// TokenCookie carries the operator JWT issued at login.
const TokenCookie = "jwt_token"

// Context keys set for authenticated operators.
const (
	ContextOperatorID = "operator_id"
	ContextEmail      = "operator_email"
)

// AuthRequired admits requests carrying the static API key in X-API-KEY, or a
// valid operator token in the jwt_token cookie or a Bearer Authorization header.
func AuthRequired(tokens *utils.TokenIssuer, staticAPIKey string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); staticAPIKey != "" && key != "" &&
			subtle.ConstantTimeCompare([]byte(key), []byte(staticAPIKey)) == 1 {
			c.Next()
			return
		}

		tokenString, err := c.Cookie(TokenCookie)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if tokenString == "" {
			abortUnauthorized(c, "no token provided")
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			logger.WithError(err).Debug("rejected operator token")
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextOperatorID, claims.OperatorID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "UNAUTHORIZED", "message": message},
	})
}
