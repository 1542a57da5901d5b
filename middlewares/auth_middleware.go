package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// OwnerKey is the context key holding the authenticated owner.
const OwnerKey = "owner"

// DefaultOwner owns everything when authentication is disabled.
const DefaultOwner = "default"

// AuthMiddleware resolves the request owner. With an empty secret every request
// belongs to DefaultOwner; otherwise an HS256 bearer token is required and its
// "sub" claim, or failing that "email", becomes the owner.
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Set(OwnerKey, DefaultOwner)
			c.Next()
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid claims")
			return
		}

		owner, _ := claims["sub"].(string)
		if owner == "" {
			owner, _ = claims["email"].(string)
		}
		if owner == "" {
			abortUnauthorized(c, "subject claim missing")
			return
		}

		c.Set(OwnerKey, owner)
		c.Next()
	}
}

// bearerToken reads the token from the Authorization header, or from the
// "token" query parameter for websocket clients that cannot set headers.
func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), true
	}
	if t := c.Query("token"); t != "" {
		return t, true
	}
	return "", false
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   "unauthorized",
		"message": msg,
	})
}

// Owner returns the owner set by AuthMiddleware.
func Owner(c *gin.Context) string {
	if o := c.GetString(OwnerKey); o != "" {
		return o
	}
	return DefaultOwner
}
