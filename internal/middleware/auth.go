package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/pkg/logger"
)

// Keys under which UseToken stores the caller in c.Locals.
const (
	LocalUserID     = "userID"
	LocalRole       = "role"
	LocalEmployeeID = "employeeID"
	LocalUsername   = "username"
)

const RoleAdmin = "admin"

// NewToken signs an HS256 token valid for one hour.
func NewToken(userID, role, employeeID, username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":     userID,
		"role":        role,
		"employee_id": employeeID,
		"username":    username,
		"exp":         time.Now().Add(time.Hour * 1).Unix(),
	})
	return token.SignedString(config.SecretKey)
}

func unauthorized(c *fiber.Ctx, message string) error {
	logger.SecurityLogger.Warn(message, zap.String("url", c.OriginalURL()), zap.String("ip", c.IP()))
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}

// bearer reads the token from the Authorization header, or from ?token= for
// websocket upgrades where browsers cannot set headers.
func bearer(c *fiber.Ctx) (string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if t := c.Query("token"); t != "" {
			return t, ""
		}
		return "", "No token provided"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid token format"
	}
	return parts[1], ""
}

func UseToken(c *fiber.Ctx) error {
	raw, problem := bearer(c)
	if problem != "" {
		return unauthorized(c, problem)
	}
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.SecretKey, nil
	})
	if err != nil || !token.Valid {
		return unauthorized(c, "Invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return unauthorized(c, "Invalid token claims")
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		return unauthorized(c, "Token expired")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return unauthorized(c, "Invalid user ID in token")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return unauthorized(c, "Invalid role in token")
	}
	employeeID, _ := claims["employee_id"].(string)
	username, _ := claims["username"].(string)

	c.Locals(LocalUserID, userID)
	c.Locals(LocalRole, role)
	c.Locals(LocalEmployeeID, employeeID)
	c.Locals(LocalUsername, username)
	return c.Next()
}

// AdminOnly must run after UseToken.
func AdminOnly(c *fiber.Ctx) error {
	if role, _ := c.Locals(LocalRole).(string); role != RoleAdmin {
		logger.SecurityLogger.Warn("Admin route denied",
			zap.String("url", c.OriginalURL()), zap.Any("user_id", c.Locals(LocalUserID)))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Admin access required",
			"code":    "permission_denied",
			"success": false,
			"status":  fiber.StatusForbidden,
		})
	}
	return c.Next()
}
