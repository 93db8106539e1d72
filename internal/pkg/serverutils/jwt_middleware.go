package serverutils

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LocalUserID    = "user_id"
	LocalSessionID = "session_id"
)

type TokenClaims struct {
	UserId    uuid.UUID
	SessionId uuid.UUID
}

// SessionValidator rejects tokens whose session is no longer active.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionId uuid.UUID) error
}

// ParseToken verifies an HS256 token and extracts the user and session ids.
func ParseToken(secret, tokenStr string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}

	uidStr, _ := claims["user_id"].(string)
	sidStr, _ := claims["sid"].(string)
	userId, err := uuid.Parse(uidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user claim")
	}
	sessionId, err := uuid.Parse(sidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid session claim")
	}

	return &TokenClaims{UserId: userId, SessionId: sessionId}, nil
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return authHeader[7:]
}

func NewJwtMiddleware(secret string, sessions SessionValidator) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		claims, err := ParseToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		if err := sessions.ValidateSession(ctx.UserContext(), claims.SessionId); err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Session expired, please sign in again"))
		}

		ctx.Locals(LocalUserID, claims.UserId.String())
		ctx.Locals(LocalSessionID, claims.SessionId.String())
		return ctx.Next()
	}
}

// UserID reads the authenticated user id set by the JWT middleware.
func UserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	return localUUID(ctx, LocalUserID)
}

func SessionID(ctx *fiber.Ctx) (uuid.UUID, error) {
	return localUUID(ctx, LocalSessionID)
}

func localUUID(ctx *fiber.Ctx, key string) (uuid.UUID, error) {
	s, ok := ctx.Locals(key).(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return id, nil
}
