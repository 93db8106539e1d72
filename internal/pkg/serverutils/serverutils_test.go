package serverutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"notebook-sync-be/internal/pkg/apperror"
	"notebook-sync-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool              `json:"success"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data"`
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func TestErrorHandlerMiddleware(t *testing.T) {
	type createReq struct {
		Title string `json:"title" validate:"required,max=5"`
	}

	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"not found", fmt.Errorf("show: %w", apperror.NotFound("Notebook not found")), 404, "Notebook not found"},
		{"invalid", apperror.Invalid("Invalid OAuth state"), 400, "Invalid OAuth state"},
		{"unauthorized", apperror.Unauthorized("Session expired"), 401, "Session expired"},
		{"fiber error", fiber.NewError(fiber.StatusBadRequest, "bad body"), 400, "bad body"},
		{"internal", errors.New("pq: connection refused"), 500, GenericErrorMessage},
		{"validation", ValidateRequest(createReq{Title: "toolong"}), 400, "Validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
			app.Get("/x", func(ctx *fiber.Ctx) error { return tt.err })

			code, body := doRequest(t, app, "GET", "/x", "")
			assert.Equal(t, tt.code, code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestValidateRequest_FieldMessages(t *testing.T) {
	type req struct {
		Title string   `json:"title" validate:"max=3"`
		Key   string   `json:"key" validate:"required"`
		Rows  []string `json:"rows" validate:"max=1"`
	}

	err := ValidateRequest(req{Title: "abcd", Rows: []string{"a", "b"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"title": "title must be at most 3 characters",
		"key":   "key is required",
		"rows":  "rows must contain at most 1 items",
	}, verr.Fields)

	assert.NoError(t, ValidateRequest(req{Title: "abc", Key: "k"}))
}

type fakeSessions struct {
	revoked map[uuid.UUID]bool
}

func (f *fakeSessions) ValidateSession(_ context.Context, id uuid.UUID) error {
	if f.revoked[id] {
		return apperror.Unauthorized("revoked")
	}
	return nil
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "test-secret"
	userId := uuid.New()
	activeSid := uuid.New()
	revokedSid := uuid.New()
	sessions := &fakeSessions{revoked: map[uuid.UUID]bool{revokedSid: true}}

	app := fiber.New()
	app.Use(NewJwtMiddleware(secret, sessions))
	app.Get("/me", func(ctx *fiber.Ctx) error {
		uid, err := UserID(ctx)
		if err != nil {
			return err
		}
		sid, err := SessionID(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(SuccessResponse("ok", map[string]string{"user_id": uid.String(), "sid": sid.String()}))
	})

	exp := time.Now().Add(time.Hour).Unix()
	valid := signToken(t, secret, jwt.MapClaims{"user_id": userId.String(), "sid": activeSid.String(), "exp": exp})

	code, body := doRequest(t, app, "GET", "/me", valid)
	require.Equal(t, 200, code)
	assert.Equal(t, userId.String(), body.Data["user_id"])
	assert.Equal(t, activeSid.String(), body.Data["sid"])

	code, _ = doRequest(t, app, "GET", "/me", "")
	assert.Equal(t, 401, code)

	wrongKey := signToken(t, "other", jwt.MapClaims{"user_id": userId.String(), "sid": activeSid.String(), "exp": exp})
	code, _ = doRequest(t, app, "GET", "/me", wrongKey)
	assert.Equal(t, 401, code)

	expired := signToken(t, secret, jwt.MapClaims{"user_id": userId.String(), "sid": activeSid.String(), "exp": time.Now().Add(-time.Minute).Unix()})
	code, _ = doRequest(t, app, "GET", "/me", expired)
	assert.Equal(t, 401, code)

	revoked := signToken(t, secret, jwt.MapClaims{"user_id": userId.String(), "sid": revokedSid.String(), "exp": exp})
	code, body = doRequest(t, app, "GET", "/me", revoked)
	assert.Equal(t, 401, code)
	assert.Equal(t, "Session expired, please sign in again", body.Message)
}
