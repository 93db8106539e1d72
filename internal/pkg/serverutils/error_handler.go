package serverutils

import (
	"errors"

	"notebook-sync-be/internal/pkg/apperror"
	"notebook-sync-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

const GenericErrorMessage = "Something went wrong, please try again"

// ErrorHandlerMiddleware turns errors returned by downstream handlers into
// the JSON envelope and logs them.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, body := mapError(err)

		details := map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"status": code,
			"error":  err.Error(),
		}
		if uid, ok := ctx.Locals(LocalUserID).(string); ok {
			details["user_id"] = uid
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", details)
		} else {
			log.Warn("HTTP", "Request rejected", details)
		}

		return ctx.Status(code).JSON(body)
	}
}

func mapError(err error) (int, interface{}) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest, ErrorResponseWithData(fiber.StatusBadRequest, "Validation failed", verr.Fields)
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		msg := ferr.Message
		if ferr.Code >= fiber.StatusInternalServerError {
			msg = GenericErrorMessage
		}
		return ferr.Code, ErrorResponse(ferr.Code, msg)
	}

	var aerr *apperror.Error
	if errors.As(err, &aerr) {
		switch aerr.Kind {
		case apperror.KindNotFound:
			return fiber.StatusNotFound, ErrorResponse(fiber.StatusNotFound, aerr.Message)
		case apperror.KindInvalid:
			return fiber.StatusBadRequest, ErrorResponse(fiber.StatusBadRequest, aerr.Message)
		case apperror.KindUnauthorized:
			return fiber.StatusUnauthorized, ErrorResponse(fiber.StatusUnauthorized, aerr.Message)
		}
	}

	return fiber.StatusInternalServerError, ErrorResponse(fiber.StatusInternalServerError, GenericErrorMessage)
}
