package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	TextCode string `json:"text_code,omitempty"`
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !errors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := statusFor(richErr)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request %s %s failed: %v details=%s",
			c.Method(), c.OriginalURL(), err, print.MaybePrettyJSON(richErr.Metadata))
		return c.Status(status).JSON(ErrorResponse{
			Error:    "an unexpected server error occurred",
			TextCode: "INTERNAL_ERROR",
		})
	}

	h.logger.Debug("request %s %s rejected: %s (%s)", c.Method(), c.OriginalURL(), richErr.Message, richErr.TextCode)
	return c.Status(status).JSON(ErrorResponse{
		Error:    richErr.Message,
		TextCode: richErr.TextCode,
	})
}

func statusFor(err *goerrors.Error) int {
	if err.Code >= 400 && err.Code < 600 {
		return err.Code
	}

	switch err.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
