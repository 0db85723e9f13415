package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/depot-yard/internal/allocator"
	"github.com/iliyamo/depot-yard/internal/middleware"
)

// statusFor maps an allocator error kind to an HTTP status.
func statusFor(kind allocator.Kind) int {
	switch kind {
	case allocator.KindInvalidInput:
		return http.StatusBadRequest
	case allocator.KindSlotNotFound, allocator.KindNotFound:
		return http.StatusNotFound
	case allocator.KindContainerNotEligible:
		return http.StatusUnprocessableEntity
	case allocator.KindInvalidTier,
		allocator.KindStackCapacityExceeded,
		allocator.KindTierOccupied,
		allocator.KindTierAlreadyHeld,
		allocator.KindHoldNotFoundOrExpired,
		allocator.KindDuplicateOccupied,
		allocator.KindStackOrderViolation,
		allocator.KindNotHeld,
		allocator.KindNotOccupied,
		allocator.KindAlreadyAssigned,
		allocator.KindConcurrencyConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error", "kind", "retryable"}.  Errors that do
// not come from the allocator are reported as INTERNAL without detail.
func writeError(c echo.Context, err error) error {
	kind := allocator.KindOf(err)
	if kind == "" {
		kind = allocator.KindInternal
	}
	msg := "internal error"
	if kind != allocator.KindInternal {
		msg = allocator.Message(err)
	} else {
		middleware.Logger(c).Error("request failed", "path", c.Request().URL.Path, "err", err)
	}
	return c.JSON(statusFor(kind), echo.Map{
		"error":     msg,
		"kind":      kind,
		"retryable": kind.Retryable(),
	})
}

// badRequest reports a malformed request the same way as validation errors.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":     msg,
		"kind":      allocator.KindInvalidInput,
		"retryable": false,
	})
}
