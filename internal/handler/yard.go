package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/depot-yard/internal/allocator"
	"github.com/iliyamo/depot-yard/internal/middleware"
)

// YardHandler exposes the allocator over HTTP.  Every write is attributed
// to the authenticated actor.
type YardHandler struct {
	Alloc *allocator.Allocator
}

// NewYardHandler constructs a YardHandler and panics if alloc is nil.
func NewYardHandler(alloc *allocator.Allocator) *YardHandler {
	if alloc == nil {
		panic("nil allocator passed to NewYardHandler")
	}
	return &YardHandler{Alloc: alloc}
}

// StackMap handles GET /v1/yard/stack-map.
func (h *YardHandler) StackMap(c echo.Context) error {
	items, err := h.Alloc.StackMap(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SlotStack handles GET /v1/yard/slots/:id/stack.
func (h *YardHandler) SlotStack(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "invalid slot id")
	}
	stack, err := h.Alloc.StackForSlot(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": stack})
}

// Locate handles GET /v1/yard/containers/:container_no/location.
func (h *YardHandler) Locate(c echo.Context) error {
	loc, err := h.Alloc.Locate(c.Request().Context(), c.Param("container_no"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": loc})
}

// Suggest handles GET /v1/yard/suggest?container=.  The container is
// optional.
func (h *YardHandler) Suggest(c echo.Context) error {
	items, err := h.Alloc.Suggest(c.Request().Context(), c.QueryParam("container"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type holdRequest struct {
	SlotID uint64 `json:"slot_id"`
	Tier   *int   `json:"tier"`
}

// Hold handles POST /v1/yard/holds.  Without a tier the next free tier is
// held.
func (h *YardHandler) Hold(c echo.Context) error {
	var body holdRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.Alloc.Hold(c.Request().Context(), body.SlotID, body.Tier, middleware.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": p})
}

type confirmRequest struct {
	SlotID      uint64 `json:"slot_id"`
	Tier        int    `json:"tier"`
	ContainerNo string `json:"container_no"`
}

// Confirm handles POST /v1/yard/confirm.
func (h *YardHandler) Confirm(c echo.Context) error {
	var body confirmRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Alloc.Confirm(c.Request().Context(), body.SlotID, body.Tier, body.ContainerNo, middleware.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": res})
}

type releaseRequest struct {
	SlotID uint64 `json:"slot_id"`
	Tier   int    `json:"tier"`
}

// Release handles POST /v1/yard/release.
func (h *YardHandler) Release(c echo.Context) error {
	var body releaseRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.Alloc.Release(c.Request().Context(), body.SlotID, body.Tier, middleware.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": p})
}

type removeRequest struct {
	ContainerNo string `json:"container_no"`
}

// Remove handles POST /v1/yard/remove.
func (h *YardHandler) Remove(c echo.Context) error {
	var body removeRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.Alloc.Remove(c.Request().Context(), body.ContainerNo, middleware.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": p})
}
