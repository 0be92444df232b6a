package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/raptiye/blog-api/internal/core/ports"
)

const defaultAuditLimit = 50

type AuditHandler struct {
	audit ports.AuditRepository
}

func NewAuditHandler(audit ports.AuditRepository) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Recent lists the most recent authentication events, newest first.
//
// @Summary      Recent authentication events
// @Tags         admin
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of events"  default(50)
// @Success      200    {array}   domain.AuthEvent
// @Failure      401    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/admin/audit [get]
func (h *AuditHandler) Recent(c echo.Context) error {
	limit := int64(defaultAuditLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	events, err := h.audit.Recent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}
