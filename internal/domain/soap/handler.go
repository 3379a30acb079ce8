package soap

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinscribe/clinscribe/internal/platform/auth"
	"github.com/clinscribe/clinscribe/internal/platform/reasoner"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("/soap", auth.RequireRole("admin", "physician", "nurse"))
	grp.POST("/extract", h.Extract)
	grp.GET("/encounter/:id", h.GetNotesByEncounter)
}

// Extract runs transcript-to-note extraction. Transient reasoner failures
// map to distinct status codes so clients can choose between retry, backoff,
// and permanent failure.
func (h *Handler) Extract(c echo.Context) error {
	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	note, err := h.svc.Extract(c.Request().Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, reasoner.ErrTimeout):
			return echo.NewHTTPError(http.StatusGatewayTimeout, "reasoning service timeout")
		case errors.Is(err, reasoner.ErrRateLimited):
			c.Response().Header().Set("Retry-After", "30")
			return echo.NewHTTPError(http.StatusTooManyRequests, "reasoning service rate limit exceeded")
		case errors.Is(err, reasoner.ErrOverloaded):
			return echo.NewHTTPError(http.StatusBadGateway, "reasoning service overloaded")
		case errors.Is(err, reasoner.ErrExtraction):
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	return c.JSON(http.StatusOK, note)
}

func (h *Handler) GetNotesByEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	notes, err := h.svc.GetNotesByEncounter(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, notes)
}
