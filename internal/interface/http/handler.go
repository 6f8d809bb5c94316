package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmoana/uvwatch/internal/domain/exposure"
	"github.com/tmoana/uvwatch/internal/infra/sessionstore"
)

// Handler wires the HTTP transport to the exposure pipeline.
type Handler struct {
	exposureSvc exposure.Service
	sessions    sessionstore.Store
	defaultLoc  exposure.Coordinate
	sessionTTL  time.Duration
	logger      *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(exposureSvc exposure.Service, sessions sessionstore.Store, defaultLoc exposure.Coordinate, sessionTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		exposureSvc: exposureSvc,
		sessions:    sessions,
		defaultLoc:  defaultLoc,
		sessionTTL:  sessionTTL,
		logger:      logger.With("component", "http.handler"),
	}
}

type locationRequest struct {
	Lat *float64 `json:"lat" form:"lat"`
	Lon *float64 `json:"lon" form:"lon"`
}

// Report runs the exposure pipeline for the caller's session and returns
// the display context.
func (h *Handler) Report(c *gin.Context) {
	sessionID, state := h.loadSession(c)

	out, next, err := h.exposureSvc.Report(c.Request.Context(), state)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "report_failed", errMessage(err), err))
		return
	}

	h.saveSession(c, sessionID, next)
	c.JSON(http.StatusOK, out)
}

// SetLocation updates the session coordinate from a JSON payload.
func (h *Handler) SetLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if httpErr := h.updateLocation(c, req); httpErr != nil {
		abortWithError(c, httpErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UserLocation updates the session coordinate from a form post and
// redirects back to the index page. The form may send separate lat/lon
// fields or a single delimited latlon value.
func (h *Handler) UserLocation(c *gin.Context) {
	var req locationRequest
	if latlon := c.PostForm("latlon"); latlon != "" {
		parsed, ok := parseDelimitedCoordinate(latlon)
		if !ok {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "latlon must be \"lat,lon\"", nil))
			return
		}
		req = parsed
	} else if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if httpErr := h.updateLocation(c, req); httpErr != nil {
		abortWithError(c, httpErr)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func parseDelimitedCoordinate(value string) (locationRequest, bool) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return locationRequest{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return locationRequest{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return locationRequest{}, false
	}
	return locationRequest{Lat: &lat, Lon: &lon}, true
}

func (h *Handler) updateLocation(c *gin.Context, req locationRequest) *HTTPError {
	if req.Lat == nil || req.Lon == nil {
		return NewHTTPError(http.StatusBadRequest, "invalid_request", "lat and lon are required", nil)
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lon < -180 || *req.Lon > 180 {
		return NewHTTPError(http.StatusBadRequest, "invalid_request", "coordinate out of range", nil)
	}

	sessionID, state := h.loadSession(c)
	next := exposure.Coordinate{Lat: *req.Lat, Lon: *req.Lon}
	if state.Cache != nil && state.Cache.LocationKey != exposure.LocationKey(next) {
		// A cached report belongs to the old coordinate; drop it so the
		// next report fetches fresh data even if the session later moves
		// back within the TTL.
		state.Cache = nil
	}
	state.Coordinate = next
	h.saveSession(c, sessionID, state)
	return nil
}

// ClearCache drops the cached report for the caller's session.
func (h *Handler) ClearCache(c *gin.Context) {
	sessionID, state := h.loadSession(c)
	state.Cache = nil
	h.saveSession(c, sessionID, state)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
