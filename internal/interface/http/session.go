package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmoana/uvwatch/internal/domain/exposure"
)

const sessionCookie = "uvwatch_session"

// loadSession resolves the caller's session ID and stored state, minting
// a fresh cookie when none exists. New sessions start at the default
// coordinate.
func (h *Handler) loadSession(c *gin.Context) (string, exposure.SessionState) {
	sessionID, err := c.Cookie(sessionCookie)
	if err != nil || sessionID == "" {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, sessionID, int(h.sessionTTL.Seconds()), "/", "", false, true)
		return sessionID, exposure.SessionState{Coordinate: h.defaultLoc}
	}

	state, found, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Warn("session load failed", "error", err)
	}
	if !found {
		return sessionID, exposure.SessionState{Coordinate: h.defaultLoc}
	}
	return sessionID, state
}

func (h *Handler) saveSession(c *gin.Context, sessionID string, state exposure.SessionState) {
	if err := h.sessions.Save(c.Request.Context(), sessionID, state, h.sessionTTL); err != nil {
		h.logger.Warn("session save failed", "error", err)
	}
}
