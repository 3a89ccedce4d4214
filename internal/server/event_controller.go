package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seaporthq/seaport/internal/events"
	"github.com/seaporthq/seaport/internal/marketplace"
	"go.uber.org/zap"
)

// InlineProcessor handles events that must be answered on the webhook request
// itself instead of being queued.
type InlineProcessor interface {
	ProcessInline(ctx context.Context, eventURL string, event marketplace.Event) marketplace.Result
}

// requireMarketplaceAuth guards the webhook with the outbound credentials the
// marketplace was issued. Comparison is constant time.
func (s *Server) requireMarketplaceAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.Marketplace.OutClientID)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Marketplace.OutClientSecret)) == 1
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", `Basic realm="seaport"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.Next()
	}
}

// handleMarketplaceEvent receives one marketplace webhook ping. Notices are
// answered inline with a result body; everything else is queued and answered
// 202, with the real result submitted by the worker once processing is done.
func (s *Server) handleMarketplaceEvent(c *gin.Context) {
	eventURL := c.Query("eventUrl")
	if eventURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "eventUrl query parameter is required"})
		return
	}

	event, err := s.marketplace.FetchEvent(c.Request.Context(), eventURL)
	if errors.Is(err, marketplace.ErrEventGone) {
		// Already consumed, most likely a marketplace retry.
		c.JSON(http.StatusOK, marketplace.SuccessResult())
		return
	}
	if err != nil {
		s.log.Error("server.event.fetch_failed",
			zap.String("event_url", eventURL),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to fetch event from marketplace"})
		return
	}

	if events.IsSynchronous(event) {
		result := s.inline.ProcessInline(c.Request.Context(), eventURL, event)
		c.JSON(http.StatusOK, result)
		return
	}

	item, err := s.queue.Enqueue(c.Request.Context(), eventURL)
	if err != nil {
		s.log.Error("server.event.enqueue_failed",
			zap.String("event_url", eventURL),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to queue event"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"id":     item.ID.String(),
	})
}
