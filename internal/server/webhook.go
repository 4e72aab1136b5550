package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/plansync/internal/stripe"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// HandleStripeWebhook verifies and dispatches one notification. The gin
// context is the dispatch target. A critical callback failure answers 500 so
// Stripe redelivers the event.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, stripe.ErrInvalidPayload)
		return
	}

	if err := s.verifier.Verify(payload, c.GetHeader(stripe.SignatureHeader)); err != nil {
		s.log.Warn("webhook signature rejected", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	evt, err := stripe.ParseEvent(payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.dispatcher.Dispatch(c.Request.Context(), c, evt); err != nil {
		s.log.Error("critical webhook callback failed",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type),
			zap.Error(err))
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
