package notify

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/easychat/auth/authctx"
	apperrors "github.com/kbukum/easychat/errors"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/server"
)

// DefaultKeepAlive is the interval between keep-alive comments. It stays
// below common proxy idle timeouts.
const DefaultKeepAlive = 15 * time.Second

var errHubStopped = errors.New("event hub stopped")

// connectedPayload is the data of the first event of a stream.
type connectedPayload struct {
	ClientID string `json:"clientId"`
	UserID   int64  `json:"userId"`
}

// Handler serves the event stream of the authenticated user.
type Handler struct {
	hub       *Hub
	log       *logger.Logger
	keepAlive time.Duration
}

// NewHandler creates a stream handler over hub. A keepAlive of zero uses
// DefaultKeepAlive.
func NewHandler(hub *Hub, log *logger.Logger, keepAlive time.Duration) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &Handler{hub: hub, log: log.WithComponent("notify"), keepAlive: keepAlive}
}

// Register mounts GET /api/events.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/events", h.Stream)
}

// Stream holds the connection open and writes every event addressed to the
// caller. It returns when the client disconnects or the hub stops.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	identity, err := authctx.RequireIdentity(ctx)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	clientID := uuid.NewString()
	log := h.log.WithContext(ctx).WithFields(map[string]interface{}{
		"client_id":           clientID,
		logger.FieldUserID:    identity.ID,
		logger.FieldRequestID: authctx.RequestIDFrom(ctx),
	})

	// Event streams are long-lived; the server write timeout must not cut them.
	rc := http.NewResponseController(c.Writer)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("Could not disable write deadline", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	client := NewClient(clientID, identity.ID)
	if !h.hub.Register(client) {
		server.RespondWithError(c, apperrors.Internal(errHubStopped))
		return
	}
	defer h.hub.Unregister(client)

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	hello, _ := Encode(EventConnected, connectedPayload{ClientID: clientID, UserID: identity.ID})
	_, _ = w.Write(hello)
	w.Flush()
	log.Debug("Event stream opened")

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Event stream closed", map[string]interface{}{
				"reason": ctx.Err().Error(),
			})
			return

		case frame, ok := <-client.Events():
			if !ok {
				log.Debug("Event stream closed by hub")
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			w.Flush()

		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			w.Flush()
		}
	}
}
