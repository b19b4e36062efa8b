package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deskchat/deskchat/internal/chat"
)

// outgoingQueueSize buffers frames between the bus delivery callback and
// the websocket write loop.
const outgoingQueueSize = 64

// WSHandler upgrades HTTP connections and runs a chat session over them.
type WSHandler struct {
	deps chat.Deps
	log  *zerolog.Logger
}

// NewWSHandler builds the websocket endpoint handler.
func NewWSHandler(deps chat.Deps, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{deps: deps, log: logger}
}

// Serve handles GET /ws/:room. The room must resolve and the request must
// carry an identity before the handshake is accepted; otherwise the
// connection is refused with a plain HTTP status.
func (h *WSHandler) Serve(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing credentials"})
		return
	}

	roomToken := c.Param("room")
	outgoing := make(chan []byte, outgoingQueueSize)
	deliver := func(payload []byte) {
		select {
		case outgoing <- payload:
		default:
			// Slow consumer; the frame is lost for this connection only.
		}
	}

	sess, err := chat.Join(c.Request.Context(), h.deps, *identity, roomToken, deliver)
	if err != nil {
		h.rejectHandshake(c, roomToken, err)
		return
	}
	// Teardown must run on every exit path, with a context that survives
	// the request's cancellation.
	defer sess.Close(context.Background())

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := sess.Announce(ctx); err != nil {
		h.log.Error().Err(err).Msg("announce failed")
		conn.Close(websocket.StatusInternalError, "announce failed")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, outgoing)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	conn.Close(closeStatus(err))
}

func (h *WSHandler) rejectHandshake(c *gin.Context, roomToken string, err error) {
	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		switch chatErr.Code {
		case chat.ErrCodeRoomNotFound:
			c.JSON(http.StatusNotFound, ErrorResponse{Error: chatErr.Code})
			return
		case chat.ErrCodeMissingIdentity:
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: chatErr.Code})
			return
		}
	}
	h.log.Error().Err(err).Str("room", roomToken).Msg("ws join failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *chat.Session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if err := sess.HandleFrame(ctx, data); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, outgoing <-chan []byte) error {
	for {
		select {
		case payload := <-outgoing:
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// closeStatus maps a loop error to the close frame sent to the client. A
// chat.Error carries its code as the diagnostic close reason.
func closeStatus(err error) (websocket.StatusCode, string) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return websocket.StatusNormalClosure, "closing"
	}

	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		return websocket.StatusPolicyViolation, chatErr.Code
	}

	if s := websocket.CloseStatus(err); s != -1 {
		return websocket.StatusNormalClosure, "closing"
	}

	return websocket.StatusInternalError, "internal error"
}
