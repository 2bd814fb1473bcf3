package gateway

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kcenon/common-game-server/infrastructure/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var nextSessionID atomic.Uint64

// Listener accepts WebSocket connections and drives them through a Server,
// translating between the gorilla/websocket wire framing and the Server's
// opcode/payload interface.
type Listener struct {
	server *Server
	logger *logging.Logger

	// Forward is invoked for messages routed to a downstream service. The
	// gateway itself has no transport to other services; callers (the
	// cmd/gateway wiring) supply the actual forwarding mechanism.
	Forward func(ctx context.Context, sessionID SessionID, service string, opcode uint16, payload []byte)
}

// NewListener constructs a Listener bound to server.
func NewListener(server *Server, logger *logging.Logger) *Listener {
	return &Listener{server: server, logger: logger}
}

// ServeHTTP upgrades the connection to a WebSocket and services it until
// reading from the client fails. Stopping the gateway does not close the
// connection; its messages are rejected and skipped from then on.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := SessionID(nextSessionID.Add(1))
	remoteAddr := r.RemoteAddr

	if err := l.server.HandleConnect(sessionID, remoteAddr); err != nil {
		l.logger.WithError(err).WithField("session_id", sessionID).Warn("connection rejected")
		return
	}
	defer l.server.HandleDisconnect(sessionID)

	l.serveConn(r.Context(), conn, sessionID)
}

func (l *Listener) serveConn(ctx context.Context, conn *websocket.Conn, sessionID SessionID) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		msg, err := Decode(data)
		if err != nil {
			l.logger.WithError(err).WithField("session_id", sessionID).Debug("malformed frame rejected")
			continue
		}

		action, err := l.server.HandleMessage(ctx, sessionID, msg.Opcode, msg.Payload)
		if err != nil {
			l.logger.WithError(err).WithField("session_id", sessionID).Debug("message rejected")
			continue
		}

		switch action.Type {
		case ActionReply:
			l.writeFrame(conn, action.ReplyOpcode, action.ReplyPayload)
		case ActionForward:
			if l.Forward != nil {
				l.Forward(ctx, sessionID, action.TargetService, msg.Opcode, msg.Payload)
			}
		case ActionDrop:
			// no-op
		}
	}
}

func (l *Listener) writeFrame(conn *websocket.Conn, opcode uint16, payload []byte) {
	frame := Encode(Message{Opcode: opcode, Payload: payload})

	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		l.logger.WithError(err).Debug("write frame failed")
	}
}
