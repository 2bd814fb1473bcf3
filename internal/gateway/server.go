package gateway

import (
	"context"
	"strconv"
	"sync/atomic"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
	"github.com/kcenon/common-game-server/internal/auth"
	"github.com/kcenon/common-game-server/internal/ratelimit"
)

// Validator is the subset of auth.Service the gateway depends on to check
// client-presented access tokens without importing the whole auth surface.
type Validator interface {
	ValidateToken(ctx context.Context, accessToken string) (*auth.TokenClaims, error)
}

// Server is the gateway's connection-facing core: it tracks session
// lifecycle, delegates authentication to a Validator, rate-limits inbound
// traffic per session, and routes non-gateway opcodes to downstream
// services by opcode range. It has no knowledge of the wire transport
// (WebSocket framing lives in Listener).
type Server struct {
	cfg       Config
	validator Validator

	sessions *SessionManager
	routes   *RouteTable
	limiter  *ratelimit.TokenBucket

	running atomic.Bool

	messagesRouted   atomic.Uint64
	messagesDropped  atomic.Uint64
	authSuccessCount atomic.Uint64
	authFailureCount atomic.Uint64
	rateLimitHits    atomic.Uint64
}

// NewServer constructs a gateway Server bound to validator for token
// verification.
func NewServer(cfg Config, validator Validator) *Server {
	return &Server{
		cfg:       cfg,
		validator: validator,
		sessions:  NewSessionManager(cfg.MaxConnections),
		routes:    NewRouteTable(),
		limiter:   ratelimit.NewTokenBucket(cfg.RateLimitCapacity, cfg.RateLimitRefillRate),
	}
}

// Start marks the gateway running. Returns an error if already started.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return svcerr.GatewayAlreadyStarted()
	}
	return nil
}

// Stop marks the gateway stopped. Connection teardown is the transport
// layer's responsibility; Stop only flips the running flag so in-flight
// HandleMessage calls start rejecting traffic.
func (s *Server) Stop() {
	s.running.Store(false)
}

// IsRunning reports whether the gateway has been started.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// AddRoute registers an opcode range routed to a downstream service.
func (s *Server) AddRoute(opcodeMin, opcodeMax uint16, service string, requiresAuth bool) {
	s.routes.AddRoute(opcodeMin, opcodeMax, service, requiresAuth)
}

// HandleConnect registers a new client connection.
func (s *Server) HandleConnect(id SessionID, remoteAddress string) error {
	if !s.running.Load() {
		return svcerr.GatewayNotStarted()
	}
	if !s.sessions.CreateSession(id, remoteAddress) {
		return svcerr.ConnectionLimitReached(int(s.cfg.MaxConnections))
	}
	return nil
}

// HandleDisconnect tears down a session's tracked state.
func (s *Server) HandleDisconnect(id SessionID) {
	if session, ok := s.sessions.GetSession(id); ok {
		s.limiter.Remove(session.RemoteAddress)
	}
	s.sessions.RemoveSession(id)
}

// HandleMessage processes one inbound message and decides what the
// transport layer should do with it: forward to a downstream service,
// reply directly, or drop.
func (s *Server) HandleMessage(ctx context.Context, id SessionID, opcode uint16, payload []byte) (Action, error) {
	if !s.running.Load() {
		return Action{}, svcerr.GatewayNotStarted()
	}

	session, ok := s.sessions.GetSession(id)
	if !ok {
		return Action{}, svcerr.SessionNotFound(strconv.FormatUint(uint64(id), 10))
	}

	if !s.limiter.Consume(session.RemoteAddress) {
		s.rateLimitHits.Add(1)
		s.messagesDropped.Add(1)
		return Action{}, svcerr.GatewayRateLimited(strconv.FormatUint(uint64(id), 10))
	}

	s.sessions.TouchSession(id)

	if IsGatewayOpcode(opcode) {
		return s.handleGatewayOpcode(ctx, id, opcode, payload, session)
	}

	match, found := s.routes.Resolve(opcode)
	if !found {
		s.messagesDropped.Add(1)
		return dropAction("no route for opcode"), nil
	}

	if match.RequiresAuth && session.State != StateAuthenticated {
		s.messagesDropped.Add(1)
		return Action{}, svcerr.ClientNotAuthenticated()
	}

	s.messagesRouted.Add(1)
	return forwardAction(match.Service), nil
}

func (s *Server) handleGatewayOpcode(ctx context.Context, id SessionID, opcode uint16, payload []byte, session ClientSession) (Action, error) {
	switch opcode {
	case OpcodeAuthenticate:
		if session.State != StateUnauthenticated {
			s.messagesDropped.Add(1)
			return dropAction("already authenticated"), nil
		}

		claims, err := s.validator.ValidateToken(ctx, string(payload))
		if err != nil {
			s.authFailureCount.Add(1)
			return replyAction(OpcodeAuthResult, []byte{0x01}), nil
		}

		userID, _ := strconv.ParseUint(claims.Subject, 10, 64)
		if !s.sessions.AuthenticateSession(id, *claims, userID) {
			s.authFailureCount.Add(1)
			return replyAction(OpcodeAuthResult, []byte{0x01}), nil
		}
		s.authSuccessCount.Add(1)
		return replyAction(OpcodeAuthResult, []byte{0x00}), nil

	case OpcodeMigrationAck:
		if session.State != StateMigrating {
			s.messagesDropped.Add(1)
			return dropAction("not in migration state"), nil
		}
		s.sessions.CompleteMigration(id)
		return dropAction("migration ack processed"), nil

	case OpcodePong:
		return dropAction("pong received"), nil

	case OpcodeAuthResult:
		s.messagesDropped.Add(1)
		return dropAction("unexpected direction for opcode"), nil

	default:
		s.messagesDropped.Add(1)
		return dropAction("unknown gateway opcode"), nil
	}
}

// InitiateServerTransfer begins a migration for an authenticated session.
func (s *Server) InitiateServerTransfer(id SessionID, targetService string) error {
	if !s.running.Load() {
		return svcerr.GatewayNotStarted()
	}
	if !s.sessions.BeginMigration(id, targetService) {
		return svcerr.MigrationFailed("session not authenticated or not found")
	}
	return nil
}

// CleanupIdleSessions disconnects authenticated sessions idle past the
// configured timeout, returning the disconnected session IDs.
func (s *Server) CleanupIdleSessions() []SessionID {
	idle := s.sessions.FindIdleSessions(s.cfg.IdleTimeout)
	for _, id := range idle {
		s.HandleDisconnect(id)
	}
	return idle
}

// CleanupExpiredAuth disconnects unauthenticated sessions past the
// configured auth timeout, returning the disconnected session IDs.
func (s *Server) CleanupExpiredAuth() []SessionID {
	expired := s.sessions.FindExpiredAuthSessions(s.cfg.AuthTimeout)
	for _, id := range expired {
		s.HandleDisconnect(id)
	}
	return expired
}

// Stats returns a snapshot of gateway runtime counters.
func (s *Server) Stats() Stats {
	return Stats{
		TotalConnections:           s.sessions.SessionCount(),
		AuthenticatedConnections:   s.sessions.SessionCountByState(StateAuthenticated),
		UnauthenticatedConnections: s.sessions.SessionCountByState(StateUnauthenticated),
		MigratingConnections:       s.sessions.SessionCountByState(StateMigrating),
		MessagesRouted:             s.messagesRouted.Load(),
		MessagesDropped:            s.messagesDropped.Load(),
		AuthSuccessCount:           s.authSuccessCount.Load(),
		AuthFailureCount:           s.authFailureCount.Load(),
		RateLimitHits:              s.rateLimitHits.Load(),
	}
}

// Config returns the gateway's configuration.
func (s *Server) Config() Config {
	return s.cfg
}

func replyAction(opcode uint16, payload []byte) Action {
	return Action{Type: ActionReply, ReplyOpcode: opcode, ReplyPayload: payload}
}

func forwardAction(service string) Action {
	return Action{Type: ActionForward, TargetService: service}
}

func dropAction(reason string) Action {
	return Action{Type: ActionDrop, Reason: reason}
}
