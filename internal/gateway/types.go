// Package gateway implements the connection-facing edge server: opcode-range
// message routing, authenticated session lifecycle, and the WebSocket/HTTP
// transport that ties them to the auth service.
package gateway

import (
	"time"

	"github.com/kcenon/common-game-server/internal/auth"
)

// SessionID identifies a single client connection to the gateway.
type SessionID uint64

// ClientState is the connection lifecycle state of a gateway session.
type ClientState uint8

const (
	// StateUnauthenticated is set on a connection that has not yet
	// presented a valid access token.
	StateUnauthenticated ClientState = iota
	// StateAuthenticated means the token has been validated and the
	// session is ready for message routing.
	StateAuthenticated
	// StateMigrating means the session is being transferred to another
	// game server; gateway-level opcodes are still handled, and routes that
	// require authentication reject its messages until the migration
	// completes.
	StateMigrating
	// StateDisconnecting is a terminal state before the session is
	// removed.
	StateDisconnecting
)

// String returns the human-readable name for a client state, matching the
// original implementation's clientStateName.
func (s ClientState) String() string {
	switch s {
	case StateUnauthenticated:
		return "Unauthenticated"
	case StateAuthenticated:
		return "Authenticated"
	case StateMigrating:
		return "Migrating"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// ClientSession is the gateway's tracked state for one connected client.
type ClientSession struct {
	SessionID      SessionID
	State          ClientState
	Claims         auth.TokenClaims
	UserID         uint64
	RemoteAddress  string
	CurrentService string
	ConnectedAt    time.Time
	LastActivity   time.Time
}

// RouteEntry maps an opcode range to a downstream service.
type RouteEntry struct {
	OpcodeMin    uint16
	OpcodeMax    uint16
	Service      string
	RequiresAuth bool
}

// RouteMatch is the resolved outcome of a RouteTable lookup.
type RouteMatch struct {
	Service      string
	RequiresAuth bool
}

// Gateway-level opcodes (0x0000-0x00FF), handled internally rather than
// forwarded to a downstream service.
const (
	OpcodeAuthenticate    uint16 = 0x0001
	OpcodeAuthResult      uint16 = 0x0002
	OpcodeServerTransfer  uint16 = 0x0010
	OpcodeMigrationAck    uint16 = 0x0011
	OpcodePing            uint16 = 0x00FE
	OpcodePong            uint16 = 0x00FF
	gatewayOpcodeMax      uint16 = 0x00FF
)

// Config configures the gateway server's limits and timeouts.
type Config struct {
	AuthTimeout         time.Duration
	RateLimitCapacity   uint32
	RateLimitRefillRate uint32
	MaxConnections      uint32
	IdleTimeout         time.Duration
}

// DefaultConfig returns the gateway defaults, matching GatewayConfig's
// original field defaults.
func DefaultConfig() Config {
	return Config{
		AuthTimeout:         10 * time.Second,
		RateLimitCapacity:   100,
		RateLimitRefillRate: 50,
		MaxConnections:      10000,
		IdleTimeout:         300 * time.Second,
	}
}

// ActionType describes what the gateway decided to do with a message.
type ActionType uint8

const (
	// ActionForward means the payload should be forwarded to a
	// downstream service.
	ActionForward ActionType = iota
	// ActionReply means the gateway itself replies to the client.
	ActionReply
	// ActionDrop means the message is silently discarded.
	ActionDrop
)

// Action is the outcome of Server.HandleMessage: what the transport layer
// should do next.
type Action struct {
	Type          ActionType
	TargetService string
	ReplyOpcode   uint16
	ReplyPayload  []byte
	Reason        string
}

// Stats is a runtime snapshot of gateway counters.
type Stats struct {
	TotalConnections          int
	AuthenticatedConnections  int
	UnauthenticatedConnections int
	MigratingConnections      int
	MessagesRouted            uint64
	MessagesDropped           uint64
	AuthSuccessCount          uint64
	AuthFailureCount          uint64
	RateLimitHits             uint64
}
