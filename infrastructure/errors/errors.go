// Package errors provides the unified error model shared across the
// gateway, auth, ECS and plugin subsystems.
package errors

import (
	"errors"
	"fmt"
)

// Kind groups errors the way callers need to branch on them.
type Kind string

const (
	// Input errors
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindInvalidUsername Kind = "INVALID_USERNAME"
	KindInvalidEmail     Kind = "INVALID_EMAIL"
	KindWeakPassword     Kind = "WEAK_PASSWORD"

	// Auth errors
	KindInvalidCredentials   Kind = "INVALID_CREDENTIALS"
	KindAuthenticationFailed Kind = "AUTHENTICATION_FAILED"
	KindUserAlreadyExists    Kind = "USER_ALREADY_EXISTS"
	KindRateLimitExceeded    Kind = "RATE_LIMIT_EXCEEDED"
	KindInvalidToken         Kind = "INVALID_TOKEN"
	KindTokenExpired         Kind = "TOKEN_EXPIRED"
	KindTokenRevoked         Kind = "TOKEN_REVOKED"
	KindRefreshTokenExpired  Kind = "REFRESH_TOKEN_EXPIRED"

	// Gateway errors
	KindGatewayNotStarted      Kind = "GATEWAY_NOT_STARTED"
	KindGatewayAlreadyStarted  Kind = "GATEWAY_ALREADY_STARTED"
	KindSessionNotFound        Kind = "SESSION_NOT_FOUND"
	KindConnectionLimitReached Kind = "CONNECTION_LIMIT_REACHED"
	KindClientNotAuthenticated Kind = "CLIENT_NOT_AUTHENTICATED"
	KindGatewayRateLimited     Kind = "GATEWAY_RATE_LIMITED"
	KindMigrationFailed        Kind = "MIGRATION_FAILED"

	// Network errors
	KindInvalidMessage Kind = "INVALID_MESSAGE"
	KindSendFailed     Kind = "SEND_FAILED"
	KindListenFailed   Kind = "LISTEN_FAILED"
	KindNetworkError   Kind = "NETWORK_ERROR"

	// Game server errors
	KindGameServerNotStarted Kind = "GAME_SERVER_NOT_STARTED"
	KindInstanceNotFound     Kind = "INSTANCE_NOT_FOUND"
	KindInstanceFull         Kind = "INSTANCE_FULL"
	KindInstanceNotEmpty     Kind = "INSTANCE_NOT_EMPTY"
	KindPlayerNotFound       Kind = "PLAYER_NOT_FOUND"
	KindPlayerAlreadyInGame  Kind = "PLAYER_ALREADY_IN_GAME"

	// Plugin errors
	KindPluginNotFound             Kind = "PLUGIN_NOT_FOUND"
	KindPluginAlreadyLoaded        Kind = "PLUGIN_ALREADY_LOADED"
	KindPluginLoadFailed           Kind = "PLUGIN_LOAD_FAILED"
	KindPluginInitFailed           Kind = "PLUGIN_INIT_FAILED"
	KindPluginInvalidState         Kind = "PLUGIN_INVALID_STATE"
	KindPluginVersionMismatch      Kind = "PLUGIN_VERSION_MISMATCH"
	KindDependencyError            Kind = "DEPENDENCY_ERROR"
	KindHotReloadDisabled          Kind = "HOT_RELOAD_DISABLED"
	KindHotReloadFailed            Kind = "HOT_RELOAD_FAILED"
	KindStateSerializationFailed   Kind = "STATE_SERIALIZATION_FAILED"
	KindStateDeserializationFailed Kind = "STATE_DESERIALIZATION_FAILED"

	// Logger errors
	KindLoggerError          Kind = "LOGGER_ERROR"
	KindLoggerNotInitialized Kind = "LOGGER_NOT_INITIALIZED"
	KindLoggerFlushFailed    Kind = "LOGGER_FLUSH_FAILED"

	// Generic errors
	KindNotFound          Kind = "NOT_FOUND"
	KindAlreadyExists     Kind = "ALREADY_EXISTS"
	KindInvalidBinaryData Kind = "INVALID_BINARY_DATA"
	KindInvalidJSONData   Kind = "INVALID_JSON_DATA"
)

// ServiceError is the structured error carried across package boundaries
// in place of ad-hoc sentinel errors.
type ServiceError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails adds a diagnostic key/value and returns the receiver for
// chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a ServiceError with no wrapped cause.
func New(kind Kind, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message}
}

// Wrap creates a ServiceError around an underlying cause.
func Wrap(kind Kind, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is a *ServiceError of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// AsServiceError extracts a *ServiceError from an error chain, if present.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	ok := errors.As(err, &se)
	return se, ok
}

// Input errors

func InvalidArgument(field, reason string) *ServiceError {
	return New(KindInvalidArgument, "invalid argument").
		WithDetails("field", field).WithDetails("reason", reason)
}

func InvalidUsername(reason string) *ServiceError {
	return New(KindInvalidUsername, "invalid username").WithDetails("reason", reason)
}

func InvalidEmail(reason string) *ServiceError {
	return New(KindInvalidEmail, "invalid email").WithDetails("reason", reason)
}

func WeakPassword(reason string) *ServiceError {
	return New(KindWeakPassword, "password does not meet strength requirements").WithDetails("reason", reason)
}

// Auth errors

func InvalidCredentials() *ServiceError {
	return New(KindInvalidCredentials, "invalid username or password")
}

func AuthenticationFailed(reason string) *ServiceError {
	return New(KindAuthenticationFailed, "authentication failed").WithDetails("reason", reason)
}

func UserAlreadyExists(username string) *ServiceError {
	return New(KindUserAlreadyExists, "user already exists").WithDetails("username", username)
}

func RateLimitExceeded(key string) *ServiceError {
	return New(KindRateLimitExceeded, "rate limit exceeded").WithDetails("key", key)
}

func InvalidToken(err error) *ServiceError {
	return Wrap(KindInvalidToken, "invalid token", err)
}

func TokenExpired() *ServiceError {
	return New(KindTokenExpired, "token has expired")
}

func TokenRevoked() *ServiceError {
	return New(KindTokenRevoked, "token has been revoked")
}

func RefreshTokenExpired() *ServiceError {
	return New(KindRefreshTokenExpired, "refresh token has expired")
}

// Gateway errors

func GatewayNotStarted() *ServiceError {
	return New(KindGatewayNotStarted, "gateway is not started")
}

func GatewayAlreadyStarted() *ServiceError {
	return New(KindGatewayAlreadyStarted, "gateway is already started")
}

func SessionNotFound(sessionID string) *ServiceError {
	return New(KindSessionNotFound, "session not found").WithDetails("session_id", sessionID)
}

func ConnectionLimitReached(limit int) *ServiceError {
	return New(KindConnectionLimitReached, "connection limit reached").WithDetails("limit", limit)
}

func ClientNotAuthenticated() *ServiceError {
	return New(KindClientNotAuthenticated, "client is not authenticated")
}

func GatewayRateLimited(sessionID string) *ServiceError {
	return New(KindGatewayRateLimited, "gateway rate limit exceeded").WithDetails("session_id", sessionID)
}

func MigrationFailed(reason string) *ServiceError {
	return New(KindMigrationFailed, "migration failed").WithDetails("reason", reason)
}

// Network errors

func InvalidMessage(reason string) *ServiceError {
	return New(KindInvalidMessage, "invalid message").WithDetails("reason", reason)
}

func SendFailed(err error) *ServiceError {
	return Wrap(KindSendFailed, "send failed", err)
}

func ListenFailed(err error) *ServiceError {
	return Wrap(KindListenFailed, "listen failed", err)
}

func NetworkError(err error) *ServiceError {
	return Wrap(KindNetworkError, "network error", err)
}

// Game server errors

func GameServerNotStarted() *ServiceError {
	return New(KindGameServerNotStarted, "game server is not started")
}

func InstanceNotFound(instanceID uint32) *ServiceError {
	return New(KindInstanceNotFound, "instance not found").WithDetails("instance_id", instanceID)
}

func InstanceFull(instanceID uint32) *ServiceError {
	return New(KindInstanceFull, "instance is full").WithDetails("instance_id", instanceID)
}

func InstanceNotEmpty(instanceID uint32) *ServiceError {
	return New(KindInstanceNotEmpty, "instance still has players").WithDetails("instance_id", instanceID)
}

func PlayerNotFound(playerID uint64) *ServiceError {
	return New(KindPlayerNotFound, "player not found").WithDetails("player_id", playerID)
}

func PlayerAlreadyInGame(playerID uint64) *ServiceError {
	return New(KindPlayerAlreadyInGame, "player already has an active session").WithDetails("player_id", playerID)
}

// Plugin errors

func PluginNotFound(name string) *ServiceError {
	return New(KindPluginNotFound, "plugin not found").WithDetails("plugin", name)
}

func PluginAlreadyLoaded(name string) *ServiceError {
	return New(KindPluginAlreadyLoaded, "plugin already loaded").WithDetails("plugin", name)
}

func PluginLoadFailed(name string, err error) *ServiceError {
	return Wrap(KindPluginLoadFailed, "plugin load failed", err).WithDetails("plugin", name)
}

func PluginInitFailed(name string, err error) *ServiceError {
	return Wrap(KindPluginInitFailed, "plugin init failed", err).WithDetails("plugin", name)
}

func PluginInvalidState(name, state string) *ServiceError {
	return New(KindPluginInvalidState, "plugin is in an invalid state for this operation").
		WithDetails("plugin", name).WithDetails("state", state)
}

func PluginVersionMismatch(name string) *ServiceError {
	return New(KindPluginVersionMismatch, "plugin API version mismatch").WithDetails("plugin", name)
}

func DependencyError(name, reason string) *ServiceError {
	return New(KindDependencyError, "plugin dependency error").
		WithDetails("plugin", name).WithDetails("reason", reason)
}

func HotReloadDisabled() *ServiceError {
	return New(KindHotReloadDisabled, "hot reload is disabled")
}

func HotReloadFailed(name string, err error) *ServiceError {
	return Wrap(KindHotReloadFailed, "hot reload failed", err).WithDetails("plugin", name)
}

func StateSerializationFailed(name string, err error) *ServiceError {
	return Wrap(KindStateSerializationFailed, "state serialization failed", err).WithDetails("plugin", name)
}

func StateDeserializationFailed(name string, err error) *ServiceError {
	return Wrap(KindStateDeserializationFailed, "state deserialization failed", err).WithDetails("plugin", name)
}

// Logger errors

func LoggerError(err error) *ServiceError {
	return Wrap(KindLoggerError, "logger error", err)
}

func LoggerNotInitialized() *ServiceError {
	return New(KindLoggerNotInitialized, "logger not initialized")
}

func LoggerFlushFailed(err error) *ServiceError {
	return Wrap(KindLoggerFlushFailed, "logger flush failed", err)
}

// Generic errors

func NotFound(resource, id string) *ServiceError {
	return New(KindNotFound, "resource not found").
		WithDetails("resource", resource).WithDetails("id", id)
}

func AlreadyExists(resource, id string) *ServiceError {
	return New(KindAlreadyExists, "resource already exists").
		WithDetails("resource", resource).WithDetails("id", id)
}

func InvalidBinaryData(reason string) *ServiceError {
	return New(KindInvalidBinaryData, "invalid binary data").WithDetails("reason", reason)
}

func InvalidJSONData(reason string) *ServiceError {
	return New(KindInvalidJSONData, "invalid JSON data").WithDetails("reason", reason)
}
