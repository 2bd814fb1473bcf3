// Package main is the authentication service entry point: registration,
// login, refresh, logout, and the token-validation endpoint the gateway
// calls to authenticate inbound connections.
package main

import (
	"context"
	"net/http"

	"github.com/go-redis/redis/v8"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
	"github.com/kcenon/common-game-server/infrastructure/httputil"
	"github.com/kcenon/common-game-server/infrastructure/logging"
	"github.com/kcenon/common-game-server/infrastructure/service"
	"github.com/kcenon/common-game-server/internal/auth"
	"github.com/kcenon/common-game-server/internal/config"
	"github.com/kcenon/common-game-server/internal/platform/database"
	"github.com/kcenon/common-game-server/internal/platform/migrations"
)

func main() {
	service.Run(map[string]service.Factory{
		"auth": newAuthService,
	})
}

func newAuthService(deps *service.SharedDeps) (service.GameService, error) {
	cfg := deps.Config
	ctx := context.Background()

	users, tokens, revocation, pinger, err := wireBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svcCfg := auth.Config{
		JWT: auth.TokenProviderConfig{
			SigningKey: cfg.Auth.SigningKey,
			Algorithm:  auth.JWTAlgorithm(cfg.Auth.SigningAlgorithm),
		},
		AccessTokenExpiry:        cfg.Auth.AccessTokenTTL,
		RefreshTokenExpiry:       cfg.Auth.RefreshTokenTTL,
		BlacklistCleanupInterval: cfg.Auth.BlacklistCleanupInterval,
		MinPasswordLength:        8,
		RateLimitMaxAttempts:     uint32(cfg.Auth.LoginMaxAttempts),
		RateLimitWindow:          cfg.Auth.LoginWindow,
	}
	authSvc := auth.NewService(svcCfg, users, tokens, revocation)

	deps.Logger.WithField("env", string(cfg.Env)).Info("auth service initialized")

	base := service.NewBase(&service.BaseConfig{
		ID:      "auth",
		Name:    "Authentication Service",
		Version: "1.0.0",
		Logger:  deps.Logger,
		Dependencies: map[string]service.Pinger{
			"backend": pinger,
		},
	})
	base.RegisterStandardRoutes()
	base.WithStats(func() map[string]any {
		return map[string]any{
			"blacklist_cleanup_interval": cfg.Auth.BlacklistCleanupInterval.String(),
		}
	})

	maintenance := auth.NewMaintenance(authSvc)
	base.AddWorker(func(ctx context.Context) {
		if err := maintenance.Start(ctx, tokens); err != nil {
			deps.Logger.WithError(err).Error("auth maintenance scheduler failed to start")
			return
		}
		<-base.StopChan()
		maintenance.Stop()
	})

	registerAuthRoutes(base, authSvc)
	return base, nil
}

// wireBackends chooses SQL+Redis or in-memory persistence depending on
// whether AUTH_DATABASE_URL / AUTH_REDIS_ADDR are configured, matching the
// original's environment-driven backend selection for local development.
func wireBackends(ctx context.Context, cfg *config.Config) (auth.IUserRepository, auth.ITokenStore, auth.RevocationSet, service.Pinger, error) {
	if cfg.Auth.DatabaseURL == "" {
		users := auth.NewInMemoryUserRepository()
		tokens := auth.NewInMemoryTokenStore()
		revocation := auth.NewInMemoryRevocationSet(cfg.Auth.BlacklistCleanupInterval)
		return users, tokens, revocation, pingerFunc(func(context.Context) error { return nil }), nil
	}

	db, err := database.Open(ctx, cfg.Auth.DatabaseURL)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := migrations.Apply(db.DB); err != nil {
		return nil, nil, nil, nil, err
	}
	users := auth.NewSQLUserRepository(db)

	var tokens auth.ITokenStore = auth.NewInMemoryTokenStore()
	var revocation auth.RevocationSet = auth.NewInMemoryRevocationSet(cfg.Auth.BlacklistCleanupInterval)
	pinger := pingerFunc(func(ctx context.Context) error { return db.PingContext(ctx) })

	if cfg.Auth.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Auth.RedisAddr})
		tokens = auth.NewRedisTokenStore(client, "auth:refresh:")
		revocation = auth.NewRedisRevocationSet(client, "auth:revoked:")
		redisPinger := pinger
		pinger = pingerFunc(func(ctx context.Context) error {
			if err := redisPinger(ctx); err != nil {
				return err
			}
			return client.Ping(ctx).Err()
		})
	}

	return users, tokens, revocation, pinger, nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// ---------------------------------------------------------------------------
// HTTP surface
// ---------------------------------------------------------------------------

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type validateRequest struct {
	AccessToken string `json:"access_token"`
}

type userResponse struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

func registerAuthRoutes(base *service.BaseService, authSvc *auth.Service) {
	logger := base.Logger()
	router := base.Router()

	router.HandleFunc("/v1/auth/register", httputil.HandleJSON(logger,
		func(ctx context.Context, req *registerRequest) (userResponse, error) {
			user, err := authSvc.RegisterUser(ctx, req.Username, req.Email, req.Password)
			if err != nil {
				return userResponse{}, mapAuthError(err)
			}
			return userResponse{ID: user.ID, Username: user.Username, Email: user.Email, Status: string(user.Status)}, nil
		})).Methods("POST")

	router.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !httputil.DecodeJSON(w, r, &req) {
			return
		}
		pair, err := authSvc.Login(r.Context(), req.Username, req.Password, httputil.ClientIP(r))
		if err != nil {
			writeAuthError(w, r, logger, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, pair)
	}).Methods("POST")

	router.HandleFunc("/v1/auth/refresh", httputil.HandleJSON(logger,
		func(ctx context.Context, req *refreshRequest) (*auth.TokenPair, error) {
			pair, err := authSvc.RefreshToken(ctx, req.RefreshToken)
			if err != nil {
				return nil, mapAuthError(err)
			}
			return pair, nil
		})).Methods("POST")

	router.HandleFunc("/v1/auth/logout", httputil.HandleJSON(logger,
		func(ctx context.Context, req *logoutRequest) (map[string]bool, error) {
			if err := authSvc.Logout(ctx, req.RefreshToken); err != nil {
				return nil, mapAuthError(err)
			}
			return map[string]bool{"ok": true}, nil
		})).Methods("POST")

	// Internal endpoint used by the gateway to validate a presented access
	// token without either service sharing a signing key out of band.
	router.HandleFunc("/v1/auth/validate", httputil.HandleJSON(logger,
		func(ctx context.Context, req *validateRequest) (*auth.TokenClaims, error) {
			claims, err := authSvc.ValidateToken(ctx, req.AccessToken)
			if err != nil {
				return nil, mapAuthError(err)
			}
			return claims, nil
		})).Methods("POST")
}

// mapAuthError translates a *svcerr.ServiceError into the httputil typed error used
// by HandleJSON's error-to-status mapping.
func mapAuthError(err error) error {
	switch {
	case svcerr.IsKind(err, svcerr.KindUserAlreadyExists):
		return &httputil.ConflictError{Message: err.Error()}
	case svcerr.IsKind(err, svcerr.KindInvalidCredentials),
		svcerr.IsKind(err, svcerr.KindAuthenticationFailed),
		svcerr.IsKind(err, svcerr.KindInvalidToken),
		svcerr.IsKind(err, svcerr.KindTokenExpired),
		svcerr.IsKind(err, svcerr.KindTokenRevoked),
		svcerr.IsKind(err, svcerr.KindRefreshTokenExpired):
		return &httputil.UnauthorizedError{Message: err.Error()}
	case svcerr.IsKind(err, svcerr.KindRateLimitExceeded):
		return &httputil.ServiceUnavailableError{Message: err.Error()}
	default:
		return &httputil.ValidationError{Message: err.Error()}
	}
}

// writeAuthError is mapAuthError's non-HandleJSON counterpart, for handlers
// (like login) that need direct access to *http.Request.
func writeAuthError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	logger.WithContext(r.Context()).WithError(err).Warn("auth request failed")
	switch {
	case svcerr.IsKind(err, svcerr.KindUserAlreadyExists):
		httputil.Conflict(w, err.Error())
	case svcerr.IsKind(err, svcerr.KindInvalidCredentials),
		svcerr.IsKind(err, svcerr.KindAuthenticationFailed),
		svcerr.IsKind(err, svcerr.KindInvalidToken),
		svcerr.IsKind(err, svcerr.KindTokenExpired),
		svcerr.IsKind(err, svcerr.KindTokenRevoked),
		svcerr.IsKind(err, svcerr.KindRefreshTokenExpired):
		httputil.Unauthorized(w, err.Error())
	case svcerr.IsKind(err, svcerr.KindRateLimitExceeded):
		httputil.ServiceUnavailable(w, err.Error())
	default:
		httputil.BadRequest(w, err.Error())
	}
}
