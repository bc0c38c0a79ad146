package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/huddle/pkg/api"
	"github.com/platinummonkey/huddle/pkg/assets"
	"github.com/platinummonkey/huddle/pkg/audit"
	"github.com/platinummonkey/huddle/pkg/auth"
	"github.com/platinummonkey/huddle/pkg/config"
	"github.com/platinummonkey/huddle/pkg/loader"
	"github.com/platinummonkey/huddle/pkg/middleware"
	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
	"github.com/platinummonkey/huddle/pkg/schools"
	"github.com/platinummonkey/huddle/pkg/storage"
	"github.com/platinummonkey/huddle/pkg/users"
)

const activityTimeout = 5 * time.Second

// app holds the wired domain layer
type app struct {
	users     *users.Service
	schools   *schools.Service
	relations api.LoaderRelations
	assets    *assets.Store
	roles     *rbac.Store
}

func newApp(db *sqlx.DB, blobs storage.BlobStore, metrics *observability.Metrics, logger *observability.Logger) (*app, error) {
	dbActivity, err := audit.NewDBLogger(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity logger: %w", err)
	}
	activity := audit.NewRecorder(audit.NewMultiLogger(dbActivity, audit.NewLogLogger(logger)), activityTimeout)

	roles := rbac.NewStore(db)
	assetStore := assets.NewStore(db)
	userStore := users.NewStore(db)
	schoolStore := schools.NewStore(db)

	authz := rbac.NewEvaluator(roles, metrics.AuthzDecisionsTotal)
	assembler := query.NewAssembler(db, metrics.QueryDuration)
	promoter := assets.NewPromoter(assetStore, blobs)

	userLoaders := users.NewLoaders(userStore, roles)
	schoolLoaders := schools.NewLoaders(schoolStore)
	assetLoaders := assets.NewLoaders(assetStore)

	return &app{
		users: users.NewService(users.Deps{
			DB:        db,
			Store:     userStore,
			Loaders:   userLoaders,
			Assembler: assembler,
			Authz:     authz,
			Promoter:  promoter,
			Activity:  activity,
		}),
		schools: schools.NewService(schools.Deps{
			DB:        db,
			Store:     schoolStore,
			Loaders:   schoolLoaders,
			Assembler: assembler,
			Authz:     authz,
			Promoter:  promoter,
			Activity:  activity,
		}),
		relations: api.LoaderRelations{Users: userLoaders, Schools: schoolLoaders, Assets: assetLoaders},
		assets:    assetStore,
		roles:     roles,
	}, nil
}

// newAuthenticator accepts huddle session tokens and, when configured, OIDC
// ID tokens
func newAuthenticator(ctx context.Context, cfg config.AuthConfig, callers auth.CallerSource) (*auth.Authenticator, error) {
	var verifiers []auth.Verifier
	if cfg.JWTSecret != "" {
		sessions, err := auth.NewSessionIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, sessions)
	}
	if cfg.OIDCIssuerURL != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, oidcVerifier)
	}
	return auth.NewAuthenticator(callers, auth.CacheConfig{Size: cfg.CacheSize, TTL: cfg.CacheTTL}, verifiers...), nil
}

// newRedisClient returns nil when no Redis URL is configured
func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// newRateLimit shares limits across replicas through Redis when a client is
// available and keeps them in process otherwise. It returns nil when rate
// limiting is disabled.
func newRateLimit(cfg config.RateLimitConfig, client *redis.Client, metrics *observability.Metrics) *middleware.RateLimitMiddleware {
	if !cfg.Enabled {
		return nil
	}
	userCfg := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RequestsPerWindow,
		WindowDuration:    cfg.Window,
		BurstSize:         cfg.BurstSize,
		MaxKeys:           cfg.MaxKeys,
	}
	anonCfg := userCfg
	anonCfg.RequestsPerWindow = cfg.AnonymousRequests

	if client != nil {
		return middleware.NewRateLimitMiddleware(
			middleware.NewDistributedRateLimiter(client, userCfg, "huddle:ratelimit:user"),
			middleware.NewDistributedRateLimiter(client, anonCfg, "huddle:ratelimit:anon"),
			metrics.RateLimitedTotal,
		)
	}
	return middleware.NewRateLimitMiddleware(
		middleware.NewRateLimiter(userCfg),
		middleware.NewRateLimiter(anonCfg),
		metrics.RateLimitedTotal,
	)
}

func loaderOptions(cfg config.LoaderConfig, metrics *observability.Metrics) loader.Options {
	return loader.Options{
		Wait:       cfg.Wait,
		MaxBatch:   cfg.MaxBatch,
		BatchSizes: metrics.LoaderBatchSize,
	}
}
