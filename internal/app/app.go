// Package app es la raíz de composición: arma el directorio, el cache, el
// resolver, la política, el registro de sesiones y el servidor HTTP a partir
// de la config, y es dueño de su ciclo de vida.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/mspportal/internal/cache"
	"github.com/dropDatabas3/mspportal/internal/config"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	httpx "github.com/dropDatabas3/mspportal/internal/http"
	adminctrl "github.com/dropDatabas3/mspportal/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/mspportal/internal/http/controllers/health"
	portalctrl "github.com/dropDatabas3/mspportal/internal/http/controllers/portal"
	mw "github.com/dropDatabas3/mspportal/internal/http/middlewares"
	"github.com/dropDatabas3/mspportal/internal/http/router"
	adminsvc "github.com/dropDatabas3/mspportal/internal/http/services/admin"
	healthsvc "github.com/dropDatabas3/mspportal/internal/http/services/health"
	"github.com/dropDatabas3/mspportal/internal/identity"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
	"github.com/dropDatabas3/mspportal/internal/portal"
	"github.com/dropDatabas3/mspportal/internal/portal/session"
	"github.com/dropDatabas3/mspportal/internal/rate"
	"github.com/dropDatabas3/mspportal/internal/store"
	"github.com/dropDatabas3/mspportal/internal/tenant"

	// adapters del directorio, se registran vía init()
	_ "github.com/dropDatabas3/mspportal/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/mspportal/internal/store/adapters/pg"
)

// nearCacheTTL TTL del near-cache en memoria delante de Redis.
const nearCacheTTL = time.Second

// App contiene los componentes de larga vida del servicio.
type App struct {
	Config *config.Config

	Store       store.AdapterConnection
	Cache       cache.Client
	Bus         cache.Bus
	Invalidator *store.Invalidator
	Directory   *store.CachedDirectory
	Resolver    *tenant.Resolver
	Policy      *portal.Policy
	Sessions    *session.Manager
	Limiter     rate.Limiter
	Auth        *identity.JWTAuthenticator

	Handler http.Handler

	closers []func() error
}

// Core arma sólo el núcleo de dominio (directorio, cache, resolver, política,
// sesiones). Lo usan los subcomandos de diagnóstico que no sirven HTTP.
func Core(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	log := logger.From(ctx).With(logger.Component("app"))

	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
		SeedFile:     cfg.Storage.SeedFile,
	})
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	a.Store = conn
	a.closers = append(a.closers, conn.Close)

	if err := a.buildCache(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	ttl := config.Duration(cfg.Cache.TTL, 5*time.Second)
	a.Invalidator = store.NewInvalidator(a.Cache, a.Bus)
	a.Directory = store.NewCachedDirectory(conn.Directory(), a.Cache, ttl).
		WithFetchTimeout(config.Duration(cfg.Portal.LookupTimeout, tenant.DefaultLookupTimeout))
	a.Resolver = tenant.NewResolver(a.Directory,
		tenant.WithLookupTimeout(config.Duration(cfg.Portal.LookupTimeout, tenant.DefaultLookupTimeout)))
	a.Policy = portal.NewPolicy(portal.PolicyConfig{
		MSPOrigin:  cfg.Portal.MSPOrigin,
		AdminHosts: cfg.Portal.AdminHosts,
	})
	a.Sessions = session.NewManager(a.Resolver, a.Policy, session.ManagerConfig{
		MaxAge:      config.Duration(cfg.Portal.SessionMaxAge, 30*time.Second),
		IdleTTL:     config.Duration(cfg.Portal.SessionIdleTTL, 15*time.Minute),
		MaxSessions: cfg.Portal.MaxSessions,
	})
	a.closers = append(a.closers, func() error { a.Sessions.Close(); return nil })

	// toda escritura del directorio (local o de otra réplica) marca stale
	// las sesiones afectadas
	a.Invalidator.OnChange(a.Sessions.Invalidate)

	log.Info("core ready",
		logger.String("storage", conn.Name()),
		logger.String("cache", cfg.Cache.Kind),
		logger.String("msp_origin", a.Policy.MSPOrigin()))
	return a, nil
}

// New arma el servicio completo (core + HTTP).
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a, err := Core(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.buildHTTP(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildCache(ctx context.Context) error {
	cfg := a.Config
	ccfg := cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	}
	window := config.Duration(cfg.Rate.Window, time.Minute)

	if cfg.Cache.Kind != "redis" {
		a.Cache = cache.NewMemory(ccfg.Prefix, 0)
		a.Bus = cache.NewLocalBus()
		if cfg.Rate.Enabled {
			a.Limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, window)
		}
		a.closers = append(a.closers, a.Cache.Close, a.Bus.Close)
		return nil
	}

	far, err := cache.NewRedis(ctx, ccfg)
	if err != nil {
		return err
	}
	a.Cache = cache.NewTiered(cache.NewMemory(ccfg.Prefix, nearCacheTTL), far, nearCacheTTL)
	a.Bus = cache.NewRedisBus(far.Raw(), cfg.Cache.Redis.Channel)
	if cfg.Rate.Enabled {
		a.Limiter = rate.NewRedisLimiter(far.Raw(), ccfg.Prefix+":rl", cfg.Rate.MaxRequests, window)
	}
	a.closers = append(a.closers, a.Bus.Close, a.Cache.Close)
	return nil
}

func (a *App) buildHTTP() error {
	cfg := a.Config

	auth, err := identity.NewJWTAuthenticator(identity.JWTConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.JWTIssuer,
		CookieName: cfg.Auth.CookieName,
	})
	if err != nil {
		return err
	}
	a.Auth = auth

	metricsHandler, err := httpx.RegisterMetrics(httpx.MetricsConfig{Pool: a.pool})
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	adminServices := adminsvc.NewServices(adminsvc.Deps{
		Domains:       store.WithDomainInvalidation(a.Store.TenantDomains(), a.Invalidator),
		AccessConfigs: store.WithConfigInvalidation(a.Store.AccessConfigs(), a.Invalidator),
		Organizations: a.Store.Organizations(),
		Resolver:      a.Resolver,
		DeletePolicy:  types.DeletePolicy(cfg.Tenants.DeletePolicy),
	})
	healthServices := healthsvc.NewServices(healthsvc.Deps{
		Version:        cfg.App.Version,
		DirectoryCheck: a.Store.Ping,
		CacheCheck:     a.Cache.Ping,
		CacheKind:      cfg.Cache.Kind,
		ActiveSessions: a.Sessions.Len,
	})
	guardCfg := mw.GuardConfig{LoginURL: cfg.Auth.LoginURL}

	a.Handler = router.New(router.Deps{
		Admin:         adminctrl.NewControllers(adminServices),
		Portal:        portalctrl.NewControllers(guardCfg),
		Health:        healthctrl.NewControllers(healthServices),
		Sessions:      a.Sessions,
		Authenticator: auth,
		Origin: mw.NewOriginResolver(mw.OriginConfig{
			TrustForwardedHost: cfg.Server.TrustForwardedHost,
			AllowQueryOverride: cfg.App.Env == "dev",
		}),
		RateLimiter: a.Limiter,
		Guard:       guardCfg,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		Metrics:     metricsHandler,
	})
	return nil
}

// pool expone el pool de postgres para el collector de métricas (nil con memory).
func (a *App) pool() *pgxpool.Pool {
	if p, ok := a.Store.(interface{ Pool() *pgxpool.Pool }); ok {
		return p.Pool()
	}
	return nil
}

// Run sirve HTTP y escucha invalidaciones de otras réplicas hasta que ctx
// se cancele o alguno falle.
func (a *App) Run(ctx context.Context) error {
	if a.Handler == nil {
		return fmt.Errorf("app: http not built, use New")
	}
	cfg := a.Config
	srv := httpx.NewServer(httpx.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 10*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 30*time.Second),
	}, a.Handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Invalidator.Listen(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx, 10*time.Second)
	})
	return g.Wait()
}

// Close libera los recursos en orden inverso de creación.
func (a *App) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}
	a.closers = nil
	return errs
}
