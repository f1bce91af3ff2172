package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"app_env"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
		// TrustForwardedHost: usar X-Forwarded-Host como origen (detrás de proxy).
		TrustForwardedHost bool `yaml:"trust_forwarded_host"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
		// SeedFile YAML opcional para poblar el adapter memory (dev/demo).
		SeedFile string `yaml:"seed_file"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind string `yaml:"kind"`
		// TTL de los lookups del directorio (staleness tolerada).
		TTL   string `yaml:"ttl"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
			// Channel de pub/sub para invalidaciones entre réplicas.
			Channel string `yaml:"channel"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Auth struct {
		// JWTSecret HS256 compartido con el identity provider.
		JWTSecret  string `yaml:"jwt_secret"`
		JWTIssuer  string `yaml:"jwt_issuer"`
		CookieName string `yaml:"cookie_name"`
		LoginURL   string `yaml:"login_url"`
	} `yaml:"auth"`

	Portal struct {
		// MSPOrigin origen canónico del portal de administración MSP.
		MSPOrigin      string   `yaml:"msp_origin"`
		AdminHosts     []string `yaml:"admin_hosts"`
		LookupTimeout  string   `yaml:"lookup_timeout"`
		SessionMaxAge  string   `yaml:"session_max_age"`
		SessionIdleTTL string   `yaml:"session_idle_ttl"`
		// MaxSessions tope de sesiones de portal retenidas en memoria.
		MaxSessions int `yaml:"max_sessions"`
	} `yaml:"portal"`

	Tenants struct {
		// block | cascade
		DeletePolicy string `yaml:"delete_policy"`
	} `yaml:"tenants"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
	} `yaml:"rate"`
}

// Load lee el YAML (si path no está vacío), aplica defaults y overrides de entorno.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "5s"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "mspportal"
	}
	if c.Cache.Redis.Channel == "" {
		c.Cache.Redis.Channel = "mspportal:directory:invalidate"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "sb-access-token"
	}
	if c.Auth.LoginURL == "" {
		c.Auth.LoginURL = "/login"
	}
	if c.Portal.LookupTimeout == "" {
		c.Portal.LookupTimeout = "3s"
	}
	if c.Portal.SessionMaxAge == "" {
		c.Portal.SessionMaxAge = "30s"
	}
	if c.Portal.SessionIdleTTL == "" {
		c.Portal.SessionIdleTTL = "15m"
	}
	if c.Portal.MaxSessions <= 0 {
		c.Portal.MaxSessions = 10000
	}
	if c.Tenants.DeletePolicy == "" {
		c.Tenants.DeletePolicy = string(types.DeleteBlock)
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 120
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvBool("SERVER_TRUST_FORWARDED_HOST"); ok {
		c.Server.TrustForwardedHost = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("STORAGE_SEED_FILE"); ok {
		c.Storage.SeedFile = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// AUTH
	if v, ok := getEnvStr("AUTH_JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := getEnvStr("AUTH_JWT_ISSUER"); ok {
		c.Auth.JWTIssuer = v
	}
	if v, ok := getEnvStr("AUTH_COOKIE_NAME"); ok {
		c.Auth.CookieName = v
	}
	if v, ok := getEnvStr("AUTH_LOGIN_URL"); ok {
		c.Auth.LoginURL = v
	}

	// PORTAL
	if v, ok := getEnvStr("PORTAL_MSP_ORIGIN"); ok {
		c.Portal.MSPOrigin = v
	}
	if v, ok := getEnvCSV("PORTAL_ADMIN_HOSTS"); ok {
		c.Portal.AdminHosts = v
	}
	if v, ok := getEnvStr("PORTAL_LOOKUP_TIMEOUT"); ok {
		c.Portal.LookupTimeout = v
	}
	if v, ok := getEnvStr("PORTAL_SESSION_MAX_AGE"); ok {
		c.Portal.SessionMaxAge = v
	}
	if v, ok := getEnvInt("PORTAL_MAX_SESSIONS"); ok {
		c.Portal.MaxSessions = v
	}

	// TENANTS
	if v, ok := getEnvStr("TENANTS_DELETE_POLICY"); ok {
		c.Tenants.DeletePolicy = strings.ToLower(v)
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
}

// Validate valida los valores críticos (drivers, duraciones, políticas).
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("config: storage.dsn is required for driver postgres")
		}
	default:
		return fmt.Errorf("config: unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return fmt.Errorf("config: cache.redis.addr is required for kind redis")
		}
	default:
		return fmt.Errorf("config: unsupported cache kind %q", c.Cache.Kind)
	}
	if !types.DeletePolicy(c.Tenants.DeletePolicy).IsValid() {
		return fmt.Errorf("config: invalid tenants.delete_policy %q", c.Tenants.DeletePolicy)
	}
	durations := map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"cache.ttl":               c.Cache.TTL,
		"portal.lookup_timeout":   c.Portal.LookupTimeout,
		"portal.session_max_age":  c.Portal.SessionMaxAge,
		"portal.session_idle_ttl": c.Portal.SessionIdleTTL,
		"rate.window":             c.Rate.Window,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// Duration parsea un string ya validado; devuelve def si está vacío o es inválido.
func Duration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}
