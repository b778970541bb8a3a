package config

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/panelprompt/auth-api/internal/infrastructure/supabase"
)

const (
	ProfileStoreSupabase = "supabase"
	ProfileStoreMongo    = "mongo"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	StaticDir       string        `env:"STATIC_DIR,       default=static"`
	CORSOrigins     []string      `env:"CORS_ALLOW_ORIGINS, default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	ProfileStore    string        `env:"PROFILE_STORE,    default=supabase"`

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// honored. Empty means the peer address is the client address.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Supabase SupabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type SupabaseConfig struct {
	URL          string        `env:"SUPABASE_URL"`
	ServiceKey   string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	ProfileTable string        `env:"SUPABASE_KYC_TABLE, default=kyc_profiles"`
	Timeout      time.Duration `env:"SUPABASE_TIMEOUT,   default=10s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=panelprompt"`
}

// RedisConfig enables the login throttle when Addr is set.
type RedisConfig struct {
	Addr          string        `env:"REDIS_ADDR"`
	Password      string        `env:"REDIS_PASSWORD"`
	DB            int           `env:"REDIS_DB,           default=0"`
	LoginAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=10"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW,       default=1m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through the given lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without. Missing
// provider secrets yield domain.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.SupabaseGateway().Validate(); err != nil {
		return err
	}
	switch c.ProfileStore {
	case ProfileStoreSupabase, ProfileStoreMongo:
	default:
		return fmt.Errorf("config: PROFILE_STORE must be %q or %q, got %q",
			ProfileStoreSupabase, ProfileStoreMongo, c.ProfileStore)
	}
	if _, err := c.TrustedProxyRanges(); err != nil {
		return err
	}
	if c.Redis.Addr != "" && (c.Redis.LoginAttempts <= 0 || c.Redis.LoginWindow <= 0) {
		return fmt.Errorf("config: LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive")
	}
	return nil
}

// TrustedProxyRanges parses TrustedProxies. A bare IP becomes a single-host range.
func (c *Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	var ranges []*net.IPNet
	for _, raw := range c.TrustedProxies {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("config: TRUSTED_PROXIES entry %q is not an IP or CIDR", entry)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			ranges = append(ranges, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

// SupabaseGateway returns the provider settings.
func (c *Config) SupabaseGateway() supabase.Config {
	return supabase.Config{
		URL:        c.Supabase.URL,
		ServiceKey: c.Supabase.ServiceKey,
		Timeout:    c.Supabase.Timeout,
	}
}

// Development reports whether human-friendly logs should be used.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Env, "development")
}
