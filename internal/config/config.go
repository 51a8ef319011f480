package config

import (
	"fmt"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/engine"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"carcare-engine"`

	// Storage
	StoreBackend       string `env:"STORE_BACKEND" envDefault:"memory"`
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	DatabaseURL        string `env:"DATABASE_URL"`
	RunMigrations      bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// External services
	NATSURL         string `env:"NATS_URL"`
	TelematicsURL   string `env:"TELEMATICS_API_URL"`
	TelematicsToken string `env:"TELEMATICS_API_KEY"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"100ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"50"`

	// Cache
	VehicleCacheTTL  time.Duration `env:"VEHICLE_CACHE_TTL" envDefault:"5m"`
	NotifiedCacheTTL time.Duration `env:"OVERDUE_NOTIFY_TTL" envDefault:"24h"`

	// Observability
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`

	// Entitlement token
	JWTSecret               string `env:"JWT_SECRET" envDefault:"carcare-default-dev-secret-change-me"`
	JWTIssuer               string `env:"JWT_ISSUER"`
	RequireEntitlementToken bool   `env:"REQUIRE_ENTITLEMENT_TOKEN" envDefault:"false"`

	// Transport
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	CORSOrigin     string        `env:"CORS_ORIGIN"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	// Engine
	Engine EngineConfig
}

// EngineConfig carries the tunable rule constants. Zero-valued knobs are
// not allowed: every field has a default matching engine.DefaultPolicy.
type EngineConfig struct {
	DueSoonThreshold    float64 `env:"DUE_SOON_THRESHOLD" envDefault:"80"`
	OverdueThreshold    float64 `env:"OVERDUE_THRESHOLD" envDefault:"100"`
	MediumWeight        int     `env:"PRIORITY_MEDIUM_WEIGHT" envDefault:"4"`
	HighWeight          int     `env:"PRIORITY_HIGH_WEIGHT" envDefault:"7"`
	EscalateDueSoon     int     `env:"ESCALATE_DUE_SOON" envDefault:"1"`
	EscalateOverdue     int     `env:"ESCALATE_OVERDUE" envDefault:"2"`
	UnknownRisk         string  `env:"UNKNOWN_RISK" envDefault:"moderate"`
	MultiOverdueCount   int     `env:"MULTI_OVERDUE_COUNT" envDefault:"2"`
	PayPerServiceRank   string  `env:"PAY_PER_SERVICE_RANK" envDefault:"basic"`
	PreviewRungs        int     `env:"PREVIEW_RUNGS" envDefault:"1"`
	FreeItemsPerSection int     `env:"FREE_ITEMS_PER_SECTION" envDefault:"1"`
	DefaultRegion       string  `env:"DEFAULT_REGION" envDefault:"national"`
	DefaultLaborRate    float64 `env:"DEFAULT_LABOR_RATE" envDefault:"120"`
	QuoteWorkers        int     `env:"QUOTE_WORKERS" envDefault:"4"`
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("config: SUPABASE_URL is required for store backend %q", c.StoreBackend)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for store backend %q", c.StoreBackend)
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.Engine.DefaultLaborRate < 0 {
		return fmt.Errorf("config: DEFAULT_LABOR_RATE must not be negative")
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Policy builds the engine rule set from the environment.
func (c *Config) Policy() (engine.Policy, error) {
	e := c.Engine
	p := engine.DefaultPolicy()
	p.DueSoonThreshold = e.DueSoonThreshold
	p.OverdueThreshold = e.OverdueThreshold
	p.MediumWeight = e.MediumWeight
	p.HighWeight = e.HighWeight
	p.Escalation = map[domain.TaskState]int{
		domain.StateScheduled: 0,
		domain.StateDueSoon:   e.EscalateDueSoon,
		domain.StateOverdue:   e.EscalateOverdue,
	}
	p.UnknownRisk = domain.RiskLevel(e.UnknownRisk)
	p.MultiOverdueCount = e.MultiOverdueCount
	p.PayPerServiceRank = domain.TierKind(e.PayPerServiceRank)
	p.PreviewRungs = e.PreviewRungs
	p.FreeItemsPerSection = e.FreeItemsPerSection
	p.DefaultRegion = e.DefaultRegion

	if err := p.Validate(); err != nil {
		return engine.Policy{}, err
	}
	return p, nil
}
