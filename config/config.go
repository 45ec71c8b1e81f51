package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Matching  MatchingConfig  `yaml:"matching"`
	Pairing   PairingConfig   `yaml:"pairing"`
	ProviderA ProviderAConfig `yaml:"provider_a"`
	ProviderB ProviderBConfig `yaml:"provider_b"`
	Admin     AdminConfig     `yaml:"admin"`
	Webhooks  WebhookConfig   `yaml:"webhooks"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
	// TrustedProxies lists the proxies whose X-Forwarded-For is believed.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type MatchingConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

type PairingConfig struct {
	SeatLockMinutes int `yaml:"seat_lock_minutes"`
}

// ProviderAConfig configures the marketplace (Connect-style) provider.
type ProviderAConfig struct {
	BaseURL       string `yaml:"base_url"`
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
	// SessionScanLimit bounds the fallback session lookup on refund.
	SessionScanLimit int `yaml:"session_scan_limit"`
}

// ProviderBConfig configures the direct-capture provider.
type ProviderBConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	ReturnURL    string `yaml:"return_url"`
	CancelURL    string `yaml:"cancel_url"`
	SuccessURL   string `yaml:"success_url"`
	FailureURL   string `yaml:"failure_url"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

type WebhookConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	// ProviderTimeoutSeconds bounds each outbound provider call made while serving a request.
	ProviderTimeoutSeconds int `yaml:"provider_timeout_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv lets secrets stay out of the YAML file.
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATABASE_PASSWORD":         &c.Database.Password,
		"REDIS_PASSWORD":            &c.Redis.Password,
		"PROVIDER_A_SECRET_KEY":     &c.ProviderA.SecretKey,
		"PROVIDER_A_WEBHOOK_SECRET": &c.ProviderA.WebhookSecret,
		"PROVIDER_B_CLIENT_ID":      &c.ProviderB.ClientID,
		"PROVIDER_B_CLIENT_SECRET":  &c.ProviderB.ClientSecret,
		"ADMIN_JWT_SECRET":          &c.Admin.JWTSecret,
		"LOG_LEVEL":                 &c.Log.Level,
	}
	for env, field := range overrides {
		if v, ok := os.LookupEnv(env); ok {
			*field = v
		}
	}
	if v, ok := os.LookupEnv("DATABASE_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
}

// ValidateServer checks what the API server cannot run without.
func (c *Config) ValidateServer() error {
	if c.Admin.JWTSecret == "" {
		return fmt.Errorf("admin.jwt_secret (or ADMIN_JWT_SECRET) must be set")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Matching.CacheTTLSeconds == 0 {
		c.Matching.CacheTTLSeconds = 30
	}
	if c.Pairing.SeatLockMinutes == 0 {
		c.Pairing.SeatLockMinutes = 15
	}
	if c.ProviderA.SessionScanLimit == 0 {
		c.ProviderA.SessionScanLimit = 100
	}
	if c.Webhooks.RatePerSecond == 0 {
		c.Webhooks.RatePerSecond = 50
	}
	if c.Webhooks.Burst == 0 {
		c.Webhooks.Burst = 100
	}
	if c.Webhooks.ProviderTimeoutSeconds == 0 {
		c.Webhooks.ProviderTimeoutSeconds = 10
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "flightbuddy-worker"
	}
}
