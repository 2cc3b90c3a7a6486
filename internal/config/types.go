package config

import "time"

// GatewayConfig is the top-level configuration structure for fitgate.
type GatewayConfig struct {
	Server    ServerConfig    `yaml:"server"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Cache     CacheConfig     `yaml:"cache"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the downstream HTTP surface used by MCP clients.
type ServerConfig struct {
	Host        string `yaml:"host,omitempty"`        // Host to bind to (default: localhost)
	Port        int    `yaml:"port,omitempty"`        // Port to listen on (default: 3000)
	PublicURL   string `yaml:"publicUrl,omitempty"`   // Externally visible base URL
	BearerToken string `yaml:"bearerToken,omitempty"` // Static token MCP clients must present
	CORSOrigin  string `yaml:"corsOrigin,omitempty"`  // Allowed CORS origin (default: *)

	// Environment is "development" or "production". Outside development,
	// fault details returned to clients are genericized.
	Environment string `yaml:"environment,omitempty"`

	HeartbeatInterval time.Duration `yaml:"heartbeatInterval,omitempty"` // SSE keep-alive interval
	MaxSessions       int           `yaml:"maxSessions,omitempty"`       // Concurrent SSE session cap
}

// IsDevelopment reports whether detailed faults may be shown to clients.
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == EnvironmentDevelopment
}

// OAuthConfig configures the upstream OAuth2 client.
type OAuthConfig struct {
	ClientID     string   `yaml:"clientId,omitempty"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`
	RedirectURI  string   `yaml:"redirectUri,omitempty"`
	AuthorizeURL string   `yaml:"authorizeUrl,omitempty"`
	TokenURL     string   `yaml:"tokenUrl,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`

	// StateTTL bounds how long an authorization attempt may take.
	StateTTL time.Duration `yaml:"stateTtl,omitempty"`
	// ExpiryBuffer is how early before expiry a token is refreshed.
	ExpiryBuffer time.Duration `yaml:"expiryBuffer,omitempty"`
}

// StorageConfig configures the encrypted credential file.
type StorageConfig struct {
	TokenFile string `yaml:"tokenFile,omitempty"`

	// EncryptionKey is 64 hex characters (32 bytes). It is usually supplied
	// through FITGATE_ENCRYPTION_KEY rather than the config file.
	EncryptionKey string `yaml:"encryptionKey,omitempty"`
}

// RateLimitConfig configures the fixed-window abuse guards.
type RateLimitConfig struct {
	Window        time.Duration `yaml:"window,omitempty"`
	TokenLimit    int           `yaml:"tokenLimit,omitempty"`
	IPLimit       int           `yaml:"ipLimit,omitempty"`
	SweepInterval time.Duration `yaml:"sweepInterval,omitempty"`
}

// CacheConfig configures the tool result cache.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttlSeconds,omitempty"`
}

// TTL returns the cache lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// UpstreamConfig configures the fitness data API client.
type UpstreamConfig struct {
	BaseURL string        `yaml:"baseUrl,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoggingConfig configures log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}
