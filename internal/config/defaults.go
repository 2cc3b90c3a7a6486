package config

import "time"

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"

	DefaultHost              = "localhost"
	DefaultPort              = 3000
	DefaultHeartbeatInterval = 25 * time.Second
	DefaultMaxSessions       = 100

	DefaultAuthorizeURL = "https://cloud.ouraring.com/oauth/authorize"
	DefaultTokenURL     = "https://api.ouraring.com/oauth/token"
	DefaultStateTTL     = time.Hour
	DefaultExpiryBuffer = 5 * time.Minute

	DefaultRateLimitWindow = 15 * time.Minute
	DefaultTokenLimit      = 500
	DefaultIPLimit         = 500
	DefaultSweepInterval   = time.Minute

	DefaultCacheTTLSeconds = 300

	DefaultUpstreamBaseURL = "https://api.ouraring.com/v2/usercollection"
	DefaultUpstreamTimeout = 30 * time.Second

	// tokenFileName is the credential file inside the config directory.
	tokenFileName = "token.json"
)

// DefaultScopes is the fixed scope list requested during authorization.
var DefaultScopes = []string{"email", "personal", "daily", "heartrate", "workout", "session"}

// GetDefaultConfig returns the default configuration. Secrets (client
// credentials, bearer token, encryption key) have no defaults.
func GetDefaultConfig() GatewayConfig {
	return GatewayConfig{
		Server: ServerConfig{
			Host:              DefaultHost,
			Port:              DefaultPort,
			CORSOrigin:        "*",
			Environment:       EnvironmentProduction,
			HeartbeatInterval: DefaultHeartbeatInterval,
			MaxSessions:       DefaultMaxSessions,
		},
		OAuth: OAuthConfig{
			AuthorizeURL: DefaultAuthorizeURL,
			TokenURL:     DefaultTokenURL,
			Scopes:       append([]string(nil), DefaultScopes...),
			StateTTL:     DefaultStateTTL,
			ExpiryBuffer: DefaultExpiryBuffer,
		},
		RateLimit: RateLimitConfig{
			Window:        DefaultRateLimitWindow,
			TokenLimit:    DefaultTokenLimit,
			IPLimit:       DefaultIPLimit,
			SweepInterval: DefaultSweepInterval,
		},
		Cache: CacheConfig{
			TTLSeconds: DefaultCacheTTLSeconds,
		},
		Upstream: UpstreamConfig{
			BaseURL: DefaultUpstreamBaseURL,
			Timeout: DefaultUpstreamTimeout,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
