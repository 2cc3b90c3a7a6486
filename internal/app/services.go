package app

import (
	"fmt"
	"net/http"

	"k8s.io/utils/clock"

	"fitgate/internal/cache"
	"fitgate/internal/config"
	"fitgate/internal/oauth"
	"fitgate/internal/provider"
	"fitgate/internal/ratelimit"
	"fitgate/internal/server"
	"fitgate/internal/tools"
	"fitgate/pkg/logging"
)

// Services holds every component the gateway runs. They are created in
// dependency order by InitializeServices.
type Services struct {
	Tokens   *oauth.TokenStore
	States   *oauth.StateStore
	OAuth    *oauth.Manager
	Provider *provider.Client
	Cache    *cache.Cache
	Tools    *tools.Registry

	TokenLimiter *ratelimit.Limiter
	IPLimiter    *ratelimit.Limiter

	Server *server.Server
}

// NewTokenStore opens the encrypted credential store described by gw. Only
// the storage settings are validated, so CLI commands can use it without a
// full server configuration.
func NewTokenStore(gw config.GatewayConfig, clk clock.PassiveClock) (*oauth.TokenStore, error) {
	if err := gw.ValidateStorage(); err != nil {
		return nil, err
	}
	key, err := gw.EncryptionKey()
	if err != nil {
		return nil, err
	}
	cipher, err := oauth.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return oauth.NewTokenStore(oauth.TokenStoreConfig{
		Path:         gw.Storage.TokenFile,
		Cipher:       cipher,
		Clock:        clk,
		ExpiryBuffer: gw.OAuth.ExpiryBuffer,
	}), nil
}

// InitializeServices wires the gateway from a validated configuration.
func InitializeServices(cfg *Config, clk clock.WithTicker) (*Services, error) {
	gw := cfg.Gateway
	if gw == nil {
		return nil, fmt.Errorf("gateway configuration not loaded")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	tokens, err := NewTokenStore(*gw, clk)
	if err != nil {
		return nil, err
	}
	logging.Info("Bootstrap", "Credential store at %s", tokens.Path())

	httpClient := &http.Client{Timeout: gw.Upstream.Timeout}

	states := oauth.NewStateStore(gw.OAuth.StateTTL, clk)
	manager := oauth.NewManager(oauth.NewClient(gw.OAuth, httpClient, clk), states, tokens)
	data := provider.NewClient(gw.Upstream, httpClient, clk)

	resultCache := cache.New(gw.Cache.TTL(), clk)
	registry := tools.NewRegistry(resultCache)
	tools.NewFitness(manager, data, clk, nil).Register(registry)

	tokenLimiter := ratelimit.New(ratelimit.Config{
		Name:          "token",
		Limit:         gw.RateLimit.TokenLimit,
		Window:        gw.RateLimit.Window,
		SweepInterval: gw.RateLimit.SweepInterval,
		Clock:         clk,
	})
	ipLimiter := ratelimit.New(ratelimit.Config{
		Name:          "ip",
		Limit:         gw.RateLimit.IPLimit,
		Window:        gw.RateLimit.Window,
		SweepInterval: gw.RateLimit.SweepInterval,
		Clock:         clk,
	})

	srv := server.New(gw.Server, server.Deps{
		Tools:        registry,
		Auth:         oauth.NewHandler(manager, gw.Server.IsDevelopment()),
		Status:       manager,
		TokenLimiter: tokenLimiter,
		IPLimiter:    ipLimiter,
		Clock:        clk,
		Version:      cfg.Version,
	})

	logging.Info("Bootstrap", "Registered %d tools", len(registry.List()))

	return &Services{
		Tokens:       tokens,
		States:       states,
		OAuth:        manager,
		Provider:     data,
		Cache:        resultCache,
		Tools:        registry,
		TokenLimiter: tokenLimiter,
		IPLimiter:    ipLimiter,
		Server:       srv,
	}, nil
}
