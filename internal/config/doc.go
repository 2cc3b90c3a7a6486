// Package config loads fitgate's configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file at
// ~/.config/fitgate/config.yaml (or the directory given by --config), then
// FITGATE_* environment variables. Secrets are normally supplied through the
// environment:
//
//	FITGATE_CLIENT_ID        upstream OAuth client ID
//	FITGATE_CLIENT_SECRET    upstream OAuth client secret
//	FITGATE_REDIRECT_URI     registered OAuth callback URL
//	FITGATE_BEARER_TOKEN     token MCP clients must present
//	FITGATE_ENCRYPTION_KEY   64 hex characters used to encrypt the token file
//
// Loading never validates; callers pick Validate (serve) or ValidateStorage
// (auth subcommands) depending on what they need.
//
// # Example config.yaml
//
//	server:
//	  port: 3000
//	  environment: development
//	rateLimit:
//	  window: 15m
//	  tokenLimit: 500
//	cache:
//	  ttlSeconds: 300
package config
