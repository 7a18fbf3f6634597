// Package config provides configuration loading and validation for edgestow.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (EDGESTOW_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with EDGESTOW_ prefix:
//   - server.port → EDGESTOW_SERVER_PORT
//   - store.type → EDGESTOW_STORE_TYPE
//   - auth.secret → EDGESTOW_AUTH_SECRET
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and graceful shutdown timeout
//   - Origin: S3-compatible endpoint, region, bucket, and credentials
//   - Cache: TTL policy, cache key version, debug header, sweep interval
//   - Store: cache store backend (memory/leveldb/sqlite/postgres/dynamodb/tiered)
//   - Auth: signed-URL enforcement, HMAC secret, protected paths, admin token
//   - Retry: origin fetch attempts and backoff
//   - Limits: listing prefix length and depth bounds
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level, format, and optional file
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Secret must be at least 32 characters, and is required when auth.enforce is set
//   - min_ttl must not exceed max_ttl
//   - Log level must be debug, info, warn, or error
package config
