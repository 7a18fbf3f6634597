// Package edgestow provides an edge caching proxy for S3-compatible object
// stores with HMAC-signed URL authentication.
//
// Edgestow sits between clients and an origin object store. Requests carry a
// signature and expiry in their query string; verified requests are served
// from a local cache store when possible and fetched from the origin with
// bounded retries otherwise, with fresh responses written back to the cache
// asynchronously.
//
// # Key Components
//
//   - HybridCache: Orchestrator combining a cache store and an origin fetcher
//   - CacheStore: Interface for cache persistence (memory, LevelDB, SQLite,
//     PostgreSQL, DynamoDB, tiered)
//   - Origin: Interface for single origin requests (S3-compatible client)
//   - RetryingFetcher: Origin wrapper with exponential backoff retries
//   - Signer / Verifier: HMAC-SHA256 signed URL issuing and verification
//   - KeyBuilder: Deterministic cache key derivation
//
// # Signed URLs
//
// A signed URL carries exp (epoch seconds) and sig (lowercase hex HMAC)
// query parameters. The signature covers the path and every other query
// parameter over a canonical, strictly RFC 3986 encoded form, so parameter
// order and wire encoding never affect verification.
//
// # Example Usage
//
//	fetcher := edgestow.NewRetryingFetcher(origin, 3, 200*time.Millisecond, logger)
//	cache, err := edgestow.NewHybridCache(store, fetcher, edgestow.NewKeyBuilder("v1"), edgestow.ServiceConfig{
//	    Policy: edgestow.DefaultCacheConfig,
//	    Logger: logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := cache.Get(ctx, req)
//
// See the http package for the proxy's HTTP surface, the cachestore
// packages for store backends, and the origin package for the S3 client.
package edgestow
