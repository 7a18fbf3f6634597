// Package cachestore provides a unified interface for opening cache store
// backends.
//
// The package supports multiple backends and handles connection management,
// migrations, and schema validation where a backend needs them.
//
// # Supported Backends
//
//   - memory: in-process LRU, bounded by entry count and bytes
//   - leveldb: persistent single-node store using goleveldb
//   - sqlite: persistent store using modernc.org/sqlite
//   - postgres: shared store using the pgx connection pool
//   - dynamodb: shared store on Amazon DynamoDB with native TTL reaping
//   - tiered: memory layered over leveldb, for edge nodes that want both
//     speed and persistence across restarts
//
// # Usage
//
//	cfg := cachestore.Config{
//	    Type: "tiered",
//	    Path: "/var/lib/edgestow/cache",
//	}
//
//	store, err := cachestore.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Every backend honors the CacheStore contract: ErrNotFound for unknown
// keys, ErrExpired for entries past their TTL, and last-write-wins Set.
//
// # Subpackages
//
// Backend-specific implementations live below this package and can be used
// directly when the factory's configuration surface is too narrow.
package cachestore
