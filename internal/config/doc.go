// Package config provides configuration management for the pathway router.
//
// Configuration is loaded from environment variables and validated on startup.
// Every option has a default suitable for development: embedded content, strict
// validation, the HTTP API on :8080 and the Redis Streams worker disabled.
// Redis settings are only validated when WORKER_ENABLED is true.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg)
package config
