// Package middleware provides authentication and rate limiting for the billing API.
//
// Authenticator must run before RateLimit so limits are keyed by user id:
//
//	router.Use(authn.Handler)
//	router.Use(middleware.RateLimit(limiter))
//
// RateLimiter keeps buckets in process memory. DistributedRateLimiter shares
// fixed windows across instances through Redis and fails open when Redis is down.
package middleware
