// Package config loads billing server settings with viper.
//
// Precedence, lowest first: built-in defaults, an optional billing.yaml,
// BILLING_* environment variables. Nested keys map to env names by
// replacing dots with underscores:
//
//	server.port          -> BILLING_SERVER_PORT
//	storage.database_url -> BILLING_STORAGE_DATABASE_URL
//	auth.hmac_secret     -> BILLING_AUTH_HMAC_SECRET
package config
