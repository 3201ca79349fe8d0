// Package auth verifies bearer tokens and turns them into an Identity.
//
// Two verifiers are provided. HMACVerifier checks HS256 tokens signed with a
// shared secret and can also issue them for local development. OIDCVerifier
// checks ID tokens from an OpenID Connect provider discovered at startup.
//
// The subject claim must be the user's UUID; it becomes Identity.UserID.
package auth
