// Package gatekeeper implements session authentication for HTTP services:
// signed access/refresh token pairs, a fixed-order admission chain of
// API-key, blacklist, and bearer guards, and a two-step password recovery
// flow based on single-use numeric codes and reset tokens.
//
// Tokens are HS256 JWTs persisted alongside their revocation state; the
// stored row is always consulted before the signature, so revocation wins
// over every other token failure. Guards read API keys and blacklist
// entries from in-process caches primed at startup and kept in sync by the
// admin endpoints.
package gatekeeper
