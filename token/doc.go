// Package token issues and validates paired credentials: a signed JWT access
// token and an AES-256-CBC encrypted refresh token that are cross-checked by a
// shared token id. Validation of a pair deliberately ignores access-token
// expiry; the encrypted refresh payload carries the authoritative expiration
// and the security stamp the pair was issued under.
package token
