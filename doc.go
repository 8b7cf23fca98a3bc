// Package stampauth provides a credential and token lifecycle engine built around
// a rotating per-user security stamp: stamp-derived one-time codes, paired JWT
// access / encrypted refresh tokens, single-use recovery codes, and the
// registration, login, two-factor, and refresh flows that tie them together.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// stampauth is the public surface. It exposes [Engine], [Builder], [Config], the
// sentinel errors, and value types (LoginResult, TokenPair, MetricsSnapshot, etc.).
// Token crypto lives in the token subpackage, password hashing and policy in the
// password subpackage, and persistence behind the [UserStore] interface with
// Redis and Postgres implementations under redisstore and pgstore.
//
// # What this package must NOT do
//
//   - Expose store clients, wire encodings, or key material in its public API.
//   - Transport mail; email delivery is delegated to the [Mailer] collaborator
//     and treated as fire-and-forget.
//   - Track sessions or revocation lists. Invalidation happens exclusively by
//     rotating the security stamp, which kills outstanding one-time codes and
//     refresh tokens at once.
//
// # Invalidation contract
//
// Every operation that confirms an email address, enables two-factor
// authentication, or changes the password rotates the user's security stamp.
// One-time codes are derived from the stamp, and refresh tokens carry the stamp
// they were issued under, so a single rotation invalidates both families.
package stampauth
