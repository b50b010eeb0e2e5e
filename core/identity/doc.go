// Package identity verifies externally issued identity assertions and
// extracts normalized subject records.
//
// The Verifier interface has two implementations, selected at startup
// via Config.Mode:
//
//   - JWKSVerifier fetches RSA public keys from the provider's JWKS
//     endpoint, caches them, and verifies RS256 signatures locally.
//     Fetch failures retry with bounded exponential backoff and surface
//     as ErrProviderUnreachable, which is an infrastructure failure and
//     must never be treated as a rejected credential.
//   - StaticVerifier pins a single configured public key, for
//     development and tests.
//
// Both enforce the same claim rules: expiry required, issuer and
// audience pinned, and a configurable clock-skew leeway (default 60s)
// applied to the validity window.
package identity
