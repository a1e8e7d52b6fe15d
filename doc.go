// Package authcode is a pluggable authentication layer for host web
// applications: sign-in, sign-out, password change, and password reset built
// on HMAC-signed stateless tokens and a credential-bound session signature.
//
// The package is deliberately transport-agnostic. The host owns routing,
// templates, and session storage; authcode talks to them through three small
// collaborator interfaces ([UserStore], [SessionStore], [Mailer]) and can be
// driven from any framework. [Auth] methods are safe to call from multiple
// goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcode is the public surface. It exposes [Auth], [Builder], [Config],
// [Session], and the sentinel errors. Credential hashing lives in the
// password subpackage and token minting/verification in the token
// subpackage; neither imports this package.
//
// # What this package must NOT do
//
//   - Store session state server-side. Sessions live in the host's store;
//     Redis, when configured, only backs throttle counters.
//   - Issue raw persistence queries. All user access goes through [UserStore].
//   - Retry or queue mail. [Mailer] failures surface to the caller.
package authcode
