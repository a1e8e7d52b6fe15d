// Package token mints and verifies compact, URL-safe, tamper-evident
// identity tokens without server-side storage.
//
// A token is three dot-separated segments: the user id and issue timestamp
// in base36, then a truncated HMAC-SHA256 fingerprint keyed by the secret.
// The fingerprint covers the user's id, login, current password hash, and
// the issue timestamp, so every outstanding token for a user dies the
// instant their password changes — no revocation list needed — and no
// segment can be altered without detection.
//
// The same keyed-hash scheme, minus the timestamp, produces the session
// signature stored next to a session's user id; it stays valid until the
// credential changes. The two uses are domain-separated so one can never be
// replayed as the other.
package token
