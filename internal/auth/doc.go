// Package auth issues and validates session tokens and decides whether an
// authenticated identity may act on a task.
//
// Tokens are HS256 JWTs carrying the user's id, email, name and role. They
// are validated by signature and expiry only; nothing is looked up per
// request and there is no revocation list, so a token stays usable until it
// expires even after the user's password or role changes.
package auth
