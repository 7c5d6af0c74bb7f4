// Package auth issues and verifies operator tokens for the thermal
// monitor's write endpoints.
//
// Operators are listed in configuration with Argon2id password hashes.
// A successful login yields a short-lived HS256 JWT; the API requires one
// on every control write when a signing secret is configured. There is no
// refresh flow: operators log in again when the token expires.
package auth
