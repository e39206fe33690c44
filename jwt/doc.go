// Package jwt issues and verifies the bearer tokens that carry a caseguard
// identity ({uid, role}). HS256 and Ed25519 are supported, with optional key
// rotation through kid-indexed verify keys.
package jwt
