// Package internal contains helpers that are private to caseguard: object and
// request id generation.
//
// # Sub-packages
//
//   - audit: async record dispatch (Dispatcher + Sink implementations)
//   - limiters: Redis-backed failed-login lockout primitive
//   - config: server configuration loaded with koanf
//
// # What this package must NOT do
//
//   - Export types that appear in the public caseguard API.
package internal
