// Package caseguard is the access-control and accountability core of a forensic
// case-management service: per-user permission matrices derived from a role,
// login lockout, user-management guards, and an asynchronous audit trail.
//
// Engine methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Two authorization call sites
//
// [Engine.Authenticate] runs at login and enforces lock and active status for every
// role. [Engine.AuthorizeResource] runs on each API request: admins bypass every
// check, other roles are checked for status, lock, and the matrix leaf, in that order.
//
// # Architecture boundaries
//
// caseguard is the public surface. It exposes [Engine], [Builder], [Config], the
// store interfaces and value types. Audit dispatch lives under internal/; the HTTP
// pipeline lives in middleware and httpapi; persistence lives in redisstore.
//
// # What this package must NOT do
//
//   - Depend on an HTTP router or a concrete store.
//   - Log through a package-level logger. The logger is injected through [Builder].
//   - Import any sub-package that re-imports caseguard (no import cycles).
package caseguard
