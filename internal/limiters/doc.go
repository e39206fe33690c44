// Package limiters holds the Redis-side failed-login lockout used by the
// account store.
//
// The counter and lock deadline live as fields of the account hash and are
// advanced by a single Lua script, so concurrent failures never lose an
// increment and a lock in force is never extended.
package limiters
