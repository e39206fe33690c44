// Package audit implements asynchronous record dispatching for the audit trail.
//
// # Components
//
//   - [Sink] is the consumer interface (channel, JSON writer, func, fan-out, no-op).
//   - [Dispatcher] is a buffered relay with drop-if-full or block-if-full semantics.
//
// Both are generic over the record type so the root package can dispatch its own
// AuditRecord without this package importing it.
//
// # What this package must NOT do
//
//   - Decide which requests get recorded. The HTTP decorator owns that.
//   - Import caseguard or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
