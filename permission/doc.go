// Package permission provides the role enum, the resource/action permission matrix, the
// fixed role templates, and the compact bitmask layout used to persist a matrix.
//
// # Matrix
//
// A [Matrix] is total by construction: it is a fixed-size grid of six resources by three
// actions, so every (resource, action) pair is always defined. [DeriveFromRole] returns the
// template for a role; [ApplyOverride] merges a [Partial] leaf by leaf.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Stores persist a matrix
// through [Matrix.Mask] and [MatrixFromMask].
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import caseguard, jwt, or any store package.
//   - Compare role names as strings outside [ParseRole].
package permission
