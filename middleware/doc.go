// Package middleware provides the request pipeline stages that guard caseguard
// routes.
//
// # Stages
//
//   - [RequestContext]: request id, client address, user agent and a scoped logger.
//   - [Identity]: bearer token to verified identity to full account record.
//   - [RequireRoles] / [RequireResource]: role allow-list and matrix checks.
//   - [AccessOwnData] / [ManageTarget]: self-or-admin and hierarchy guards on {id}.
//   - [Validate]: decode and validate a body or path parameters into a typed request.
//   - [Audit]: records successful mutating requests.
//
// Every stage is a func(http.Handler) http.Handler. [Chain] composes them with
// the first stage outermost. A failing stage answers with the JSON error
// envelope from [WriteError] and does not call the rest of the chain.
//
// # Architecture boundaries
//
// Stages translate HTTP into Engine calls. Authorization decisions live in the
// caseguard package; this package only extracts inputs and renders outcomes.
package middleware
