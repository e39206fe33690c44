// Package httpapi serves the caseguard HTTP surface on a chi router.
//
// Every protected route is composed from the stages in the middleware package
// in a fixed order: identity, role or resource check, self or hierarchy guard,
// audit, validation, handler. Responses use the {success, message, ...} envelope
// on success and {success:false, msg, ...} on failure.
package httpapi
