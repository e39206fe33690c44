// Package validation checks decoded request bodies and path parameters with
// go-playground/validator.
//
// A single validator instance is built on first use. It reports field names by
// their json tag and registers the custom rules used by the request schemas:
//
//   - objectid: 22 or 24 hexadecimal characters
//   - phone_br: "(11) 98888-7777" style phone numbers
//   - permissions: a partial permission matrix with known resource and action keys
//
// Failures come back as *[RequestValidationError], which exposes the message list
// and a per-field message map for the HTTP error envelope.
package validation
