package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/MrEthical07/caseguard/validation"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// Source selects what [Validate] reads.
type Source int

const (
	// FromBody decodes the JSON request body.
	FromBody Source = iota
	// FromParams decodes the chi URL parameters.
	FromParams
)

// maxBody bounds request bodies read by Validate.
const maxBody = 1 << 20

type validatedContextKey[T any] struct{}

// Validated returns the request value stored by Validate[T].
func Validated[T any](ctx context.Context) (*T, bool) {
	v, ok := ctx.Value(validatedContextKey[T]{}).(*T)
	return v, ok && v != nil
}

// Validate decodes source into a T, normalizes it when T implements
// [validation.Normalizer], and runs the struct rules. Unknown JSON fields are
// rejected. Failures answer 400 with the field messages.
func Validate[T any](source Source) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := new(T)
			if err := decode(r, source, v); err != nil {
				WriteError(w, r, err)
				return
			}
			if n, ok := any(v).(validation.Normalizer); ok {
				n.Normalize()
			}
			if verr := validation.ValidateStruct(v); verr != nil {
				WriteError(w, r, verr)
				return
			}
			ctx := context.WithValue(r.Context(), validatedContextKey[T]{}, v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func decode(r *http.Request, source Source, dst any) error {
	switch source {
	case FromParams:
		params := map[string]string{}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				if key != "*" && i < len(rctx.URLParams.Values) {
					params[key] = rctx.URLParams.Values[i]
				}
			}
		}
		raw, err := json.Marshal(params)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return validation.NewRequestValidationError("params", "invalid path parameters")
		}
		return nil
	default:
		if r.Body == nil {
			return validation.NewRequestValidationError("body", "request body is required")
		}
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			if errors.Is(err, io.EOF) {
				return validation.NewRequestValidationError("body", "request body is required")
			}
			return validation.NewRequestValidationError("body", "invalid JSON body: "+err.Error())
		}
		return nil
	}
}
