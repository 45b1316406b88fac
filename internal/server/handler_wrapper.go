// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/maruel/contactcrm/internal/server/dto"
	"github.com/maruel/contactcrm/internal/server/handlers"
	"github.com/maruel/contactcrm/internal/server/ratelimit"
	"github.com/maruel/contactcrm/internal/server/reqctx"
	"github.com/maruel/contactcrm/internal/storage/history"
)

// statusCoder lets a response type override the 200 status.
type statusCoder interface {
	HTTPStatus() int
}

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// callAndRecord runs call. For a mutating request with history enabled, the
// store version it produced is committed before any other mutating request
// runs.
//
// The commit is always attempted regardless of handler outcome. When the
// document did not change, it is a no-op.
func callAndRecord(ctx context.Context, r *http.Request, rec *history.Recorder, call func()) {
	if rec == nil || !isMutating(r.Method) {
		call()
		return
	}
	msg := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
	if err := rec.Track(ctx, msg, call); err != nil {
		slog.ErrorContext(ctx, "Failed to record history", "err", err)
	}
}

// checkRateLimit checks rate limit and wraps the response writer if needed.
// Returns the (possibly wrapped) writer and whether the request should proceed.
func checkRateLimit(w http.ResponseWriter, tier *ratelimit.Tier, identifier string) (http.ResponseWriter, bool) {
	if tier == nil {
		return w, true
	}
	result := tier.Limiter.Allow(ratelimit.BuildKey(identifier, tier.Name))
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		writeError(w, dto.RateLimitExceeded(int(result.RetryAfter.Seconds())))
		return w, false
	}
	return w, true
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, cfg *handlers.Config) bool {
	if cfg != nil && cfg.ServerConfig.MaxRequestBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.ServerConfig.MaxRequestBodyBytes)
	}

	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, dto.PayloadTooLarge(maxBytesErr.Limit))
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeError(w, dto.BadRequest("Failed to read request body"))
		return false
	}

	if len(bytes.TrimSpace(body)) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		err := d.Decode(input)
		if err == nil && d.More() {
			err = errors.New("trailing data after JSON value")
		}
		if err != nil {
			slog.WarnContext(ctx, "Failed to decode request body", "err", err)
			writeError(w, dto.InvalidJSON())
			return false
		}
	}
	return true
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		var ewsErr dto.ErrorWithStatus
		if !errors.As(err, &ewsErr) {
			ewsErr = dto.Internal(err)
		}
		statusCode := ewsErr.StatusCode()
		level := slog.LevelWarn
		if statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "Handler error", "err", err, "statusCode", statusCode, "code", ewsErr.Code())
		writeError(w, ewsErr)
		return
	}

	statusCode := http.StatusOK
	if sc, ok := any(output).(statusCoder); ok {
		statusCode = sc.HTTPStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is JSON serializable.
// Path parameters can be extracted by tagging struct fields with `path:"name"`,
// query parameters with `query:"name"`.
// *In must implement dto.Validatable.
//
// Example:
//
//	type DeleteContactRequest struct {
//	    ID string `path:"id"`
//	}
//
//	func (h *ContactHandler) Delete(ctx context.Context, req *DeleteContactRequest) (*OKResponse, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Limiters) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := reqctx.GetClientIP(r)
		ctx := reqctx.WithClientIP(r.Context(), clientIP)

		var ok bool
		if w, ok = checkRateLimit(w, limiters.Match(r.Method, r.URL.Path), clientIP); !ok {
			return
		}

		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, cfg) {
			return
		}

		populatePathParams(r, input)
		populateQueryParams(r, input)

		if err := PtrIn(input).Validate(); err != nil {
			handleValidationError(ctx, w, err)
			return
		}

		var output *Out
		var err error
		var rec *history.Recorder
		if svc != nil {
			rec = svc.History
		}
		callAndRecord(ctx, r, rec, func() {
			output, err = fn(ctx, PtrIn(input))
		})
		writeJSONResponse(ctx, w, output, err)
	})
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		if v := r.PathValue(tag); v != "" && field.Type.Kind() == reflect.String {
			elem.Field(i).SetString(v)
		}
	}
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		paramValue := query.Get(tag)
		if paramValue == "" {
			continue
		}

		fieldVal := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(paramValue)
		case reflect.Int:
			if intVal, err := strconv.Atoi(paramValue); err == nil {
				fieldVal.SetInt(int64(intVal))
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(paramValue); err == nil {
				fieldVal.SetBool(b)
			}
		default:
			if u, ok := fieldVal.Addr().Interface().(encoding.TextUnmarshaler); ok {
				_ = u.UnmarshalText([]byte(paramValue))
			}
		}
	}
}

func structElem(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return reflect.Value{}, false
	}
	elem := val.Elem()
	return elem, elem.Kind() == reflect.Struct
}

// handleValidationError handles a validation error from a request's Validate method.
func handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	var ewsErr dto.ErrorWithStatus
	if !errors.As(err, &ewsErr) {
		ewsErr = dto.BadRequest(err.Error())
	}
	slog.WarnContext(ctx, "Validation error", "err", err, "statusCode", ewsErr.StatusCode(), "code", ewsErr.Code())
	writeError(w, ewsErr)
}

// writeError writes err as {"error": message, "details": {...}}.
func writeError(w http.ResponseWriter, err dto.ErrorWithStatus) {
	msg := err.Error()
	if m, ok := err.(interface{ Message() string }); ok {
		msg = m.Message()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	if err := json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg, Details: err.Details()}); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}
