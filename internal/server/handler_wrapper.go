// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/havenrealty/sitekeeper/internal/server/dto"
	"github.com/havenrealty/sitekeeper/internal/server/handlers"
	"github.com/havenrealty/sitekeeper/internal/server/ratelimit"
	"github.com/havenrealty/sitekeeper/internal/server/reqctx"
)

// addRequestMetadataToContext adds client IP and User-Agent to the context.
func addRequestMetadataToContext(ctx context.Context, r *http.Request) context.Context {
	ctx = reqctx.WithClientIP(ctx, reqctx.GetClientIP(r))
	ctx = reqctx.WithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
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
		writeRateLimitError(w, result)
		return w, false
	}
	return w, true
}

// readBody reads the request body with the configured size limit.
// Returns false if an error occurred and was written to the response.
func readBody(ctx context.Context, w http.ResponseWriter, r *http.Request, cfg *handlers.Config) ([]byte, bool) {
	if cfg != nil && cfg.MaxRequestBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAPIError(w, dto.PayloadTooLarge(maxBytesErr.Limit))
			return nil, false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeAPIError(w, dto.BadRequest("Failed to read request body"))
		return nil, false
	}
	return body, true
}

// decodeBody decodes a JSON body into input. An empty body leaves input as
// its zero value.
func decodeBody[In any](ctx context.Context, w http.ResponseWriter, body []byte, input *In) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	d := json.NewDecoder(bytes.NewReader(body))
	d.DisallowUnknownFields()
	if err := d.Decode(input); err != nil {
		slog.WarnContext(ctx, "Failed to decode request body", "err", err)
		writeAPIError(w, dto.BadRequest("Invalid request body").WithDetail("reason", err.Error()))
		return false
	}
	return true
}

// writeJSONResponse writes a JSON response or error response. Outside debug
// mode a 5xx response only carries the public message.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error, cfg *handlers.Config) {
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := dto.ErrorCodeInternal
		message := "Internal server error"
		details := make(map[string]any)

		var ewsErr dto.ErrorWithStatus
		if errors.As(err, &ewsErr) {
			statusCode = ewsErr.StatusCode()
			errorCode = ewsErr.Code()
			message = ewsErr.Message()
			if d := ewsErr.Details(); d != nil {
				details = d
			}
		}
		if statusCode < http.StatusInternalServerError || (cfg != nil && cfg.Debug) {
			message = err.Error()
		}

		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		writeErrorResponseWithCode(w, statusCode, errorCode, message, details)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Query parameters can be extracted by tagging struct fields with `query:"name"`.
// *In must implement dto.Validatable.
//
// Example:
//
//	type ReadFileRequest struct {
//	    Path string `json:"path"`
//	}
//
//	func (h *FileHandler) Read(ctx context.Context, req *dto.ReadFileRequest) (*dto.ReadFileResponse, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)

		var ok bool
		if w, ok = checkRateLimit(w, limits.Match(r.Method, r.URL.Path), reqctx.ClientIP(ctx)); !ok {
			return
		}

		body, ok := readBody(ctx, w, r, cfg)
		if !ok {
			return
		}
		input := new(In)
		if !decodeBody(ctx, w, body, input) {
			return
		}
		populateQueryParams(r, input)

		if err := PtrIn(input).Validate(); err != nil {
			handleValidationError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		writeJSONResponse(ctx, w, output, err, cfg)
	})
}

// WrapRaw wraps a handler that needs the raw body and request, such as a
// signed webhook. Rate limiting, the body limit and error mapping behave as
// in Wrap.
func WrapRaw[Out any](fn func(context.Context, *http.Request, []byte) (*Out, error), cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)

		var ok bool
		if w, ok = checkRateLimit(w, limits.Match(r.Method, r.URL.Path), reqctx.ClientIP(ctx)); !ok {
			return
		}

		body, ok := readBody(ctx, w, r, cfg)
		if !ok {
			return
		}
		output, err := fn(ctx, r, body)
		writeJSONResponse(ctx, w, output, err, cfg)
	})
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
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
		default:
			if fieldVal.CanAddr() {
				if unmarshaler, ok := fieldVal.Addr().Interface().(encoding.TextUnmarshaler); ok {
					_ = unmarshaler.UnmarshalText([]byte(paramValue))
				}
			}
		}
	}
}

// handleValidationError handles a validation error from a request's Validate method.
func handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusBadRequest
	errorCode := dto.ErrorCodeValidationFailed
	details := make(map[string]any)

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		if d := ewsErr.Details(); d != nil {
			details = d
		}
	}

	slog.WarnContext(ctx, "Validation error", "err", err, "statusCode", statusCode, "code", errorCode)
	writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
}

// writeAPIError writes a 4xx APIError produced by the wrapper itself.
func writeAPIError(w http.ResponseWriter, e *dto.APIError) {
	writeErrorResponseWithCode(w, e.StatusCode(), e.Code(), e.Error(), e.Details())
}

// writeErrorResponseWithCode writes a detailed error response as JSON with code and details.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code dto.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    code,
			Message: message,
		},
		Details: details,
	}
	if len(response.Details) == 0 {
		response.Details = nil
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// writeRateLimitError writes a 429 rate limit error response.
func writeRateLimitError(w http.ResponseWriter, result ratelimit.Result) {
	writeAPIError(w, dto.RateLimitExceeded(int(result.RetryAfter.Seconds())))
}
