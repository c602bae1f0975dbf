package dto

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError(t *testing.T) {
	t.Run("NewAPIError", func(t *testing.T) {
		err := NewAPIError(http.StatusNotFound, ErrorCodeNotFound, "resource not found")
		if err.StatusCode() != http.StatusNotFound {
			t.Errorf("StatusCode() = %d", err.StatusCode())
		}
		if err.Code() != ErrorCodeNotFound {
			t.Errorf("Code() = %s", err.Code())
		}
		if err.Error() != "resource not found" {
			t.Errorf("Error() = %q", err.Error())
		}
		if err.Details() == nil {
			t.Error("Details() = nil")
		}
	})
	t.Run("WithDetails", func(t *testing.T) {
		err := (&APIError{statusCode: http.StatusBadRequest}).WithDetails(map[string]any{"field": "path"})
		if err.Details()["field"] != "path" {
			t.Errorf("Details() = %v", err.Details())
		}
	})
	t.Run("WithDetail", func(t *testing.T) {
		err := (&APIError{statusCode: http.StatusBadRequest}).WithDetail("key", "value")
		if err.Details()["key"] != "value" {
			t.Errorf("Details() = %v", err.Details())
		}
	})
	t.Run("Wrap", func(t *testing.T) {
		orig := errors.New("github said no")
		err := StorageError("read file", orig)
		if !errors.Is(err, orig) {
			t.Error("cause not wrapped")
		}
		if err.Error() != "Failed to read file: github said no" {
			t.Errorf("Error() = %q", err.Error())
		}
		if err.Message() != "Failed to read file" {
			t.Errorf("Message() = %q", err.Message())
		}
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   ErrorCode
	}{
		{"NotFound", NotFound("file"), http.StatusNotFound, ErrorCodeNotFound},
		{"BadRequest", BadRequest("bad"), http.StatusBadRequest, ErrorCodeValidationFailed},
		{"MissingField", MissingField("path"), http.StatusBadRequest, ErrorCodeMissingField},
		{"InvalidField", InvalidField("sha", "empty"), http.StatusBadRequest, ErrorCodeInvalidFormat},
		{"PolicyRejection", PolicyRejection("api/x.js", "protected"), http.StatusForbidden, ErrorCodeForbidden},
		{"UploadRejected", UploadRejected("too large"), http.StatusBadRequest, ErrorCodeValidationFailed},
		{"Unauthorized", Unauthorized("bad signature"), http.StatusUnauthorized, ErrorCodeUnauthorized},
		{"Conflict", Conflict("a.html"), http.StatusConflict, ErrorCodeConflict},
		{"MethodNotAllowed", MethodNotAllowed("GET", []string{"POST"}), http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed},
		{"PayloadTooLarge", PayloadTooLarge(10), http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge},
		{"RateLimitExceeded", RateLimitExceeded(3), http.StatusTooManyRequests, ErrorCodeRateLimitExceeded},
		{"Internal", Internal("boom"), http.StatusInternalServerError, ErrorCodeInternal},
		{"UpstreamError", UpstreamError("Chat", errors.New("x")), http.StatusInternalServerError, ErrorCodeUpstreamError},
		{"NotConfigured", NotConfigured("Deploy hook"), http.StatusInternalServerError, ErrorCodeNotConfigured},
		{"Timeout", Timeout("Chat"), http.StatusGatewayTimeout, ErrorCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.status)
			}
			if tt.err.Code() != tt.code {
				t.Errorf("Code() = %s, want %s", tt.err.Code(), tt.code)
			}
		})
	}
	if r := PolicyRejection("api/x.js", "protected").Details()["reason"]; r != "protected" {
		t.Errorf("reason = %v", r)
	}
	if got := MissingField("path").Error(); got != "Missing required field: path" {
		t.Errorf("MissingField = %q", got)
	}
}

func TestWriteFileRequest_Validate(t *testing.T) {
	content, empty := "x", ""
	tests := []struct {
		name string
		req  WriteFileRequest
		code ErrorCode
	}{
		{"ok", WriteFileRequest{Path: "a.html", Content: &content, Message: "m"}, ""},
		{"empty_content_ok", WriteFileRequest{Path: "a.html", Content: &empty, Message: "m"}, ""},
		{"no_path", WriteFileRequest{Content: &content, Message: "m"}, ErrorCodeMissingField},
		{"no_content", WriteFileRequest{Path: "a.html", Message: "m"}, ErrorCodeMissingField},
		{"no_message", WriteFileRequest{Path: "a.html", Content: &content}, ErrorCodeMissingField},
		{"empty_sha", WriteFileRequest{Path: "a.html", Content: &content, Message: "m", SHA: &empty}, ErrorCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Code() != tt.code {
				t.Fatalf("Validate() = %v, want code %s", err, tt.code)
			}
		})
	}
}
