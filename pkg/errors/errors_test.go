package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	t.Parallel()

	t.Run("creates error with all defaults", func(t *testing.T) {
		err := NewError(ErrCodeInvalidConfig, "configuration is invalid")
		if err.Code != ErrCodeInvalidConfig {
			t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidConfig)
		}
		if err.Category != CategoryConfiguration {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfiguration)
		}
		if err.Details == nil {
			t.Error("Details map is nil")
		}
		if err.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	})

	t.Run("is not retryable until classified", func(t *testing.T) {
		for _, err := range []*Error{
			NewTransportError("dial", errors.New("refused")),
			NewOperationError("Object GET failed", &HTTPInfo{Status: 503}),
			NewValidationError("bad"),
		} {
			if err.Retryable {
				t.Errorf("%s: Retryable = true, want false", err.Code)
			}
		}
	})
}

func TestGetCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrCodeAuthFailed, CategoryAuth},
		{ErrCodeEndpointNotFound, CategoryAuth},
		{ErrCodeCredentialsMissing, CategoryAuth},
		{ErrCodeOperationFailed, CategoryOperation},
		{ErrCodeDecodeFailed, CategoryOperation},
		{ErrCodeTransport, CategoryTransport},
		{ErrCodeCertificateInvalid, CategoryTransport},
		{ErrCodeValidationFailed, CategoryValidation},
		{ErrCodeInvalidType, CategoryValidation},
		{ErrCodeResetFailed, CategoryReset},
		{ErrCodeInvalidConfig, CategoryConfiguration},
	}
	for _, tt := range tests {
		if got := GetCategory(tt.code); got != tt.want {
			t.Errorf("GetCategory(%v) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	t.Parallel()

	t.Run("formats http diagnostics", func(t *testing.T) {
		err := NewOperationError("Object GET failed", &HTTPInfo{
			Scheme: "https",
			Host:   "swift.example.com",
			Path:   "/v1/AUTH_test/c/o",
			Query:  "multipart-manifest=get",
			Status: 404,
			Reason: "Not Found",
			Body:   []byte(strings.Repeat("x", 80)),
		})
		got := err.Error()
		want := "OPERATION_FAILED: Object GET failed https://swift.example.com/v1/AUTH_test/c/o" +
			"?multipart-manifest=get 404 Not Found   [first 60 chars of response] " + strings.Repeat("x", 60)
		if got != want {
			t.Errorf("Error() =\n%q\nwant\n%q", got, want)
		}
	})

	t.Run("includes component and operation", func(t *testing.T) {
		err := NewValidationError("bad header").WithComponent("transport").WithOperation("do")
		if got := err.Error(); got != "[transport:do] VALIDATION_FAILED: bad header" {
			t.Errorf("Error() = %q", got)
		}
	})

	t.Run("appends cause without http info", func(t *testing.T) {
		err := NewTransportError("request failed", errors.New("connection reset"))
		if !strings.HasSuffix(err.Error(), ": connection reset") {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}

func TestError_UnwrapAndIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewTransportError("request failed", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !errors.Is(err, NewError(ErrCodeTransport, "other")) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(err, NewError(ErrCodeAuthFailed, "other")) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("get object: %w", NewOperationError("Object GET failed", &HTTPInfo{Status: 503}))

	if !IsCode(wrapped, ErrCodeOperationFailed) {
		t.Error("IsCode should see through wrapping")
	}
	if !IsCategory(wrapped, CategoryOperation) {
		t.Error("IsCategory should see through wrapping")
	}
	if got := HTTPStatus(wrapped); got != 503 {
		t.Errorf("HTTPStatus = %d, want 503", got)
	}
	if got := HTTPStatus(errors.New("plain")); got != 0 {
		t.Errorf("HTTPStatus(plain) = %d, want 0", got)
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Error("As should fail for foreign errors")
	}
}

func TestError_StringAndJSON(t *testing.T) {
	t.Parallel()

	err := NewOperationError("Container PUT failed", &HTTPInfo{Status: 500}).
		WithOperation("put_container").
		WithRetryable(true).
		WithRequestID("tx123").
		WithDetail("container", "photos")

	s := err.String()
	for _, want := range []string{"Code=OPERATION_FAILED", "Status=500", "RequestID=tx123", "Retryable=true", `"container":"photos"`} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q: %s", want, s)
		}
	}

	var decoded map[string]interface{}
	if jerr := json.Unmarshal([]byte(err.JSON()), &decoded); jerr != nil {
		t.Fatalf("JSON() is not valid JSON: %v", jerr)
	}
	if decoded["code"] != "OPERATION_FAILED" {
		t.Errorf("code = %v", decoded["code"])
	}
}

func TestGetRecommendation(t *testing.T) {
	t.Parallel()

	if rec := NewResetError("x").GetRecommendation(); !strings.Contains(rec, "rewound") {
		t.Errorf("unexpected recommendation %q", rec)
	}
	if rec := NewError(ErrCodeDecodeFailed, "x").GetRecommendation(); rec == "" {
		t.Error("expected fallback recommendation")
	}
}
