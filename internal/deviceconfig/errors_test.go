package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func dialError(inner error) error {
	return &url.Error{
		Op:  "Get",
		URL: "http://192.168.4.1",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: inner},
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		wantSub   NetworkErrorSubtype
		wantRetry bool
	}{
		{"timeout", dialError(timeoutError{}), ErrTypeTimeout, NetworkErrorTimeout, true},
		{"refused", dialError(syscall.ECONNREFUSED), ErrTypeConnectionRefused, NetworkErrorConnectionRefused, true},
		{"host unreachable", dialError(syscall.EHOSTUNREACH), ErrTypeNetwork, NetworkErrorHostUnreachable, true},
		{"network unreachable", dialError(syscall.ENETUNREACH), ErrTypeNetwork, NetworkErrorNetworkUnreachable, false},
		{"dns", &url.Error{Op: "Get", URL: "http://aptl.local", Err: &net.DNSError{Name: "aptl.local", Err: "no such host"}}, ErrTypeDNS, NetworkErrorDNS, false},
		{"other", errors.New("boom"), ErrTypeNetwork, NetworkErrorGeneral, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := ClassifyNetworkError(tt.err, "192.168.4.1")
			if devErr == nil {
				t.Fatal("ClassifyNetworkError() = nil")
			}
			if devErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", devErr.Type, tt.wantType)
			}
			if devErr.NetworkSubtype != tt.wantSub {
				t.Errorf("NetworkSubtype = %v, want %v", devErr.NetworkSubtype, tt.wantSub)
			}
			if devErr.Retryable != tt.wantRetry {
				t.Errorf("Retryable = %v, want %v", devErr.Retryable, tt.wantRetry)
			}
			if devErr.DeviceAddr != "192.168.4.1" {
				t.Errorf("DeviceAddr = %q, want 192.168.4.1", devErr.DeviceAddr)
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if got := ClassifyNetworkError(nil, ""); got != nil {
		t.Errorf("ClassifyNetworkError(nil) = %v, want nil", got)
	}
}

func TestNewHTTPError_Retryable(t *testing.T) {
	if !NewHTTPError(503, "busy").Retryable {
		t.Error("503 should be retryable")
	}
	if NewHTTPError(404, "missing").Retryable {
		t.Error("404 should not be retryable")
	}
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("status: %w", NewHTTPError(500, "oops"))

	if !IsHTTPError(wrapped) {
		t.Error("IsHTTPError should see through wrapping")
	}
	if IsNetworkError(wrapped) {
		t.Error("HTTP error reported as network error")
	}
	if !IsNetworkError(NewNetworkError("dial", dialError(syscall.ECONNREFUSED))) {
		t.Error("refused connection should be a network error")
	}
	if !IsParseError(NewParseError("bad json", errors.New("eof"))) {
		t.Error("IsParseError() = false")
	}
	if !IsValidationError(NewValidationError("bad")) {
		t.Error("IsValidationError() = false")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestDeviceError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewParseError("bad body", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ClassifyNetworkError(dialError(timeoutError{}), ""), "Device not responding (timeout)"},
		{ClassifyNetworkError(dialError(syscall.ECONNREFUSED), ""), "Device refused connection"},
		{NewHTTPError(500, "x"), "Device error (HTTP 500)"},
		{errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		if got := GetShortErrorMessage(tt.err); got != tt.want {
			t.Errorf("GetShortErrorMessage() = %q, want %q", got, tt.want)
		}
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	hint := GetTroubleshootingHint(ClassifyNetworkError(dialError(syscall.EHOSTUNREACH), "10.0.0.9"))
	if !strings.Contains(hint, "ping 10.0.0.9") {
		t.Errorf("hint = %q, want ping suggestion", hint)
	}

	hint = GetTroubleshootingHint(&url.Error{Op: "Get", URL: "x", Err: &net.DNSError{Name: "x"}})
	if !strings.Contains(hint, "unexpected") {
		t.Errorf("hint for unclassified error = %q", hint)
	}
}
