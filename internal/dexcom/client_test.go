package dexcom

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/mrcode/glucoshare/internal/dexcom/dexcomtest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, srv *dexcomtest.Server, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithBaseURL(srv.URL), WithLogger(quietLogger())}, opts...)
	client, err := NewClient(Credentials{
		Username: dexcomtest.Username,
		Password: dexcomtest.Password,
		Region:   RegionUS,
	}, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		field string
	}{
		{"Missing password", Credentials{Username: "user", Region: "us"}, "password"},
		{"Neither username nor account", Credentials{Password: "pw", Region: "us"}, "username"},
		{"Both username and account", Credentials{Username: "user", AccountID: dexcomtest.DefaultAccountID, Password: "pw", Region: "us"}, "username"},
		{"Account id not a UUID", Credentials{AccountID: "not-a-uuid", Password: "pw", Region: "us"}, "account id"},
		{"Account id all zero", Credentials{AccountID: "00000000-0000-0000-0000-000000000000", Password: "pw", Region: "us"}, "account id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.creds)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("NewClient() error = %v, want ConfigurationError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %s, want %s", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Credentials{Username: "user", Password: "pw", Region: "jp"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if client.baseURL != "https://share.dexcom.jp/ShareWebServices/Services" {
		t.Errorf("baseURL = %s", client.baseURL)
	}
	if client.sessionRetries != 1 {
		t.Errorf("sessionRetries = %d, want 1", client.sessionRetries)
	}
	hc, ok := client.httpClient.(*http.Client)
	if !ok || hc.Timeout != 30*time.Second {
		t.Errorf("default transport should be *http.Client with a 30s timeout")
	}
}

func TestNewClient_Options(t *testing.T) {
	client, err := NewClient(Credentials{Username: "user", Password: "pw", Region: "us"},
		WithBaseURL("http://localhost:9999/"),
		WithTimeout(5*time.Second),
		WithSessionRetries(3),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if client.baseURL != "http://localhost:9999" {
		t.Errorf("baseURL = %s, should not have trailing slash", client.baseURL)
	}
	if client.sessionRetries != 3 {
		t.Errorf("sessionRetries = %d, want 3", client.sessionRetries)
	}
	if hc := client.httpClient.(*http.Client); hc.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", hc.Timeout)
	}
}

func TestNewClient_UnknownRegionFailsOnFirstUse(t *testing.T) {
	client, err := NewClient(Credentials{Username: "user", Password: "pw", Region: "mars"}, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewClient() should defer region errors, got %v", err)
	}

	_, err = client.EnsureSession(context.Background())
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "region" {
		t.Fatalf("EnsureSession() error = %v, want region ConfigurationError", err)
	}
}

func TestClient_ServiceErrorOnSuccessStatus(t *testing.T) {
	srv := dexcomtest.NewServer()
	defer srv.Close()
	srv.FailAuthenticate(http.StatusOK, "AccountPasswordInvalid", "Publisher account password failed")

	client := newTestClient(t, srv)
	_, err := client.EnsureSession(context.Background())

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("EnsureSession() error = %v, want AuthenticationError", err)
	}
	if authErr.Step != "authenticate" {
		t.Errorf("Step = %s, want authenticate", authErr.Step)
	}

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("error should wrap ServiceError")
	}
	if svcErr.Code != "AccountPasswordInvalid" || svcErr.StatusCode != http.StatusOK {
		t.Errorf("ServiceError = %+v", svcErr)
	}
}

func TestServiceError_Error(t *testing.T) {
	withCode := &ServiceError{StatusCode: 500, Code: "SessionNotValid", Message: "timed out"}
	if got := withCode.Error(); got != "dexcom api error 500: SessionNotValid: timed out" {
		t.Errorf("Error() = %s", got)
	}

	plain := &ServiceError{StatusCode: 502, Message: "Bad Gateway"}
	if got := plain.Error(); got != "dexcom api error 502: Bad Gateway" {
		t.Errorf("Error() = %s", got)
	}
}

func TestIsSessionInvalid(t *testing.T) {
	sessionErr := &ServiceError{StatusCode: 500, Code: "SessionIdNotFound"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Session not found", sessionErr, true},
		{"Session not valid", &ServiceError{Code: "SessionNotValid"}, true},
		{"Wrapped", &DataFetchError{Err: sessionErr}, true},
		{"Other code", &ServiceError{Code: "AccountPasswordInvalid"}, false},
		{"Inside handshake", &AuthenticationError{Step: "login", Err: sessionErr}, false},
		{"Plain error", errors.New("boom"), false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSessionInvalid(tt.err); got != tt.want {
				t.Errorf("IsSessionInvalid() = %v, want %v", got, tt.want)
			}
		})
	}
}
