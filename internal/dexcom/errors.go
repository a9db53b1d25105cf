package dexcom

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Vendor error codes that mean the session id is no longer accepted
const (
	codeSessionNotFound = "SessionIdNotFound"
	codeSessionNotValid = "SessionNotValid"
)

// ConfigurationError reports missing or conflicting client configuration
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dexcom configuration: %s %s", e.Field, e.Reason)
}

// AuthenticationError reports a failed handshake step
type AuthenticationError struct {
	Step string // "authenticate" or "login"
	Err  error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("dexcom %s failed: %v", e.Step, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// DataFetchError reports a glucose request that could not be completed
type DataFetchError struct {
	Attempts int
	Err      error
}

func (e *DataFetchError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("dexcom glucose request failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("dexcom glucose request failed: %v", e.Err)
}

func (e *DataFetchError) Unwrap() error {
	return e.Err
}

// ServiceError is an error descriptor returned by the Share service, either
// with a failure status or inside a 200 response.
type ServiceError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"Code"`
	Message    string `json:"Message"`
	SubCode    string `json:"SubCode,omitempty"`
	TypeName   string `json:"TypeName,omitempty"`
}

func (e *ServiceError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("dexcom api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dexcom api error %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// SessionInvalid reports whether the service rejected the session id
func (e *ServiceError) SessionInvalid() bool {
	return e.Code == codeSessionNotFound || e.Code == codeSessionNotValid
}

// parseServiceError returns the descriptor when body is a JSON object with a Code
func parseServiceError(body []byte, statusCode int) (*ServiceError, bool) {
	var se ServiceError
	if err := json.Unmarshal(body, &se); err != nil || se.Code == "" {
		return nil, false
	}
	se.StatusCode = statusCode
	return &se, true
}

// IsSessionInvalid reports whether err means the cached session must be
// discarded. Failures inside the handshake itself never qualify.
func IsSessionInvalid(err error) bool {
	var ae *AuthenticationError
	if errors.As(err, &ae) {
		return false
	}
	var se *ServiceError
	return errors.As(err, &se) && se.SessionInvalid()
}
