package dexcom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	errNotUUID   = errors.New("is not a UUID")
	errNilUUID   = errors.New("is the all-zero UUID")
	errNotString = errors.New("response is not a JSON string")
)

// AccountID is the publisher account identifier returned by the service
type AccountID string

// SessionToken is the session identifier required by glucose requests
type SessionToken string

// String masks all but the last block of the token
func (t SessionToken) String() string {
	s := string(t)
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		return "********" + s[i:]
	}
	return "********"
}

// Session is an established login
type Session struct {
	AccountID     AccountID
	Token         SessionToken
	EstablishedAt time.Time
}

func parseUUID(s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", errNotUUID
	}
	if id == uuid.Nil {
		return "", errNilUUID
	}
	return id.String(), nil
}

func parseAccountID(s string) (AccountID, error) {
	id, err := parseUUID(s)
	return AccountID(id), err
}

func parseSessionToken(s string) (SessionToken, error) {
	id, err := parseUUID(s)
	return SessionToken(id), err
}

// decodeScalar unwraps the quoted string returned by handshake endpoints
func decodeScalar(body []byte) (string, error) {
	var s string
	if err := json.Unmarshal(body, &s); err != nil {
		return "", errNotString
	}
	return s, nil
}

// EnsureSession returns the current session, running the handshake when no
// session is cached. Concurrent callers share one handshake.
func (c *Client) EnsureSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureSessionLocked(ctx)
}

// InvalidateSession discards the cached session token. The account id is kept.
func (c *Client) InvalidateSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

// HasSession reports whether a session is cached
func (c *Client) HasSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

func (c *Client) invalidateLocked() {
	if c.session != nil {
		c.logger.Debug("session invalidated", "session", c.session.Token.String())
	}
	c.session = nil
}

func (c *Client) ensureSessionLocked(ctx context.Context) (*Session, error) {
	if c.session != nil {
		return c.session, nil
	}

	if err := c.checkRegion(); err != nil {
		return nil, err
	}

	if c.accountID == "" {
		id, err := c.authenticate(ctx)
		if err != nil {
			c.recorder.RecordHandshake("authenticate_failed")
			return nil, err
		}
		c.accountID = id
	}

	token, err := c.login(ctx, c.accountID)
	if err != nil {
		c.recorder.RecordHandshake("login_failed")
		return nil, err
	}

	c.session = &Session{
		AccountID:     c.accountID,
		Token:         token,
		EstablishedAt: time.Now(),
	}
	c.recorder.RecordHandshake("success")
	c.logger.Info("dexcom session established", "session", token.String())

	return c.session, nil
}

func (c *Client) authenticate(ctx context.Context) (AccountID, error) {
	payload := map[string]string{
		"accountName":   c.username,
		"password":      c.password,
		"applicationId": c.regionConfig.ApplicationID,
	}

	body, err := c.post(ctx, endpointAuthenticate, nil, payload)
	if err != nil {
		return "", &AuthenticationError{Step: "authenticate", Err: err}
	}

	raw, err := decodeScalar(body)
	if err != nil {
		return "", &AuthenticationError{Step: "authenticate", Err: err}
	}

	id, err := parseAccountID(raw)
	if err != nil {
		return "", &AuthenticationError{Step: "authenticate", Err: fmt.Errorf("account id %w", err)}
	}

	c.logger.Debug("dexcom account authenticated")
	return id, nil
}

func (c *Client) login(ctx context.Context, accountID AccountID) (SessionToken, error) {
	payload := map[string]string{
		"accountId":     string(accountID),
		"password":      c.password,
		"applicationId": c.regionConfig.ApplicationID,
	}

	body, err := c.post(ctx, endpointLogin, nil, payload)
	if err != nil {
		return "", &AuthenticationError{Step: "login", Err: err}
	}

	raw, err := decodeScalar(body)
	if err != nil {
		return "", &AuthenticationError{Step: "login", Err: err}
	}

	token, err := parseSessionToken(raw)
	if err != nil {
		return "", &AuthenticationError{Step: "login", Err: fmt.Errorf("session id %w", err)}
	}

	return token, nil
}
