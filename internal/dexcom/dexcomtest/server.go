// Package dexcomtest provides an in-process Share service for tests
package dexcomtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/mrcode/glucoshare/internal/models"
)

// Identifiers handed out by a Server unless overridden
const (
	DefaultAccountID = "1e913fce-5a34-4d27-a991-b6cb3a3bd3d8"
	DefaultSessionID = "f5b5c1a7-2a4f-4a1b-9c55-0d1a3e7c2b90"
	Username         = "follower@example.com"
	Password         = "hunter2"
)

// Descriptor is the error body returned by the Share service
type Descriptor struct {
	Code     string `json:"Code"`
	Message  string `json:"Message"`
	SubCode  string `json:"SubCode,omitempty"`
	TypeName string `json:"TypeName,omitempty"`
}

type failure struct {
	status     int
	descriptor Descriptor
}

// Server fakes the three Share endpoints
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	accountID  string
	sessionID  string
	readings   []models.RawReading
	authFail   *failure
	loginFail  *failure
	expireNext int
	authCalls  int
	loginCalls int
	readCalls  int
	lastQuery  map[string]string
}

// NewServer starts a fake Share service. Close it when done.
func NewServer() *Server {
	s := &Server{
		accountID: DefaultAccountID,
		sessionID: DefaultSessionID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /General/AuthenticatePublisherAccount", s.handleAuthenticate)
	mux.HandleFunc("POST /General/LoginPublisherAccountById", s.handleLogin)
	mux.HandleFunc("POST /Publisher/ReadPublisherLatestGlucoseValues", s.handleReadings)
	s.Server = httptest.NewServer(mux)

	return s
}

// SetReadings replaces the readings served, newest first
func (s *Server) SetReadings(readings ...models.RawReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = readings
}

// SetAccountID changes the account id returned by the authenticate step
func (s *Server) SetAccountID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountID = id
}

// SetSessionID changes the session id issued by login
func (s *Server) SetSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

// ExpireSessions makes the next n glucose requests fail with SessionIdNotFound
func (s *Server) ExpireSessions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireNext = n
}

// FailAuthenticate makes the authenticate step answer with an error descriptor
func (s *Server) FailAuthenticate(status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authFail = &failure{status: status, descriptor: Descriptor{Code: code, Message: message}}
}

// FailLogin makes the login step answer with an error descriptor
func (s *Server) FailLogin(status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginFail = &failure{status: status, descriptor: Descriptor{Code: code, Message: message}}
}

// Calls returns how often each endpoint was hit
func (s *Server) Calls() (authenticate, login, readings int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authCalls, s.loginCalls, s.readCalls
}

// LastQuery returns the query of the most recent glucose request
func (s *Server) LastQuery() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.lastQuery))
	for k, v := range s.lastQuery {
		out[k] = v
	}
	return out
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authCalls++

	if s.authFail != nil {
		writeJSON(w, s.authFail.status, s.authFail.descriptor)
		return
	}

	var body struct {
		AccountName   string `json:"accountName"`
		Password      string `json:"password"`
		ApplicationID string `json:"applicationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ApplicationID == "" {
		writeJSON(w, http.StatusBadRequest, Descriptor{Code: "InvalidArgument", Message: "bad request"})
		return
	}
	if body.Password != Password {
		writeJSON(w, http.StatusInternalServerError, Descriptor{Code: "AccountPasswordInvalid", Message: "Publisher account password failed"})
		return
	}

	writeJSON(w, http.StatusOK, s.accountID)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginCalls++

	if s.loginFail != nil {
		writeJSON(w, s.loginFail.status, s.loginFail.descriptor)
		return
	}

	var body struct {
		AccountID     string `json:"accountId"`
		Password      string `json:"password"`
		ApplicationID string `json:"applicationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ApplicationID == "" {
		writeJSON(w, http.StatusBadRequest, Descriptor{Code: "InvalidArgument", Message: "bad request"})
		return
	}
	if body.Password != Password {
		writeJSON(w, http.StatusInternalServerError, Descriptor{Code: "AccountPasswordInvalid", Message: "Publisher account password failed"})
		return
	}

	writeJSON(w, http.StatusOK, s.sessionID)
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readCalls++

	q := r.URL.Query()
	s.lastQuery = map[string]string{
		"sessionId": q.Get("sessionId"),
		"minutes":   q.Get("minutes"),
		"maxCount":  q.Get("maxCount"),
	}

	if s.expireNext > 0 {
		s.expireNext--
		writeJSON(w, http.StatusInternalServerError, Descriptor{Code: "SessionIdNotFound", Message: "Session ID not found"})
		return
	}
	if q.Get("sessionId") != s.sessionID {
		writeJSON(w, http.StatusInternalServerError, Descriptor{Code: "SessionNotValid", Message: "Session not active or timed out"})
		return
	}

	maxCount, err := strconv.Atoi(q.Get("maxCount"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Descriptor{Code: "InvalidArgument", Message: "maxCount"})
		return
	}

	out := s.readings
	if len(out) > maxCount {
		out = out[:maxCount]
	}
	if out == nil {
		out = []models.RawReading{}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Reading builds a raw reading in the service's wire format
func Reading(at time.Time, mgdl int, trend string) models.RawReading {
	ms := at.UnixMilli()
	return models.RawReading{
		WT:    fmt.Sprintf("Date(%d)", ms),
		ST:    fmt.Sprintf("Date(%d)", ms),
		DT:    fmt.Sprintf("Date(%d-0400)", ms),
		Value: json.RawMessage(strconv.Itoa(mgdl)),
		Trend: json.RawMessage(strconv.Quote(trend)),
	}
}

// Series builds readings five minutes apart ending at last, newest
// first, from the given values ordered oldest first
func Series(last time.Time, values ...int) []models.RawReading {
	out := make([]models.RawReading, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		at := last.Add(-time.Duration(len(values)-1-i) * 5 * time.Minute)
		out = append(out, Reading(at, values[i], "Flat"))
	}
	return out
}
