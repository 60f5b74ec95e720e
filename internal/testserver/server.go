// Package testserver runs an in-process activity service for tests. It
// follows the collaborator contract: activity catalog, open signup,
// teacher-only unregister and bearer-token sessions.
package testserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mergington/signup/internal/model"
)

const (
	RouteActivities = "list_activities"
	RouteSignup     = "signup"
	RouteUnregister = "unregister"
	RouteLogin      = "login"
	RouteLogout     = "logout"
	RouteMe         = "me"

	issuer = "mergington-test"
)

type Teacher struct {
	Username string
	Password string
	Name     string
}

type failure struct {
	status int
	detail string
}

type Server struct {
	mu         sync.Mutex
	secret     []byte
	tokenTTL   time.Duration
	activities model.Catalog
	teachers   map[string]Teacher
	sessions   map[string]string
	hits       map[string]int
	failures   map[string]failure
	app        *httptest.Server
}

func New(catalog model.Catalog, teachers ...Teacher) *Server {
	s := &Server{
		secret:     []byte(uuid.NewString()),
		tokenTTL:   time.Hour,
		activities: cloneCatalog(catalog),
		teachers:   make(map[string]Teacher, len(teachers)),
		sessions:   make(map[string]string),
		hits:       make(map[string]int),
		failures:   make(map[string]failure),
	}
	for _, teacher := range teachers {
		s.teachers[teacher.Username] = teacher
	}
	s.app = httptest.NewServer(s.Router())
	return s
}

func (s *Server) URL() string {
	return s.app.URL
}

func (s *Server) Close() {
	s.app.Close()
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/activities", s.handleListActivities)
	r.Post("/activities/{name}/signup", s.handleSignup)
	r.Delete("/activities/{name}/unregister", s.handleUnregister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
	r.Get("/auth/me", s.handleMe)
	return r
}

// Hits reports how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Fail makes every request to route answer status with detail until
// ClearFailures. An empty detail answers with no detail field.
func (s *Server) Fail(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, detail: detail}
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// RevokeAll drops every session server-side, as an expiry would.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]string)
}

func (s *Server) Catalog() model.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCatalog(s.activities)
}

// IssueToken signs a session for username without going through login.
func (s *Server) IssueToken(username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(username)
}

// hit counts the request and answers a forced failure when one is set.
func (s *Server) hit(w http.ResponseWriter, route string) bool {
	s.mu.Lock()
	s.hits[route]++
	f, forced := s.failures[route]
	s.mu.Unlock()
	if !forced {
		return false
	}
	if f.detail == "" {
		writeJSON(w, f.status, map[string]string{})
		return true
	}
	writeDetail(w, f.status, f.detail)
	return true
}

func (s *Server) handleListActivities(w http.ResponseWriter, _ *http.Request) {
	if s.hit(w, RouteActivities) {
		return
	}
	s.mu.Lock()
	payload, err := encodeCatalog(s.activities)
	s.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteSignup) {
		return
	}
	name := activityParam(r)
	email := r.URL.Query().Get("email")

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(name)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	if contains(s.activities[idx].Participants, email) {
		writeDetail(w, http.StatusBadRequest, "Student is already signed up")
		return
	}
	s.activities[idx].Participants = append(s.activities[idx].Participants, email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed up " + email + " for " + name})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteUnregister) {
		return
	}
	name := activityParam(r)
	email := r.URL.Query().Get("email")

	s.mu.Lock()
	defer s.mu.Unlock()
	teacher, ok := s.teacherLocked(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Only teachers can unregister students from activities")
		return
	}
	idx := s.indexLocked(name)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	participants := s.activities[idx].Participants
	pos := -1
	for i, participant := range participants {
		if participant == email {
			pos = i
			break
		}
	}
	if pos < 0 {
		writeDetail(w, http.StatusBadRequest, "Student is not signed up for this activity")
		return
	}
	s.activities[idx].Participants = append(participants[:pos:pos], participants[pos+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Teacher " + teacher.Name + " unregistered " + email + " from " + name,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteLogin) {
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")

	s.mu.Lock()
	defer s.mu.Unlock()
	teacher, ok := s.teachers[username]
	if !ok || teacher.Password != password {
		writeDetail(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	token, err := s.issueLocked(username)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":      "Login successful",
		"token":        token,
		"teacher_name": teacher.Name,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteLogout) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	claims, ok := s.claimsLocked(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	delete(s.sessions, claims.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteMe) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	teacher, ok := s.teacherLocked(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"teacher_name":  teacher.Name,
		"username":      teacher.Username,
	})
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *Server) issueLocked(username string) (string, error) {
	now := time.Now().UTC()
	sessionID := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.sessions[sessionID] = username
	return signed, nil
}

func (s *Server) claimsLocked(r *http.Request) (*claims, bool) {
	tokenString := bearerToken(r.Header.Get("Authorization"))
	if tokenString == "" {
		return nil, false
	}
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, false
	}
	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, false
	}
	if _, active := s.sessions[parsed.ID]; !active {
		return nil, false
	}
	return parsed, true
}

func (s *Server) teacherLocked(r *http.Request) (Teacher, bool) {
	parsed, ok := s.claimsLocked(r)
	if !ok {
		return Teacher{}, false
	}
	teacher, ok := s.teachers[parsed.Username]
	return teacher, ok
}

func (s *Server) indexLocked(name string) int {
	for i, activity := range s.activities {
		if activity.Name == name {
			return i
		}
	}
	return -1
}

func activityParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func encodeCatalog(catalog model.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, activity := range catalog {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(activity.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(activity)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func cloneCatalog(catalog model.Catalog) model.Catalog {
	out := make(model.Catalog, 0, len(catalog))
	for _, activity := range catalog {
		activity.Participants = append([]string{}, activity.Participants...)
		out = append(out, activity)
	}
	return out
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
