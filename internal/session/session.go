package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"

	"go.uber.org/zap"

	"mergington/signup/internal/clients"
	"mergington/signup/internal/db"
	"mergington/signup/internal/model"
	"mergington/signup/internal/notify"
)

const (
	MsgLoginSuccess  = "Login successful"
	MsgLoginFailed   = "Login failed"
	MsgLogoutSuccess = "Logged out successfully"
)

// Authenticator is the auth side of the activity service.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (clients.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (clients.MeResult, error)
}

// Reader is the read-only view of the session other components depend on.
type Reader interface {
	Snapshot() model.Session
}

// Store owns the Session. Set and clear happen only through Initialize,
// Login and Logout; everyone else reads snapshots.
type Store struct {
	mu        sync.RWMutex
	auth      Authenticator
	tokens    db.TokenStore
	notifier  notify.Notifier
	logger    *zap.Logger
	session   model.Session
	listeners []func(model.Session)
}

func NewStore(auth Authenticator, tokens db.TokenStore, notifier notify.Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		auth:     auth,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger.Named("session"),
	}
}

// OnChange registers fn to run after every session change. Listeners render
// auth chrome only; refreshing the catalog is the caller's job.
func (s *Store) OnChange(fn func(model.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.session)
}

// Initialize restores a persisted token if the service still accepts it.
// Any doubt discards the token.
func (s *Store) Initialize(ctx context.Context) model.Session {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		if !errors.Is(err, db.ErrNoToken) {
			s.logger.Warn("persisted token unreadable", zap.Error(err))
			s.clearPersisted(ctx)
		}
		s.set(model.Session{})
		return s.Snapshot()
	}

	me, err := s.auth.Me(ctx, token)
	if err != nil || !me.Authenticated {
		if err != nil {
			s.logger.Warn("session check failed", zap.Error(err))
		} else {
			s.logger.Info("persisted token rejected")
		}
		s.clearPersisted(ctx)
		s.set(model.Session{})
		return s.Snapshot()
	}

	teacher := me.Teacher
	s.set(model.Session{Token: token, Authenticated: true, Teacher: &teacher})
	s.logger.Info("session restored", zap.String("teacher", teacher.Name), zap.String("token", fingerprint(token)))
	return s.Snapshot()
}

func (s *Store) Login(ctx context.Context, username, password string) bool {
	result, err := s.auth.Login(ctx, username, password)
	if err != nil {
		msg := MsgLoginFailed
		if detail, ok := clients.Detail(err); ok {
			msg = detail
		}
		s.logger.Info("login failed", zap.String("username", username), zap.Error(err))
		s.notifier.Show(msg, model.MessageError)
		return false
	}

	if err := s.tokens.Save(ctx, result.Token); err != nil {
		s.logger.Error("persist token failed", zap.Error(err))
	}
	teacher := result.Teacher
	s.set(model.Session{Token: result.Token, Authenticated: true, Teacher: &teacher})
	s.logger.Info("logged in", zap.String("teacher", teacher.Name), zap.String("token", fingerprint(result.Token)))
	s.notifier.Show(MsgLoginSuccess, model.MessageSuccess)
	return true
}

// Logout tells the service best-effort, then always forgets the token.
func (s *Store) Logout(ctx context.Context) {
	if token := s.Snapshot().Token; token != "" {
		if err := s.auth.Logout(ctx, token); err != nil {
			s.logger.Warn("logout call failed", zap.Error(err))
		}
	}
	s.clearPersisted(ctx)
	s.set(model.Session{})
	s.notifier.Show(MsgLogoutSuccess, model.MessageSuccess)
}

func (s *Store) clearPersisted(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Error("clear persisted token failed", zap.Error(err))
	}
}

func (s *Store) set(next model.Session) {
	s.mu.Lock()
	s.session = copySession(next)
	listeners := append([]func(model.Session){}, s.listeners...)
	snapshot := copySession(s.session)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func copySession(in model.Session) model.Session {
	out := in
	if in.Teacher != nil {
		teacher := *in.Teacher
		out.Teacher = &teacher
	}
	if out.Token == "" || out.Teacher == nil {
		out.Authenticated = false
	}
	if !out.Authenticated {
		out.Teacher = nil
	}
	return out
}

// fingerprint identifies a token in logs without revealing it.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:12]
}
