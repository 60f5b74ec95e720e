package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"mergington/signup/internal/clients"
	"mergington/signup/internal/db"
	"mergington/signup/internal/model"
	"mergington/signup/internal/testserver"
)

type recorder struct {
	mu       sync.Mutex
	messages []model.StatusMessage
}

func (r *recorder) Show(text string, kind model.MessageKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, model.StatusMessage{Text: text, Kind: kind})
}

func (r *recorder) last(t *testing.T) model.StatusMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		t.Fatalf("expected a notification")
	}
	return r.messages[len(r.messages)-1]
}

// failingAuth simulates a service that never answers.
type failingAuth struct {
	logoutCalls int
}

func (f *failingAuth) Login(context.Context, string, string) (clients.LoginResult, error) {
	return clients.LoginResult{}, fmt.Errorf("%w: dial refused", clients.ErrTransport)
}

func (f *failingAuth) Logout(context.Context, string) error {
	f.logoutCalls++
	return fmt.Errorf("%w: dial refused", clients.ErrTransport)
}

func (f *failingAuth) Me(context.Context, string) (clients.MeResult, error) {
	return clients.MeResult{}, fmt.Errorf("%w: dial refused", clients.ErrTransport)
}

func newServiceStore(t *testing.T, tokens db.TokenStore) (*Store, *testserver.Server, *recorder) {
	t.Helper()
	svc := testserver.New(testserver.ChessClub(), testserver.Rivera)
	t.Cleanup(svc.Close)
	c, err := clients.New(svc.URL(), 2*time.Second, nil)
	if err != nil {
		t.Fatalf("clients error: %v", err)
	}
	rec := &recorder{}
	return NewStore(c.Auth, tokens, rec, zaptest.NewLogger(t)), svc, rec
}

func TestInitializeWithoutToken(t *testing.T) {
	store, svc, _ := newServiceStore(t, db.NewMemoryStore())
	sess := store.Initialize(context.Background())
	if sess.Authenticated || sess.Token != "" || sess.Teacher != nil {
		t.Fatalf("expected empty session, got %+v", sess)
	}
	if svc.Hits(testserver.RouteMe) != 0 {
		t.Fatalf("expected no session check without a token")
	}
}

func TestLoginPersistsAndInitializeRestores(t *testing.T) {
	tokens := db.NewMemoryStore()
	store, svc, rec := newServiceStore(t, tokens)
	ctx := context.Background()

	if !store.Login(ctx, "mrivera", "teacher123") {
		t.Fatalf("expected login success")
	}
	if msg := rec.last(t); msg.Text != MsgLoginSuccess || msg.Kind != model.MessageSuccess {
		t.Fatalf("unexpected notification %+v", msg)
	}
	persisted, err := tokens.Load(ctx)
	if err != nil || persisted == "" {
		t.Fatalf("expected persisted token, got %q %v", persisted, err)
	}

	// A restart: new store, same persisted token.
	c, _ := clients.New(svc.URL(), 2*time.Second, nil)
	restarted := NewStore(c.Auth, tokens, &recorder{}, nil)
	sess := restarted.Initialize(ctx)
	if !sess.Authenticated || sess.Token != persisted || sess.TeacherName() != "Ms. Rivera" {
		t.Fatalf("expected restored session, got %+v", sess)
	}
}

func TestInitializeDiscardsRejectedToken(t *testing.T) {
	tokens := db.NewMemoryStore()
	store, svc, _ := newServiceStore(t, tokens)
	ctx := context.Background()

	token, err := svc.IssueToken("mrivera")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	_ = tokens.Save(ctx, token)
	svc.RevokeAll()

	sess := store.Initialize(ctx)
	if sess.Authenticated {
		t.Fatalf("expected revoked token to be discarded")
	}
	if _, err := tokens.Load(ctx); !errors.Is(err, db.ErrNoToken) {
		t.Fatalf("expected persisted token cleared, got %v", err)
	}
}

func TestInitializeDiscardsTokenOnTransportError(t *testing.T) {
	tokens := db.NewMemoryStore()
	_ = tokens.Save(context.Background(), "stale")
	store := NewStore(&failingAuth{}, tokens, &recorder{}, nil)

	if sess := store.Initialize(context.Background()); sess.Authenticated {
		t.Fatalf("expected unauthenticated session")
	}
	if _, err := tokens.Load(context.Background()); !errors.Is(err, db.ErrNoToken) {
		t.Fatalf("expected token discarded, got %v", err)
	}
}

func TestLoginFailureSurfacesDetail(t *testing.T) {
	store, svc, rec := newServiceStore(t, db.NewMemoryStore())
	ctx := context.Background()

	if store.Login(ctx, "mrivera", "nope") {
		t.Fatalf("expected login failure")
	}
	if msg := rec.last(t); msg.Text != "Invalid username or password" || msg.Kind != model.MessageError {
		t.Fatalf("unexpected notification %+v", msg)
	}

	svc.Fail(testserver.RouteLogin, http.StatusInternalServerError, "")
	if store.Login(ctx, "mrivera", "teacher123") {
		t.Fatalf("expected login failure")
	}
	if msg := rec.last(t); msg.Text != MsgLoginFailed {
		t.Fatalf("expected generic failure, got %+v", msg)
	}
	if store.Snapshot().Authenticated {
		t.Fatalf("expected unauthenticated session")
	}
}

func TestLoginTransportError(t *testing.T) {
	rec := &recorder{}
	store := NewStore(&failingAuth{}, db.NewMemoryStore(), rec, nil)
	if store.Login(context.Background(), "mrivera", "teacher123") {
		t.Fatalf("expected login failure")
	}
	if msg := rec.last(t); msg.Text != MsgLoginFailed || msg.Kind != model.MessageError {
		t.Fatalf("unexpected notification %+v", msg)
	}
}

func TestLogoutClearsEvenWhenServiceFails(t *testing.T) {
	tokens := db.NewMemoryStore()
	store, svc, rec := newServiceStore(t, tokens)
	ctx := context.Background()
	if !store.Login(ctx, "mrivera", "teacher123") {
		t.Fatalf("expected login success")
	}

	// Take the service away so the logout call cannot reach it.
	svc.Close()
	store.Logout(ctx)

	if _, err := tokens.Load(ctx); !errors.Is(err, db.ErrNoToken) {
		t.Fatalf("expected token cleared, got %v", err)
	}
	sess := store.Snapshot()
	if sess.Authenticated || sess.Token != "" || sess.Teacher != nil {
		t.Fatalf("expected empty session, got %+v", sess)
	}
	if msg := rec.last(t); msg.Text != MsgLogoutSuccess {
		t.Fatalf("unexpected notification %+v", msg)
	}
}

func TestLogoutWithoutTokenSkipsService(t *testing.T) {
	auth := &failingAuth{}
	store := NewStore(auth, db.NewMemoryStore(), &recorder{}, nil)
	store.Logout(context.Background())
	if auth.logoutCalls != 0 {
		t.Fatalf("expected no logout call without a token")
	}
}

func TestOnChangeListeners(t *testing.T) {
	store, _, _ := newServiceStore(t, db.NewMemoryStore())
	ctx := context.Background()

	var seen []bool
	store.OnChange(func(s model.Session) {
		seen = append(seen, s.Authenticated)
	})
	store.Login(ctx, "mrivera", "teacher123")
	store.Logout(ctx)

	if len(seen) != 2 || !seen[0] || seen[1] {
		t.Fatalf("expected [true false], got %v", seen)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store, _, _ := newServiceStore(t, db.NewMemoryStore())
	store.Login(context.Background(), "mrivera", "teacher123")

	snap := store.Snapshot()
	snap.Teacher.Name = "Someone Else"
	if store.Snapshot().TeacherName() != "Ms. Rivera" {
		t.Fatalf("expected snapshot mutation not to leak into the store")
	}
}
