package mutation

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"mergington/signup/internal/clients"
	"mergington/signup/internal/model"
	"mergington/signup/internal/render"
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

type countingRefresher struct {
	inner *render.Renderer
	calls int
}

func (c *countingRefresher) Refresh(ctx context.Context) render.View {
	c.calls++
	return c.inner.Refresh(ctx)
}

type fixedSession struct {
	cur model.Session
}

func (f *fixedSession) Snapshot() model.Session {
	return f.cur
}

type harness struct {
	svc       *testserver.Server
	ctrl      *Controller
	refresher *countingRefresher
	sessions  *fixedSession
	notices   *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	svc := testserver.New(testserver.ChessClub(), testserver.Rivera)
	t.Cleanup(svc.Close)
	c, err := clients.New(svc.URL(), 2*time.Second, nil)
	if err != nil {
		t.Fatalf("clients error: %v", err)
	}
	h := &harness{svc: svc, sessions: &fixedSession{}, notices: &recorder{}}
	h.refresher = &countingRefresher{inner: render.New(c.Activities, h.sessions, nil)}
	h.ctrl = NewController(c.Activities, h.refresher, h.sessions, h.notices, nil)
	return h
}

func (h *harness) loginTeacher(t *testing.T) {
	t.Helper()
	token, err := h.svc.IssueToken(testserver.Rivera.Username)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	h.sessions.cur = model.Session{
		Token:         token,
		Authenticated: true,
		Teacher:       &model.Teacher{Name: testserver.Rivera.Name, Username: testserver.Rivera.Username},
	}
}

func TestSignupSuccessRefreshesOnce(t *testing.T) {
	h := newHarness(t)
	if !h.ctrl.Signup(context.Background(), "b@x.com", "Chess Club") {
		t.Fatalf("expected signup success")
	}
	msg := h.notices.last(t)
	if msg.Text != "Signed up b@x.com for Chess Club" || msg.Kind != model.MessageSuccess {
		t.Fatalf("unexpected notification %+v", msg)
	}
	if h.refresher.calls != 1 || h.svc.Hits(testserver.RouteActivities) != 1 {
		t.Fatalf("expected exactly one refetch, got %d calls / %d hits", h.refresher.calls, h.svc.Hits(testserver.RouteActivities))
	}
	card := h.refresher.inner.View().Cards[0]
	if card.Availability != "8 spots left" || len(card.Participants) != 2 {
		t.Fatalf("unexpected card after signup %+v", card)
	}
}

func TestSignupRejectedShowsDetail(t *testing.T) {
	h := newHarness(t)
	h.svc.Fail(testserver.RouteSignup, http.StatusBadRequest, "Activity full")

	if h.ctrl.Signup(context.Background(), "b@x.com", "Chess Club") {
		t.Fatalf("expected signup failure")
	}
	if msg := h.notices.last(t); msg.Text != "Activity full" || msg.Kind != model.MessageError {
		t.Fatalf("unexpected notification %+v", msg)
	}
	if h.refresher.calls != 0 || h.svc.Hits(testserver.RouteActivities) != 0 {
		t.Fatalf("expected no refetch after failure")
	}
}

func TestSignupDuplicate(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Signup(context.Background(), "a@x.com", "Chess Club")
	if msg := h.notices.last(t); msg.Text != "Student is already signed up" {
		t.Fatalf("unexpected notification %+v", msg)
	}
}

func TestSignupWithoutDetailFallsBack(t *testing.T) {
	h := newHarness(t)
	h.svc.Fail(testserver.RouteSignup, http.StatusInternalServerError, "")
	h.ctrl.Signup(context.Background(), "b@x.com", "Chess Club")
	if msg := h.notices.last(t); msg.Text != MsgGenericError {
		t.Fatalf("unexpected notification %+v", msg)
	}
}

func TestSignupTransportError(t *testing.T) {
	h := newHarness(t)
	h.svc.Close()
	if h.ctrl.Signup(context.Background(), "b@x.com", "Chess Club") {
		t.Fatalf("expected signup failure")
	}
	if msg := h.notices.last(t); msg.Text != MsgSignupFailed {
		t.Fatalf("unexpected notification %+v", msg)
	}
	if h.refresher.calls != 0 {
		t.Fatalf("expected no refetch")
	}
}

func TestUnregisterWithoutSessionMakesNoCalls(t *testing.T) {
	h := newHarness(t)
	// A token alone is not a session.
	h.sessions.cur = model.Session{Token: "leftover"}

	if h.ctrl.Unregister(context.Background(), "a@x.com", "Chess Club") {
		t.Fatalf("expected unregister refused")
	}
	if msg := h.notices.last(t); msg.Text != MsgTeacherOnly || msg.Kind != model.MessageError {
		t.Fatalf("unexpected notification %+v", msg)
	}
	if hits := h.svc.Hits(testserver.RouteUnregister) + h.svc.Hits(testserver.RouteActivities); hits != 0 {
		t.Fatalf("expected zero network calls, got %d", hits)
	}
}

func TestUnregisterChessClubScenario(t *testing.T) {
	h := newHarness(t)
	h.loginTeacher(t)

	if !h.ctrl.Unregister(context.Background(), "a@x.com", "Chess Club") {
		t.Fatalf("expected unregister success")
	}
	if msg := h.notices.last(t); msg.Text != "Teacher Ms. Rivera unregistered a@x.com from Chess Club" {
		t.Fatalf("unexpected notification %+v", msg)
	}
	if h.refresher.calls != 1 {
		t.Fatalf("expected one refetch, got %d", h.refresher.calls)
	}
	card := h.refresher.inner.View().Cards[0]
	if card.Availability != "10 spots left" || card.Empty != render.MsgNoParticipants {
		t.Fatalf("unexpected card after unregister %+v", card)
	}
}

func TestUnregisterExpiredTokenKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.loginTeacher(t)
	h.svc.RevokeAll()

	if h.ctrl.Unregister(context.Background(), "a@x.com", "Chess Club") {
		t.Fatalf("expected unregister failure")
	}
	if msg := h.notices.last(t); msg.Text != "Only teachers can unregister students from activities" {
		t.Fatalf("unexpected notification %+v", msg)
	}
	if h.refresher.calls != 0 {
		t.Fatalf("expected no refetch")
	}
	if !h.sessions.cur.Authenticated {
		t.Fatalf("session must not be cleared by a failed unregister")
	}
}

func TestUnregisterTransportError(t *testing.T) {
	h := newHarness(t)
	h.loginTeacher(t)
	h.svc.Close()

	h.ctrl.Unregister(context.Background(), "a@x.com", "Chess Club")
	if msg := h.notices.last(t); msg.Text != MsgUnregisterFailed {
		t.Fatalf("unexpected notification %+v", msg)
	}
}
