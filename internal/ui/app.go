// Package ui binds named page events to the session store and the mutation
// controller, and keeps the form state the page is drawn from.
package ui

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mergington/signup/internal/model"
	"mergington/signup/internal/notify"
	"mergington/signup/internal/render"
)

const (
	MsgMissingCredentials = "Please enter both username and password"
	MsgInvalidSignup      = "Please enter a valid email and choose an activity"

	FocusUsername = "username"
	FocusPassword = "password"
)

type Sessions interface {
	Initialize(ctx context.Context) model.Session
	Login(ctx context.Context, username, password string) bool
	Logout(ctx context.Context)
	Snapshot() model.Session
	OnChange(fn func(model.Session))
}

type Catalog interface {
	Refresh(ctx context.Context) render.View
	View() render.View
}

type Mutations interface {
	Signup(ctx context.Context, email, activity string) bool
	Unregister(ctx context.Context, email, activity string) bool
}

// Notices is the notification surface as the page sees it.
type Notices interface {
	notify.Notifier
	Current() (model.StatusMessage, bool)
}

// Form is the input state of the page between gestures.
type Form struct {
	LoginVisible   bool   `json:"login_visible"`
	Focus          string `json:"focus,omitempty"`
	Username       string `json:"username"`
	Password       string `json:"-"`
	SignupEmail    string `json:"signup_email"`
	SignupActivity string `json:"signup_activity"`
}

// Page is everything needed to draw the console.
type Page struct {
	Chrome  render.ChromeView    `json:"chrome"`
	Message *model.StatusMessage `json:"message,omitempty"`
	Form    Form                 `json:"form"`
	View    render.View          `json:"view"`
}

type signupInput struct {
	Email    string `validate:"required,email"`
	Activity string `validate:"required"`
}

type loginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type App struct {
	sessions  Sessions
	catalog   Catalog
	mutations Mutations
	notices   Notices
	validate  *validator.Validate
	logger    *zap.Logger

	*Dispatcher

	mu   sync.Mutex
	form Form
}

func NewApp(sessions Sessions, catalog Catalog, mutations Mutations, notices Notices, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		sessions:   sessions,
		catalog:    catalog,
		mutations:  mutations,
		notices:    notices,
		validate:   validator.New(),
		logger:     logger.Named("app"),
		Dispatcher: NewDispatcher(notices, logger),
	}
	sessions.OnChange(a.onSessionChange)

	a.Register(SignupSubmit, a.HandleSignup)
	a.Register(DeleteClick, a.HandleDelete)
	a.Register(ShowLoginClick, a.HandleShowLogin)
	a.Register(CancelLoginClick, a.HandleCancelLogin)
	a.Register(LoginClick, a.HandleLogin)
	a.Register(LogoutClick, a.HandleLogout)
	a.Register(UsernameKeypress, a.HandleUsernameKey)
	a.Register(PasswordKeypress, a.HandlePasswordKey)
	return a
}

// Start restores the session and draws the catalog once.
func (a *App) Start(ctx context.Context) render.View {
	sess := a.sessions.Initialize(ctx)
	view := a.catalog.Refresh(ctx)
	a.logger.Info("console ready",
		zap.Bool("authenticated", sess.Authenticated),
		zap.Int("activities", len(view.Cards)))
	return view
}

// Reload re-reads the catalog, as every page load does.
func (a *App) Reload(ctx context.Context) render.View {
	return a.catalog.Refresh(ctx)
}

// Page draws from the current session rather than the last change seen by
// a listener, so overlapping login and logout cannot leave stale chrome.
func (a *App) Page() Page {
	a.mu.Lock()
	page := Page{Form: a.form}
	a.mu.Unlock()

	page.Chrome = render.Chrome(a.sessions.Snapshot())
	if msg, ok := a.notices.Current(); ok {
		page.Message = &msg
	}
	page.View = a.catalog.View()
	return page
}

// onSessionChange closes the login form on every session change.
func (a *App) onSessionChange(_ model.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.form.LoginVisible = false
	if a.form.Focus == FocusUsername || a.form.Focus == FocusPassword {
		a.form.Focus = ""
	}
}

func (a *App) HandleSignup(ctx context.Context, ev Event) error {
	input := signupInput{Email: strings.TrimSpace(ev.Email), Activity: ev.Activity}
	a.mu.Lock()
	a.form.SignupEmail = input.Email
	a.form.SignupActivity = input.Activity
	a.mu.Unlock()

	if err := a.validate.Struct(input); err != nil {
		a.logger.Debug("signup rejected", zap.Error(err))
		a.notices.Show(MsgInvalidSignup, model.MessageError)
		return nil
	}
	if a.mutations.Signup(ctx, input.Email, input.Activity) {
		a.mu.Lock()
		a.form.SignupEmail = ""
		a.form.SignupActivity = ""
		a.mu.Unlock()
	}
	return nil
}

func (a *App) HandleDelete(ctx context.Context, ev Event) error {
	a.mutations.Unregister(ctx, ev.Email, ev.Activity)
	return nil
}

// HandleShowLogin toggles the login form. It does nothing once logged in.
func (a *App) HandleShowLogin(_ context.Context, _ Event) error {
	if a.sessions.Snapshot().Authenticated {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.form.LoginVisible = !a.form.LoginVisible
	if a.form.LoginVisible {
		a.form.Focus = FocusUsername
	} else {
		a.form.Focus = ""
	}
	return nil
}

func (a *App) HandleCancelLogin(_ context.Context, _ Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.form.LoginVisible = false
	a.form.Focus = ""
	a.form.Username = ""
	a.form.Password = ""
	return nil
}

func (a *App) HandleLogin(ctx context.Context, ev Event) error {
	a.mu.Lock()
	if ev.Username == "" {
		ev.Username = a.form.Username
	}
	if ev.Password == "" {
		ev.Password = a.form.Password
	}
	a.form.Username = ev.Username
	a.mu.Unlock()

	input := loginInput{Username: strings.TrimSpace(ev.Username), Password: ev.Password}
	if err := a.validate.Struct(input); err != nil {
		a.notices.Show(MsgMissingCredentials, model.MessageError)
		return nil
	}
	if !a.sessions.Login(ctx, input.Username, input.Password) {
		return nil
	}

	a.mu.Lock()
	a.form.Username = ""
	a.form.Password = ""
	a.mu.Unlock()
	a.catalog.Refresh(ctx)
	return nil
}

func (a *App) HandleLogout(ctx context.Context, _ Event) error {
	a.sessions.Logout(ctx)
	a.catalog.Refresh(ctx)
	return nil
}

func (a *App) HandleUsernameKey(_ context.Context, ev Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.form.Username = ev.Username
	if ev.Key == KeyEnter {
		a.form.Focus = FocusPassword
	}
	return nil
}

func (a *App) HandlePasswordKey(ctx context.Context, ev Event) error {
	if ev.Key != KeyEnter {
		a.mu.Lock()
		a.form.Password = ev.Password
		a.mu.Unlock()
		return nil
	}
	return a.HandleLogin(ctx, ev)
}
