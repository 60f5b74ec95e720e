package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mergington/signup/internal/metrics"
	"mergington/signup/internal/model"
	"mergington/signup/internal/notify"
)

type EventName string

const (
	SignupSubmit     EventName = "signup-form.submit"
	DeleteClick      EventName = "delete-btn.click"
	ShowLoginClick   EventName = "show-login-btn.click"
	CancelLoginClick EventName = "cancel-login-btn.click"
	LoginClick       EventName = "login-btn.click"
	LogoutClick      EventName = "logout-btn.click"
	UsernameKeypress EventName = "username.keypress"
	PasswordKeypress EventName = "password.keypress"
)

const (
	KeyEnter       = "Enter"
	MsgHandlerFail = "An error occurred"
)

var (
	ErrUnknownEvent = errors.New("unknown_event")
	ErrHandlerPanic = errors.New("handler_panic")
)

// Event is the payload of one gesture. Fields not relevant to the event are
// left empty.
type Event struct {
	Email    string
	Activity string
	Username string
	Password string
	Key      string
}

type Handler func(ctx context.Context, ev Event) error

// Dispatcher maps event names to handlers. Handlers can also be called
// directly.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventName]Handler
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewDispatcher(notifier notify.Notifier, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[EventName]Handler),
		notifier: notifier,
		logger:   logger.Named("ui"),
	}
}

func (d *Dispatcher) Register(name EventName, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

func (d *Dispatcher) Handler(name EventName) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[name]
	return h, ok
}

func (d *Dispatcher) Events() []EventName {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]EventName, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch runs the handler bound to name. A panic inside the handler is
// logged and shown as a generic error; it never reaches the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, name EventName, ev Event) (err error) {
	h, ok := d.Handler(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	metrics.TrackEvent(string(name))

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("event", string(name)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			d.notifier.Show(MsgHandlerFail, model.MessageError)
			err = fmt.Errorf("%w: %s", ErrHandlerPanic, name)
		}
	}()
	return h(ctx, ev)
}
