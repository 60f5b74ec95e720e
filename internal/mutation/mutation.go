// Package mutation performs signup and unregister against the activity
// service and refreshes the rendered catalog after each success.
package mutation

import (
	"context"

	"go.uber.org/zap"

	"mergington/signup/internal/clients"
	"mergington/signup/internal/model"
	"mergington/signup/internal/notify"
	"mergington/signup/internal/render"
	"mergington/signup/internal/session"
)

const (
	MsgGenericError     = "An error occurred"
	MsgSignupFailed     = "Failed to sign up. Please try again."
	MsgUnregisterFailed = "Failed to unregister. Please try again."
	MsgTeacherOnly      = "Only teachers can unregister students. Please login first."
)

type Service interface {
	Signup(ctx context.Context, activity, email string) (string, error)
	Unregister(ctx context.Context, activity, email, token string) (string, error)
}

type Refresher interface {
	Refresh(ctx context.Context) render.View
}

type Controller struct {
	service   Service
	refresher Refresher
	sessions  session.Reader
	notifier  notify.Notifier
	logger    *zap.Logger
}

func NewController(service Service, refresher Refresher, sessions session.Reader, notifier notify.Notifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		service:   service,
		refresher: refresher,
		sessions:  sessions,
		notifier:  notifier,
		logger:    logger.Named("mutation"),
	}
}

// Signup needs no session. It reports whether the service accepted it.
func (c *Controller) Signup(ctx context.Context, email, activity string) bool {
	message, err := c.service.Signup(ctx, activity, email)
	if err != nil {
		c.fail("signup", err, MsgSignupFailed)
		return false
	}
	c.logger.Info("signed up", zap.String("activity", activity), zap.String("email", email))
	c.notifier.Show(message, model.MessageSuccess)
	c.refresher.Refresh(ctx)
	return true
}

// Unregister is teacher-only; without a session nothing is sent.
func (c *Controller) Unregister(ctx context.Context, email, activity string) bool {
	sess := c.sessions.Snapshot()
	if !sess.Authenticated || sess.Token == "" {
		c.notifier.Show(MsgTeacherOnly, model.MessageError)
		return false
	}

	message, err := c.service.Unregister(ctx, activity, email, sess.Token)
	if err != nil {
		c.fail("unregister", err, MsgUnregisterFailed)
		return false
	}
	c.logger.Info("unregistered",
		zap.String("activity", activity),
		zap.String("email", email),
		zap.String("teacher", sess.TeacherName()),
	)
	c.notifier.Show(message, model.MessageSuccess)
	c.refresher.Refresh(ctx)
	return true
}

func (c *Controller) fail(op string, err error, transportMsg string) {
	msg := MsgGenericError
	switch detail, ok := clients.Detail(err); {
	case clients.IsTransport(err):
		msg = transportMsg
	case ok:
		msg = detail
	}
	c.logger.Warn(op+" failed", zap.Error(err))
	c.notifier.Show(msg, model.MessageError)
}
