package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mergington/signup/internal/metrics"
	"mergington/signup/internal/model"
)

const DefaultTTL = 5 * time.Second

// Notifier is the write side of the surface, as used by other components.
type Notifier interface {
	Show(text string, kind model.MessageKind)
}

// Surface shows one status message at a time. Each Show replaces the
// current message and restarts the dismissal timer.
type Surface struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *model.StatusMessage
	timer   *time.Timer
	logger  *zap.Logger
	now     func() time.Time
}

func NewSurface(ttl time.Duration, logger *zap.Logger) *Surface {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Surface{
		ttl:    ttl,
		logger: logger.Named("notify"),
		now:    time.Now,
	}
}

func (s *Surface) Show(text string, kind model.MessageKind) {
	msg := model.StatusMessage{
		ID:      uuid.NewString(),
		Text:    text,
		Kind:    kind,
		ShownAt: s.now(),
	}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.current = &msg
	s.timer = time.AfterFunc(s.ttl, func() { s.dismiss(msg.ID) })
	s.mu.Unlock()

	metrics.TrackNotification(string(kind))
	if kind == model.MessageError {
		s.logger.Info("notice", zap.String("kind", string(kind)), zap.String("text", text))
	} else {
		s.logger.Debug("notice", zap.String("kind", string(kind)), zap.String("text", text))
	}
}

// Current returns the visible message, if any.
func (s *Surface) Current() (model.StatusMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return model.StatusMessage{}, false
	}
	return *s.current, true
}

// dismiss hides the message id; a timer that lost a race with a newer Show
// finds another id and leaves it alone.
func (s *Surface) dismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != id {
		return
	}
	s.current = nil
	s.timer = nil
}

func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
