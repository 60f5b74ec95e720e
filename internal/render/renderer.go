package render

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"mergington/signup/internal/metrics"
	"mergington/signup/internal/model"
	"mergington/signup/internal/session"
)

type CatalogSource interface {
	ListActivities(ctx context.Context) (model.Catalog, error)
}

// Renderer keeps the current View. Refreshes may overlap; only the most
// recently issued one is allowed to land.
type Renderer struct {
	source   CatalogSource
	sessions session.Reader
	logger   *zap.Logger

	issued atomic.Uint64

	mu      sync.RWMutex
	view    View
	applied uint64
}

func New(source CatalogSource, sessions session.Reader, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		source:   source,
		sessions: sessions,
		logger:   logger.Named("render"),
		view:     View{Cards: []Card{}, Options: []Option{}},
	}
}

// Refresh fetches the catalog and replaces the view. It returns the view
// that is current once the refresh settles, which is the result of a newer
// refresh when this one was overtaken.
func (r *Renderer) Refresh(ctx context.Context) View {
	gen := r.issued.Add(1)
	catalog, err := r.source.ListActivities(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen < r.issued.Load() || gen <= r.applied {
		metrics.TrackRefresh("discarded")
		r.logger.Debug("stale refresh discarded", zap.Uint64("generation", gen))
		return copyView(r.view)
	}

	if err != nil {
		metrics.TrackRefresh("failed")
		r.logger.Warn("load activities failed", zap.Error(err))
		// Options and form state stay as they were.
		r.view = View{
			Generation: gen,
			Cards:      []Card{},
			Options:    r.view.Options,
			Error:      MsgLoadFailed,
		}
		r.applied = gen
		return copyView(r.view)
	}

	next := Render(catalog, r.sessions.Snapshot())
	next.Generation = gen
	r.view = next
	r.applied = gen
	metrics.TrackRefresh("applied")
	return copyView(r.view)
}

func (r *Renderer) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyView(r.view)
}

func copyView(in View) View {
	out := in
	out.Cards = make([]Card, len(in.Cards))
	for i, card := range in.Cards {
		card.Participants = append([]Participant{}, card.Participants...)
		out.Cards[i] = card
	}
	out.Options = append([]Option{}, in.Options...)
	return out
}
