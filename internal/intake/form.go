package intake

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"planethub/internal/events"
	"planethub/pkg/models"
)

type CustomStore interface {
	AppendCustom(ctx context.Context, p models.Planet) error
}

type Publisher interface {
	Publish(ev events.Event)
}

// Form validates a submission, persists it, and announces it.
type Form struct {
	Store  CustomStore
	Events Publisher
	logger *zap.Logger
}

func NewForm(store CustomStore, pub Publisher, logger *zap.Logger) *Form {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{Store: store, Events: pub, logger: logger}
}

// Submit returns the stored planet. On any error nothing is persisted or
// published, so the caller can keep the input for correction.
func (f *Form) Submit(ctx context.Context, fields Fields) (models.Planet, error) {
	p, err := BuildRecord(fields)
	if err != nil {
		return models.Planet{}, err
	}
	p.ID = uuid.NewString()

	if err := f.Store.AppendCustom(ctx, p); err != nil {
		f.logger.Error("save custom planet failed", zap.String("name", p.Name), zap.Error(err))
		return models.Planet{}, fmt.Errorf("save planet %q: %w", p.Name, err)
	}

	f.logger.Info("custom planet added", zap.String("id", p.ID), zap.String("name", p.Name))
	if f.Events != nil {
		f.Events.Publish(events.Event{Type: events.PlanetAdded, Name: p.Name, ID: p.ID})
	}
	return p, nil
}
