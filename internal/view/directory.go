package view

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"planethub/internal/events"
	"planethub/internal/reconcile"
	"planethub/pkg/models"
)

const (
	FetchFailedBanner = "Could not load data from the server. Showing only locally saved planets."
	EmptyMessage      = "No planet data yet. Try refreshing the page or add your own planet."
)

// ErrDiscarded is returned when a load finished after the view was torn down
// or superseded by a newer mount; its result was not applied.
var ErrDiscarded = errors.New("view: result discarded")

type RemoteCatalog interface {
	FetchCatalog(ctx context.Context) ([]models.Planet, error)
}

type CustomCatalog interface {
	LoadCustom(ctx context.Context) []models.Planet
}

type Subscriber interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

// Card is the summary shown in the directory grid.
type Card struct {
	Name        string        `json:"name"`
	Image       string        `json:"image"`
	Description string        `json:"description"`
	Href        string        `json:"href"`
	Origin      models.Origin `json:"origin,omitempty"`
}

type DirectoryState struct {
	SortMode     reconcile.SortMode `json:"sort"`
	Ready        bool               `json:"ready"`
	Loading      bool               `json:"loading"`
	Banner       string             `json:"banner,omitempty"`
	EmptyMessage string             `json:"empty_message,omitempty"`
	Total        int                `json:"total"`
	Cards        []Card             `json:"items"`

	// Planets is the reconciled set the cards were built from.
	Planets []models.Planet `json:"planets,omitempty"`
}

// Directory is the view-model behind the planet grid. The UI layer calls
// OnMount, OnSortChange and OnDataAdded and reads Snapshot; none of the
// reconciliation logic depends on how it is rendered.
type Directory struct {
	remote     RemoteCatalog
	custom     CustomCatalog
	reconciler reconcile.Reconciler
	logger     *zap.Logger

	mu            sync.Mutex
	sortMode      reconcile.SortMode
	remotePlanets []models.Planet
	customPlanets []models.Planet
	fetchErr      error
	loaded        bool
	loading       bool
	gen           uint64
	customVersion uint64
	cancel        context.CancelFunc
	closed        bool
	done          chan struct{}
	state         DirectoryState
}

func NewDirectory(remote RemoteCatalog, custom CustomCatalog, reconciler reconcile.Reconciler, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Directory{
		remote:     remote,
		custom:     custom,
		reconciler: reconciler,
		logger:     logger,
		sortMode:   reconcile.DefaultSortMode,
		done:       make(chan struct{}),
	}
	d.renderLocked()
	return d
}

// OnMount loads remote and custom planets concurrently and renders once both
// have resolved. A fetch failure renders custom planets with a banner. A newer
// OnMount or Teardown makes this call return ErrDiscarded without touching
// the state.
func (d *Directory) OnMount(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDiscarded
	}
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.gen++
	gen := d.gen
	customVersion := d.customVersion
	d.cancel = cancel
	d.loading = true
	d.renderLocked()
	d.mu.Unlock()

	var (
		remotePlanets []models.Planet
		customPlanets []models.Planet
		fetchErr      error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		remotePlanets, fetchErr = d.remote.FetchCatalog(gctx)
		return nil
	})
	g.Go(func() error {
		customPlanets = d.custom.LoadCustom(gctx)
		return nil
	})
	_ = g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || gen != d.gen || ctx.Err() != nil {
		d.logger.Debug("discarding stale directory load", zap.Uint64("gen", gen))
		// still the latest mount: the caller gave up, so stop showing a spinner
		if gen == d.gen {
			d.cancel = nil
			d.loading = false
			d.renderLocked()
		}
		return ErrDiscarded
	}

	d.cancel = nil
	d.loading = false
	d.loaded = true
	if fetchErr != nil {
		d.logger.Warn("remote catalog unavailable, showing custom planets only", zap.Error(fetchErr))
		d.remotePlanets = nil
	} else {
		d.remotePlanets = remotePlanets
	}
	d.fetchErr = fetchErr
	// an OnDataAdded that finished meanwhile has the fresher custom list
	if customVersion == d.customVersion {
		d.customPlanets = customPlanets
	}
	d.renderLocked()
	return nil
}

// OnSortChange re-renders with the new mode and returns the mode in effect.
func (d *Directory) OnSortChange(mode string) reconcile.SortMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sortMode = reconcile.ParseSortMode(mode)
	d.renderLocked()
	return d.sortMode
}

// OnDataAdded reloads the custom planets and re-renders. The remote result
// is kept as is.
func (d *Directory) OnDataAdded(ctx context.Context) error {
	custom := d.custom.LoadCustom(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || ctx.Err() != nil {
		return ErrDiscarded
	}
	d.customVersion++
	d.customPlanets = custom
	d.renderLocked()
	return nil
}

// Watch calls OnDataAdded for every planet.added event until ctx is done or
// the directory is torn down.
func (d *Directory) Watch(ctx context.Context, sub Subscriber) {
	ch, unsubscribe := sub.Subscribe(8)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type != events.PlanetAdded {
				continue
			}
			if err := d.OnDataAdded(ctx); err != nil {
				return
			}
		}
	}
}

// Teardown cancels any pending load and stops Watch. Later results are dropped.
func (d *Directory) Teardown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	close(d.done)
}

func (d *Directory) Snapshot() DirectoryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.state
	st.Cards = append([]Card(nil), d.state.Cards...)
	st.Planets = append([]models.Planet(nil), d.state.Planets...)
	return st
}

// SnapshotFor renders the current data in mode without changing the
// directory's own sort mode.
func (d *Directory) SnapshotFor(mode reconcile.SortMode) DirectoryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.render(mode)
}

func (d *Directory) renderLocked() {
	d.state = d.render(d.sortMode)
}

func (d *Directory) render(mode reconcile.SortMode) DirectoryState {
	st := DirectoryState{
		SortMode: mode,
		Ready:    d.loaded,
		Loading:  d.loading,
		Cards:    []Card{},
	}
	if !d.loaded {
		return st
	}

	set := d.reconciler.Reconcile(d.remotePlanets, d.customPlanets, mode)
	st.Planets = set
	st.Total = len(set)
	for _, p := range set {
		st.Cards = append(st.Cards, Card{
			Name:        p.Name,
			Image:       p.Image,
			Description: p.Description,
			Href:        PlanetHref(p.Name),
			Origin:      p.Origin,
		})
	}
	if d.fetchErr != nil {
		st.Banner = FetchFailedBanner
	}
	if len(set) == 0 {
		st.EmptyMessage = EmptyMessage
	}
	return st
}

// PlanetHref is the detail route for a planet name.
func PlanetHref(name string) string {
	return "/planets/" + url.PathEscape(name)
}
