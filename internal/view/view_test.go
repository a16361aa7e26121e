package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"planethub/internal/events"
	"planethub/internal/reconcile"
	"planethub/pkg/models"
)

// fakeRemote blocks its first call on gate (when set) until gate closes or
// ctx is done.
type fakeRemote struct {
	planets []models.Planet
	err     error
	gate    chan struct{}
	calls   atomic.Int32
}

func (f *fakeRemote) FetchCatalog(ctx context.Context) ([]models.Planet, error) {
	n := f.calls.Add(1)
	if n == 1 && f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Planet(nil), f.planets...), nil
}

func (f *fakeRemote) Latest(ctx context.Context) ([]models.Planet, error) {
	return f.FetchCatalog(ctx)
}

type fakeCustom struct {
	mu      sync.Mutex
	planets []models.Planet
	loads   atomic.Int32
}

func (f *fakeCustom) LoadCustom(context.Context) []models.Planet {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Planet(nil), f.planets...)
}

func (f *fakeCustom) add(p models.Planet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.Origin = models.OriginCustom
	f.planets = append(f.planets, p)
}

func remotePlanet(name, mass string) models.Planet {
	return models.Planet{
		Name:        name,
		Image:       name + ".png",
		Description: name + " description",
		Details:     models.Details{Mass: mass, Volume: "N/A"},
		Origin:      models.OriginRemote,
	}
}

func cardNames(st DirectoryState) []string {
	names := make([]string, 0, len(st.Cards))
	for _, c := range st.Cards {
		names = append(names, c.Name)
	}
	return names
}

func newDirectory(remote *fakeRemote, custom *fakeCustom) *Directory {
	return NewDirectory(remote, custom, reconcile.New("uk"), nil)
}

func TestDirectory_BeforeMount(t *testing.T) {
	d := newDirectory(&fakeRemote{}, &fakeCustom{})
	st := d.Snapshot()

	assert.Equal(t, reconcile.NameAsc, st.SortMode)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Cards)
	assert.Empty(t, st.EmptyMessage)
}

func TestDirectory_OnMount(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{
		remotePlanet("Mars", "6.4×10^23 kg"),
		remotePlanet("Earth", "5.9×10^24 kg"),
	}}
	custom := &fakeCustom{}
	custom.add(models.Planet{Name: "Vulcan", Image: "v.png", Description: "Hot"})

	d := newDirectory(remote, custom)
	require.NoError(t, d.OnMount(context.Background()))

	st := d.Snapshot()
	assert.Equal(t, []string{"Earth", "Mars", "Vulcan"}, cardNames(st))
	assert.Equal(t, 3, st.Total)
	assert.Len(t, st.Planets, 3)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Banner)
	assert.Empty(t, st.EmptyMessage)
	assert.Equal(t, "/planets/Earth", st.Cards[0].Href)
	assert.Equal(t, models.OriginCustom, st.Cards[2].Origin)
}

func TestDirectory_FetchFailure(t *testing.T) {
	t.Run("custom only with banner", func(t *testing.T) {
		custom := &fakeCustom{}
		custom.add(models.Planet{Name: "Vulcan", Image: "v.png", Description: "Hot"})
		d := newDirectory(&fakeRemote{err: errors.New("offline")}, custom)

		require.NoError(t, d.OnMount(context.Background()))

		st := d.Snapshot()
		assert.Equal(t, FetchFailedBanner, st.Banner)
		assert.Equal(t, []string{"Vulcan"}, cardNames(st))
		assert.Empty(t, st.EmptyMessage)
	})

	t.Run("nothing at all", func(t *testing.T) {
		d := newDirectory(&fakeRemote{err: errors.New("offline")}, &fakeCustom{})

		require.NoError(t, d.OnMount(context.Background()))

		st := d.Snapshot()
		assert.Equal(t, FetchFailedBanner, st.Banner)
		assert.Equal(t, EmptyMessage, st.EmptyMessage)
		assert.Empty(t, st.Cards)
	})
}

func TestDirectory_LoadingUntilBothResolve(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{remotePlanet("Earth", "1")}, gate: make(chan struct{})}
	custom := &fakeCustom{}
	custom.add(models.Planet{Name: "Vulcan", Image: "v.png", Description: "Hot"})
	d := newDirectory(remote, custom)

	done := make(chan error, 1)
	go func() { done <- d.OnMount(context.Background()) }()

	require.Eventually(t, func() bool { return custom.loads.Load() == 1 }, time.Second, 5*time.Millisecond)
	st := d.Snapshot()
	assert.True(t, st.Loading)
	assert.Empty(t, st.Cards, "custom planets must not render before the remote result")

	close(remote.gate)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"Earth", "Vulcan"}, cardNames(d.Snapshot()))
}

func TestDirectory_OnSortChange(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{
		remotePlanet("Mars", "6.4×10^23 kg"),
		remotePlanet("Jupiter", "1.9×10^27 kg"),
		remotePlanet("Earth", "5.9×10^24 kg"),
	}}
	d := newDirectory(remote, &fakeCustom{})
	require.NoError(t, d.OnMount(context.Background()))

	assert.Equal(t, reconcile.NameDesc, d.OnSortChange("name-desc"))
	assert.Equal(t, []string{"Mars", "Jupiter", "Earth"}, cardNames(d.Snapshot()))

	assert.Equal(t, reconcile.MassDesc, d.OnSortChange("mass"))
	assert.Equal(t, []string{"Jupiter", "Earth", "Mars"}, cardNames(d.Snapshot()))

	assert.Equal(t, reconcile.NameAsc, d.OnSortChange("bogus"))
	assert.Equal(t, []string{"Earth", "Jupiter", "Mars"}, cardNames(d.Snapshot()))

	assert.Equal(t, int32(1), remote.calls.Load(), "sorting must not refetch")
}

func TestDirectory_OnDataAdded(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{remotePlanet("Earth", "1")}}
	custom := &fakeCustom{}
	d := newDirectory(remote, custom)
	require.NoError(t, d.OnMount(context.Background()))

	custom.add(models.Planet{Name: "Arrakis", Image: "a.png", Description: "Dune"})
	require.NoError(t, d.OnDataAdded(context.Background()))

	assert.Equal(t, []string{"Arrakis", "Earth"}, cardNames(d.Snapshot()))
	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestDirectory_DataAddedDuringMount(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{remotePlanet("Earth", "1")}, gate: make(chan struct{})}
	custom := &fakeCustom{}
	d := newDirectory(remote, custom)

	done := make(chan error, 1)
	go func() { done <- d.OnMount(context.Background()) }()
	require.Eventually(t, func() bool { return custom.loads.Load() == 1 }, time.Second, 5*time.Millisecond)

	custom.add(models.Planet{Name: "Arrakis", Image: "a.png", Description: "Dune"})
	require.NoError(t, d.OnDataAdded(context.Background()))

	close(remote.gate)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"Arrakis", "Earth"}, cardNames(d.Snapshot()))
}

func TestDirectory_TeardownDiscardsPendingLoad(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{remotePlanet("Earth", "1")}, gate: make(chan struct{})}
	d := newDirectory(remote, &fakeCustom{})

	done := make(chan error, 1)
	go func() { done <- d.OnMount(context.Background()) }()
	require.Eventually(t, func() bool { return remote.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	d.Teardown()
	err := <-done
	assert.ErrorIs(t, err, ErrDiscarded)
	assert.Empty(t, d.Snapshot().Cards)

	assert.ErrorIs(t, d.OnMount(context.Background()), ErrDiscarded)
	assert.ErrorIs(t, d.OnDataAdded(context.Background()), ErrDiscarded)
	d.Teardown()
}

func TestDirectory_CallerCancelClearsLoading(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{remotePlanet("Earth", "1")}, gate: make(chan struct{})}
	d := newDirectory(remote, &fakeCustom{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.OnMount(ctx) }()
	require.Eventually(t, func() bool { return d.Snapshot().Loading }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, ErrDiscarded)
	st := d.Snapshot()
	assert.False(t, st.Loading)
	assert.False(t, st.Ready)

	require.NoError(t, d.OnMount(context.Background()))
	st = d.Snapshot()
	assert.True(t, st.Ready)
	assert.Equal(t, []string{"Earth"}, cardNames(st))
}

func TestDirectory_SnapshotForKeepsSortMode(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{
		remotePlanet("Mars", "6.4×10^23 kg"),
		remotePlanet("Jupiter", "1.9×10^27 kg"),
		remotePlanet("Earth", "5.9×10^24 kg"),
	}}
	d := newDirectory(remote, &fakeCustom{})
	require.NoError(t, d.OnMount(context.Background()))

	st := d.SnapshotFor(reconcile.MassDesc)
	assert.Equal(t, reconcile.MassDesc, st.SortMode)
	assert.Equal(t, []string{"Jupiter", "Earth", "Mars"}, cardNames(st))
	assert.Len(t, st.Planets, 3)

	assert.Equal(t, reconcile.NameAsc, d.Snapshot().SortMode)
	assert.Equal(t, []string{"Earth", "Jupiter", "Mars"}, cardNames(d.Snapshot()))
}

func TestDirectory_NewerMountSupersedes(t *testing.T) {
	remote := &fakeRemote{planets: []models.Planet{remotePlanet("Earth", "1")}, gate: make(chan struct{})}
	d := newDirectory(remote, &fakeCustom{})

	first := make(chan error, 1)
	go func() { first <- d.OnMount(context.Background()) }()
	require.Eventually(t, func() bool { return remote.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, d.OnMount(context.Background()))
	assert.ErrorIs(t, <-first, ErrDiscarded)
	assert.Equal(t, []string{"Earth"}, cardNames(d.Snapshot()))
}

func TestDirectory_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := events.NewHub(nil)
	custom := &fakeCustom{}
	d := newDirectory(&fakeRemote{planets: []models.Planet{remotePlanet("Earth", "1")}}, custom)
	require.NoError(t, d.OnMount(context.Background()))

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		d.Watch(context.Background(), hub)
	}()
	require.Eventually(t, func() bool { return hub.Stats().Subscribers == 1 }, time.Second, 5*time.Millisecond)

	custom.add(models.Planet{Name: "Arrakis", Image: "a.png", Description: "Dune"})
	hub.Publish(events.Event{Type: "something.else"})
	hub.Publish(events.Event{Type: events.PlanetAdded, Name: "Arrakis"})

	require.Eventually(t, func() bool { return d.Snapshot().Total == 2 }, time.Second, 5*time.Millisecond)

	d.Teardown()
	<-stopped
	assert.Equal(t, 0, hub.Stats().Subscribers)
}

func TestDirectory_WatchStopsOnContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := events.NewHub(nil)
	d := newDirectory(&fakeRemote{}, &fakeCustom{})
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		d.Watch(ctx, hub)
	}()
	cancel()
	<-stopped
}

func TestDetail_Load(t *testing.T) {
	earth := remotePlanet("Earth", "5.9×10^24 kg")
	earth.Details.Temperature = "15 °C"
	earth.Details.WikiLink = "https://en.wikipedia.org/wiki/Earth"
	earth.Details.Atmosphere = "N2, O2"
	earth.Details.Satellites = models.StringList{"Moon"}

	custom := &fakeCustom{}
	custom.add(models.Planet{Name: "Vulcan", Image: "v.png", Description: "Hot"})

	det := NewDetail(&fakeRemote{planets: []models.Planet{earth}}, custom, nil)

	t.Run("remote planet", func(t *testing.T) {
		st, err := det.Load(context.Background(), "Earth")
		require.NoError(t, err)
		require.True(t, st.Found)
		assert.Equal(t, "Earth", st.Planet.Name)

		keys := make([]string, 0, len(st.Chips))
		for _, c := range st.Chips {
			keys = append(keys, c.Key)
		}
		assert.Equal(t, []string{"temperature", "mass", "volume", "wiki"}, keys)
		assert.Equal(t, "https://en.wikipedia.org/wiki/Earth", st.Chips[3].Link)

		require.Len(t, st.Sections, 2)
		assert.Equal(t, "atmosphere", st.Sections[0].Key)
		assert.Equal(t, []string{"Moon"}, st.Sections[1].Items)
	})

	t.Run("custom planet without mass", func(t *testing.T) {
		st, err := det.Load(context.Background(), " Vulcan ")
		require.NoError(t, err)
		require.True(t, st.Found)
		require.Len(t, st.Chips, 1)
		assert.Equal(t, Chip{Key: "mass", Label: "Mass", Value: "N/A"}, st.Chips[0])
		assert.Empty(t, st.Sections)
	})

	t.Run("not found", func(t *testing.T) {
		st, err := det.Load(context.Background(), "Pluto")
		require.NoError(t, err)
		assert.False(t, st.Found)
		assert.Nil(t, st.Planet)
		assert.Equal(t, NotFoundMessage, st.Message)
	})

	t.Run("empty name", func(t *testing.T) {
		st, err := det.Load(context.Background(), "  ")
		require.NoError(t, err)
		assert.False(t, st.Found)
	})
}

func TestDetail_RemoteWinsNameCollision(t *testing.T) {
	custom := &fakeCustom{}
	custom.add(models.Planet{Name: "Mars", Image: "c.png", Description: "custom"})
	remote := remotePlanet("Mars", "6.4×10^23 kg")

	st, err := NewDetail(&fakeRemote{planets: []models.Planet{remote}}, custom, nil).
		Load(context.Background(), "Mars")
	require.NoError(t, err)
	require.True(t, st.Found)
	assert.Equal(t, models.OriginRemote, st.Planet.Origin)
}

func TestDetail_RemoteFailureFallsBackToCustom(t *testing.T) {
	custom := &fakeCustom{}
	custom.add(models.Planet{Name: "Vulcan", Image: "v.png", Description: "Hot"})

	st, err := NewDetail(&fakeRemote{err: errors.New("offline")}, custom, nil).
		Load(context.Background(), "Vulcan")
	require.NoError(t, err)
	assert.True(t, st.Found)
}

func TestDetail_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDetail(&fakeRemote{}, &fakeCustom{}, nil).Load(ctx, "Earth")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNameFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/planet/Earth", "Earth"},
		{"/planets/Earth", "Earth"},
		{"#/planet/Earth", "Earth"},
		{"/planet/%D0%97%D0%B5%D0%BC%D0%BB%D1%8F", "Земля"},
		{"/planets/New%20Earth?tab=info", "New Earth"},
		{"/planet/", ""},
		{"/moons/Io", ""},
		{"/planet/a/b", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, NameFromRoute(tt.route))
		})
	}
}
