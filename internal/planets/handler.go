package planets

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"planethub/internal/events"

	"planethub/internal/catalog"
	"planethub/internal/intake"
	"planethub/internal/reconcile"
	"planethub/internal/view"
	"planethub/pkg/models"
)

// Catalog is the remote side: a fresh fetch for the directory and the cached
// result for detail lookups.
type Catalog interface {
	view.RemoteCatalog
	view.LatestCatalog
}

type Submitter interface {
	Submit(ctx context.Context, fields intake.Fields) (models.Planet, error)
}

type Handler struct {
	Remote     Catalog
	Custom     view.CustomCatalog
	Form       Submitter
	Reconciler reconcile.Reconciler

	live   *view.Directory
	detail *view.Detail
	logger *zap.Logger
}

func NewHandler(remote Catalog, custom view.CustomCatalog, form Submitter, reconciler reconcile.Reconciler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Remote:     remote,
		Custom:     custom,
		Form:       form,
		Reconciler: reconciler,
		live:       view.NewDirectory(remote, custom, reconciler, logger.Named("directory")),
		detail:     view.NewDetail(remote, custom, logger.Named("detail")),
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)      // GET /planets?sort=name-asc|name-desc|mass-desc&refresh=true&include=planets
	rg.GET("/:name", h.get) // GET /planets/:name
	rg.POST("", h.create)   // POST /planets
}

// subscription hands an already open channel to Directory.Watch.
type subscription struct {
	ch          <-chan events.Event
	unsubscribe func()
}

func (s subscription) Subscribe(int) (<-chan events.Event, func()) {
	return s.ch, s.unsubscribe
}

// Run keeps the shared directory current until ctx is done: it mounts once,
// follows PlanetAdded events from sub and remounts every refresh (0 disables
// the timer). The directory is torn down on return.
func (h *Handler) Run(ctx context.Context, sub view.Subscriber, refresh time.Duration) error {
	defer h.live.Teardown()

	// subscribe before the first mount so an add racing it is not lost
	ch, unsubscribe := sub.Subscribe(16)
	watched := subscription{ch: ch, unsubscribe: unsubscribe}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.live.Watch(gctx, watched)
		return nil
	})
	g.Go(func() error {
		h.mount(gctx)
		if refresh <= 0 {
			return nil
		}
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				h.mount(gctx)
			}
		}
	})
	return g.Wait()
}

func (h *Handler) mount(ctx context.Context) {
	if err := h.live.OnMount(ctx); err != nil {
		h.logger.Debug("directory mount discarded", zap.Error(err))
	}
}

func (h *Handler) list(c *gin.Context) {
	mode := reconcile.ParseSortMode(c.Query("sort"))

	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if err := h.live.OnMount(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request canceled"})
			return
		}
	}

	st := h.live.SnapshotFor(mode)
	if c.Query("include") != "planets" {
		st.Planets = nil
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) get(c *gin.Context) {
	// the raw path keeps an encoded slash inside the name
	name := view.NameFromRoute(c.Request.URL.EscapedPath())
	if name == "" {
		name = strings.TrimSpace(c.Param("name"))
	}

	st, err := h.detail.Load(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request canceled"})
		return
	}
	if !st.Found {
		c.JSON(http.StatusNotFound, st)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) create(c *gin.Context) {
	var fields intake.Fields
	if err := c.ShouldBind(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	p, err := h.Form.Submit(c.Request.Context(), fields)
	if err != nil {
		var verr *intake.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "missing required fields",
				"missing": verr.Missing,
				"fields":  fields,
			})
		case catalog.IsKind(err, catalog.Unavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":  "storage unavailable",
				"fields": fields,
			})
		default:
			h.logger.Error("create planet failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  "save failed",
				"fields": fields,
			})
		}
		return
	}

	c.Header("Location", view.PlanetHref(p.Name))
	c.JSON(http.StatusCreated, p)
}
