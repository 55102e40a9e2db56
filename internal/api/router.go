package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sebfried/menubarmaid/internal/api/middleware"
	"github.com/sebfried/menubarmaid/internal/backup"
	"github.com/sebfried/menubarmaid/internal/feed"
	"github.com/sebfried/menubarmaid/internal/launcher"
	"github.com/sebfried/menubarmaid/internal/logging"
	"github.com/sebfried/menubarmaid/internal/maintenance"
	"github.com/sebfried/menubarmaid/internal/screenshot"
	"github.com/sebfried/menubarmaid/internal/settings"
)

// DefaultKeepalive is the interval between SSE comment pings.
const DefaultKeepalive = 15 * time.Second

// ScreenshotSource provides the full, current screenshot list.
type ScreenshotSource interface {
	Current() []screenshot.Record
}

// Shortcuts runs menu actions and opens files.
type Shortcuts interface {
	Menu() []launcher.Item
	Activate(ctx context.Context, id string) error
	OpenFile(ctx context.Context, path string) error
}

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Feed        *feed.Feed
	Source      ScreenshotSource
	Shortcuts   Shortcuts
	Settings    *settings.Service
	Maintenance *maintenance.Service
	Backups     *backup.Service
	LogManager  *logging.Manager
	Logger      *slog.Logger
	BasePath    string
	Token       string
	WatchedDir  string
	Keepalive   time.Duration
}

// Router sets up all HTTP routes for the application.
type Router struct {
	feed        *feed.Feed
	source      ScreenshotSource
	shortcuts   Shortcuts
	settings    *settings.Service
	maintenance *maintenance.Service
	backups     *backup.Service
	logManager  *logging.Manager
	logger      *slog.Logger
	basePath    string
	token       string
	watchedDir  string
	keepalive   time.Duration

	// ctx ends long-lived streams on server shutdown.
	ctx context.Context
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	if deps.Keepalive <= 0 {
		deps.Keepalive = DefaultKeepalive
	}
	return &Router{
		feed:        deps.Feed,
		source:      deps.Source,
		shortcuts:   deps.Shortcuts,
		settings:    deps.Settings,
		maintenance: deps.Maintenance,
		backups:     deps.Backups,
		logManager:  deps.LogManager,
		logger:      deps.Logger.With(slog.String("component", "api")),
		basePath:    deps.BasePath,
		token:       deps.Token,
		watchedDir:  deps.WatchedDir,
		keepalive:   deps.Keepalive,
		ctx:         context.Background(),
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
// Streams are closed and the rate limiter cleanup stops when ctx ends.
func (r *Router) Handler(ctx context.Context) http.Handler {
	r.ctx = ctx
	authMw := middleware.Token(r.token)
	mux := http.NewServeMux()
	bp := r.basePath

	// Public routes (no auth)
	mux.HandleFunc("GET "+bp+"/api/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/favicon.png", r.handleFavicon)

	// Screenshot routes
	mux.HandleFunc("GET "+bp+"/api/screenshots", wrapAuth(r.handleListScreenshots, authMw))
	mux.HandleFunc("GET "+bp+"/api/screenshots/stream", wrapAuth(r.handleStream, authMw))
	mux.HandleFunc("GET "+bp+"/api/screenshots/{id}", wrapAuth(r.handleGetScreenshot, authMw))
	mux.HandleFunc("GET "+bp+"/api/screenshots/{id}/file", wrapAuth(r.handleScreenshotFile, authMw))
	mux.HandleFunc("GET "+bp+"/api/screenshots/{id}/thumbnail", wrapAuth(r.handleThumbnail, authMw))

	// Shortcut routes
	mux.HandleFunc("GET "+bp+"/api/menu", wrapAuth(r.handleGetMenu, authMw))
	mux.HandleFunc("POST "+bp+"/api/menu/{id}", wrapAuth(r.handleActivate, authMw))
	mux.HandleFunc("POST "+bp+"/api/open", wrapAuth(r.handleOpen, authMw))

	// Settings routes
	mux.HandleFunc("GET "+bp+"/api/settings", wrapAuth(r.handleGetSettings, authMw))
	mux.HandleFunc("PUT "+bp+"/api/settings", wrapAuth(r.handleUpdateSettings, authMw))
	mux.HandleFunc("GET "+bp+"/api/logging", wrapAuth(r.handleGetLogging, authMw))
	mux.HandleFunc("PUT "+bp+"/api/logging", wrapAuth(r.handleUpdateLogging, authMw))

	// Database maintenance routes
	mux.HandleFunc("GET "+bp+"/api/maintenance", wrapAuth(r.handleMaintenanceStatus, authMw))
	mux.HandleFunc("PUT "+bp+"/api/maintenance/schedule", wrapAuth(r.handleMaintenanceSchedule, authMw))
	mux.HandleFunc("POST "+bp+"/api/maintenance/optimize", wrapAuth(r.handleMaintenanceOptimize, authMw))
	mux.HandleFunc("POST "+bp+"/api/maintenance/vacuum", wrapAuth(r.handleMaintenanceVacuum, authMw))
	mux.HandleFunc("GET "+bp+"/api/backups", wrapAuth(r.handleListBackups, authMw))
	mux.HandleFunc("POST "+bp+"/api/backups", wrapAuth(r.handleCreateBackup, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/backups/{filename}", wrapAuth(r.handleDeleteBackup, authMw))

	// Web routes
	mux.HandleFunc("GET "+bp+"/{$}", wrapAuth(r.handleIndex, authMw))

	limiter := middleware.NewRateLimiter(ctx, 20*time.Millisecond, 100)
	var h http.Handler = mux
	h = middleware.CrossOrigin(h)
	h = limiter.Middleware(h)
	h = middleware.SecurityHeaders(h)
	return middleware.Logging(r.logger)(h)
}

// wrapAuth wraps a handler function with auth middleware.
func wrapAuth(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return authMw(fn).ServeHTTP
}
