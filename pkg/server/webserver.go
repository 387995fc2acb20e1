package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/matst80/killu-finder/pkg/auth"
	"github.com/matst80/killu-finder/pkg/common"
	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/search"
	"github.com/matst80/killu-finder/pkg/types"
	"go.uber.org/zap"
)

type Pusher interface {
	SendConfirmation(ctx context.Context, token string) error
}

type WebServer struct {
	Sessions *search.Sessions
	Profiles types.ProfileStore
	Auth     types.Authenticator
	Pusher   Pusher
	Tracking types.Tracking
	// PersistTimeout bounds each profile store call made on behalf of a request.
	PersistTimeout time.Duration

	preferences *preferenceWriter
	known       sync.Map
}

func NewWebServer(sessions *search.Sessions, profiles types.ProfileStore, persistTimeout time.Duration) *WebServer {
	if persistTimeout <= 0 {
		persistTimeout = 5 * time.Second
	}
	return &WebServer{
		Sessions:       sessions,
		Profiles:       profiles,
		PersistTimeout: persistTimeout,
		preferences:    newPreferenceWriter(profiles, persistTimeout),
	}
}

// Close flushes pending preference writes.
func (ws *WebServer) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		ws.preferences.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensureProfile creates or touches the profile the first time a user is
// seen by this process.
func (ws *WebServer) ensureProfile(ctx context.Context, id types.Identity) {
	if _, loaded := ws.known.LoadOrStore(id.UID, true); loaded {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, ws.PersistTimeout)
	defer cancel()
	if err := ws.Profiles.EnsureUserProfile(ctx, id); err != nil {
		ws.known.Delete(id.UID)
		logger.Log.Warn("failed to ensure user profile", zap.String("uid", id.UID), zap.Error(err))
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(fn common.HandlerFunc) http.HandlerFunc {
		return common.JsonHandler(ws.Tracking, fn)
	}
	authenticated := func(fn common.HandlerFunc) http.HandlerFunc {
		return auth.RequireIdentity(handle(fn))
	}

	mux.HandleFunc("/health", health)
	mux.HandleFunc("OPTIONS /api/", common.RespondToOptions)

	mux.HandleFunc("GET /api/search", handle(ws.Search))
	mux.HandleFunc("POST /api/search", handle(ws.Search))
	mux.HandleFunc("POST /api/toggle", handle(ws.Toggle))
	mux.HandleFunc("GET /api/state", handle(ws.State))
	mux.HandleFunc("POST /api/reset", handle(ws.Reset))
	mux.HandleFunc("GET /api/options", handle(ws.Options))

	mux.HandleFunc("GET /api/profile", authenticated(ws.GetProfile))
	mux.HandleFunc("PUT /api/profile", authenticated(ws.UpdateProfile))
	mux.HandleFunc("PUT /api/notifications", authenticated(ws.UpdateNotifications))
	mux.HandleFunc("POST /api/restore", authenticated(ws.Restore))

	return auth.Middleware(ws.Auth, ws.ensureProfile, mux)
}
