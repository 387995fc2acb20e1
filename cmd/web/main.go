package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/pprof"

	"cloud.google.com/go/firestore"
	"github.com/matst80/killu-finder/pkg/auth"
	"github.com/matst80/killu-finder/pkg/common"
	"github.com/matst80/killu-finder/pkg/config"
	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/notify"
	"github.com/matst80/killu-finder/pkg/search"
	"github.com/matst80/killu-finder/pkg/server"
	"github.com/matst80/killu-finder/pkg/storage"
	"github.com/matst80/killu-finder/pkg/tracking"
	"github.com/matst80/killu-finder/pkg/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var envFile = flag.String("env", ".env", "optional env file")

type app struct {
	cfg       config.Config
	firestore *firestore.Client
	redis     *redis.Client
	tracker   types.Tracking
	phones    types.PhoneQuery
	profiles  types.ProfileStore
	auth      types.Authenticator
	pusher    server.Pusher
}

func (a *app) connectFirebase(ctx context.Context) error {
	fb, err := storage.NewFirebaseApp(ctx, a.cfg.ProjectId, a.cfg.CredentialsFile)
	if err != nil {
		return err
	}
	client, err := fb.Firestore(ctx)
	if err != nil {
		return err
	}
	a.firestore = client
	a.phones = storage.NewFirestorePhoneStore(client)
	a.profiles = storage.NewFirestoreUserStore(client)

	authClient, err := fb.Auth(ctx)
	if err != nil {
		return err
	}
	a.auth = auth.NewFirebaseAuthenticator(authClient)

	messagingClient, err := fb.Messaging(ctx)
	if err != nil {
		logger.Log.Warn("push notifications disabled", zap.Error(err))
		return nil
	}
	a.pusher = notify.NewPusher(messagingClient)
	return nil
}

func (a *app) loadLocal() error {
	store, err := storage.LoadMemoryPhoneStore(storage.NewDiskStorage("."), a.cfg.PhonesFile)
	if err != nil {
		return err
	}
	logger.Log.Info("using local phone catalogue",
		zap.String("file", a.cfg.PhonesFile),
		zap.Int("phones", len(store.All())))
	a.phones = store
	a.profiles = storage.NewMemoryUserStore()
	return nil
}

func (a *app) connectRedis(ctx context.Context) {
	client, err := search.NewRedisClient(a.cfg.RedisUrl, a.cfg.RedisPassword)
	if err != nil {
		logger.Log.Warn("invalid redis url, using memory cache", zap.Error(err))
		return
	}
	if err = client.Ping(ctx).Err(); err != nil {
		logger.Log.Warn("redis unavailable, using memory cache", zap.Error(err))
		client.Close()
		return
	}
	a.redis = client
}

func (a *app) connectTracking() {
	trk, err := tracking.NewRabbitTracking(a.cfg.RabbitUrl)
	if err != nil {
		logger.Log.Warn("failed to connect to rabbitmq for tracking", zap.Error(err))
		return
	}
	a.tracker = trk
}

func (a *app) newPipeline(sessionId string) *search.Pipeline {
	var cache search.ResultCache
	if a.redis != nil {
		cache = search.NewRedisCache(a.redis, sessionId, a.cfg.SessionTTL)
	} else {
		cache = search.NewMemoryCache(a.cfg.CacheMaxEntries)
	}
	p := search.NewPipeline(a.phones, cache)
	p.QueryTimeout = a.cfg.QueryTimeout
	return p
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.tracker != nil {
		errs = append(errs, a.tracker.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.firestore != nil {
		errs = append(errs, a.firestore.Close())
	}
	return errors.Join(errs...)
}

func debugHandler(enableProfiling bool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if enableProfiling {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func main() {
	flag.Parse()
	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}
	if err = logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Close()

	ctx := context.Background()
	a := &app{cfg: cfg}

	if cfg.UseFirebase() {
		if err = a.connectFirebase(ctx); err != nil {
			logger.Log.Fatal("failed to initialize firebase", zap.Error(err))
		}
	} else if err = a.loadLocal(); err != nil {
		logger.Log.Fatal("failed to load phones", zap.Error(err))
	}
	if cfg.RedisUrl != "" {
		a.connectRedis(ctx)
	}
	if cfg.RabbitUrl != "" {
		a.connectTracking()
	}

	sessions := search.NewSessions(a.newPipeline, cfg.SessionTTL)
	ws := server.NewWebServer(sessions, a.profiles, cfg.PersistTimeout)
	ws.Auth = a.auth
	ws.Pusher = a.pusher
	ws.Tracking = a.tracker

	timeouts := common.LoadTimeoutConfig(common.DefaultTimeoutConfig())
	debugServer := common.NewServerWithTimeouts(cfg.DebugAddress, debugHandler(cfg.EnableProfiling), common.TimeoutConfig{
		ReadHeader: timeouts.ReadHeader,
		Idle:       timeouts.Idle,
	})
	go func() {
		logger.Log.Info("starting debug server", zap.String("addr", cfg.DebugAddress))
		if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("debug server failed", zap.Error(err))
		}
	}()

	apiServer := common.NewServerWithTimeouts(cfg.ListenAddress, ws.Handler(), timeouts)
	common.RunServerWithShutdown(apiServer, "killu api", timeouts.Shutdown, timeouts.Hook,
		ws.Close,
		func(ctx context.Context) error {
			sessions.Close()
			return debugServer.Shutdown(ctx)
		},
		a.close,
	)
}
