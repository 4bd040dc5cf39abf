package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/backgammon-arena/server/internal/aiproxy"
	"github.com/backgammon-arena/server/internal/arena"
	appcfg "github.com/backgammon-arena/server/internal/config"
	"github.com/backgammon-arena/server/internal/httpapi"
	"github.com/backgammon-arena/server/internal/match"
	"github.com/backgammon-arena/server/internal/matchmaking"
	"github.com/backgammon-arena/server/internal/msgcat"
	"github.com/backgammon-arena/server/internal/obslog"
	"github.com/backgammon-arena/server/internal/profile"
	"github.com/backgammon-arena/server/internal/rating"
	"github.com/backgammon-arena/server/internal/ws"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment directly")
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	cat, err := msgcat.New()
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	profiles, closeProfiles := buildProfileStore(cfg)
	defer closeProfiles()

	clock := clockwork.NewRealClock()
	store := match.NewStore()
	registry := ws.NewRegistry()
	settle := rating.NewSettlement(profiles)
	relay := match.NewRelay(store, registry, settle)
	rec := match.NewReconnect(store, registry, clock, cfg.GracePeriod)
	mm := matchmaking.NewManager(store, registry, clock, matchmaking.Options{
		Window:     cfg.RankedWindow,
		WideWindow: cfg.RankedWindowWide,
		WidenAfter: cfg.WidenAfter,
	})

	router := arena.NewRouter(mm, relay, rec, registry, cat)
	registry.OnEvent(router.HandleEvent)
	registry.OnDisconnect(router.HandleDisconnect)

	ai := aiproxy.NewClient(cfg.AIServiceURL)
	srv := httpapi.New(cfg.ListenAddr, registry, ai, mm)

	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	obslog.L().Info("server_stopped")
}

// buildProfileStore picks the persistence backend from the configured
// credentials. Missing credentials disable persistence but not the
// in-memory settlement computation and broadcast.
func buildProfileStore(cfg *appcfg.AppConfig) (profile.Store, func()) {
	if cfg.DatabaseURL != "" {
		pg, err := profile.NewPGStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("profile store init error: %v", err)
		}
		obslog.L().Info("profile_store", zap.String("backend", "postgres"))
		return pg, func() { _ = pg.Close() }
	}
	if cfg.RedisURL != "" {
		rs, err := profile.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("profile store init error: %v", err)
		}
		obslog.L().Info("profile_store", zap.String("backend", "redis"))
		return rs, func() { _ = rs.Close() }
	}
	obslog.L().Warn("profile_store_disabled", zap.String("reason", "no DATABASE_URL or REDIS_URL configured"))
	return nil, func() {}
}
