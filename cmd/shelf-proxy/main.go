// shelf-proxy fronts a library API and serves cached responses when the
// backend is unreachable. Successful GET responses are written through to
// the cache; on upstream failure the last cached copy is served with an
// X-Shelf-Cache: stale header.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shelfhaven/shelfsync/internal/config"
	"github.com/shelfhaven/shelfsync/pkg/cache"
	"github.com/shelfhaven/shelfsync/pkg/client"
	"github.com/shelfhaven/shelfsync/pkg/logging"
	"github.com/shelfhaven/shelfsync/pkg/netmon"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/shelfsync/config.toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.LogLevel)
	logging.Setup(logCfg)
	logger := logging.NewLogger("shelf-proxy")

	store := openStore(cfg, logger)
	defer store.Close()

	apiCfg := client.DefaultConfig(cfg.LibraryURL)
	apiCfg.UserAgent = cfg.UserAgent
	apiCfg.AuthToken = cfg.AuthToken
	apiClient, err := client.New(apiCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create library client")
	}

	monitor := netmon.New(netmon.Config{ProbeURL: cfg.LibraryURL}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go monitor.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(monitor))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/library/", proxyHandler(apiClient, store, monitor, logger))

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("library_url", cfg.LibraryURL).
		Msg("Starting shelf proxy")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// openStore connects to Redis when reachable, otherwise falls back to the
// local bolt file so the proxy still works on an offline machine.
func openStore(cfg config.Config, logger zerolog.Logger) cache.Store {
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err == nil {
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		return cache.NewManager(redisClient, cfg.MaxAge)
	}
	redisClient.Close()

	store, err := cache.NewBoltStore(cfg.CachePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CachePath).Msg("Failed to open cache")
	}
	logger.Info().Str("path", cfg.CachePath).Msg("Redis unreachable, using local cache file")
	return store
}

func healthHandler(monitor *netmon.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","backend_online":%t}`, monitor.IsOnline())
	}
}

// proxyHandler forwards GET requests to the library API, caching every
// successful body. When the upstream is offline or fails, the last cached
// copy is served instead.
func proxyHandler(apiClient *client.Client, store cache.Store, monitor *netmon.Monitor, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "only GET is supported", http.StatusMethodNotAllowed)
			return
		}

		// /library/books?page=1 -> /books
		path := strings.TrimPrefix(r.URL.Path, "/library")
		key := cache.Key{Path: path, Params: r.URL.Query()}

		if !monitor.IsOnline() {
			serveCached(w, r, store, key, logger)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		payload, err := apiClient.GetJSON(ctx, path, r.URL.Query())
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Upstream request failed")
			serveCached(w, r, store, key, logger)
			return
		}

		if err := store.Set(r.Context(), key, cache.NewEntry(payload)); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Cache write failed")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	}
}

// serveCached answers from the cache, marking the response as stale. With
// nothing cached the upstream failure surfaces as 502.
func serveCached(w http.ResponseWriter, r *http.Request, store cache.Store, key cache.Key, logger zerolog.Logger) {
	entry, err := store.Get(r.Context(), key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			logger.Error().Err(err).Str("path", key.Path).Msg("Cache read failed")
		}
		http.Error(w, "library unreachable and no cached copy", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Shelf-Cache", "stale")
	w.Header().Set("X-Shelf-Cache-Age", entry.Age().Truncate(time.Second).String())
	w.Write(entry.Payload)
}
