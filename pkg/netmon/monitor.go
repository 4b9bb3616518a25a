// Package netmon tracks network reachability and exposes an edge-triggered
// recovery flag so consumers refresh exactly once per reconnect.
package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for network monitoring.
var (
	netOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shelf_network_online",
		Help: "Whether the network is currently considered reachable (1 or 0)",
	})

	netTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelf_network_transitions_total",
		Help: "Total network state transitions by direction",
	}, []string{"direction"}) // "up", "down"
)

// Config holds monitor configuration.
type Config struct {
	// ProbeURL is the endpoint probed to judge reachability.
	// Typically the backend's health endpoint.
	ProbeURL string

	// ProbeInterval is how often the probe runs.
	ProbeInterval time.Duration

	// ProbeTimeout bounds a single probe request.
	ProbeTimeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(probeURL string) Config {
	return Config{
		ProbeURL:      probeURL,
		ProbeInterval: 15 * time.Second,
		ProbeTimeout:  3 * time.Second,
	}
}

// Monitor tracks online/offline transitions.
//
// IsOnline answers "should I attempt the network", independent of any
// single request's outcome: one request can fail while the network is
// generally up, and vice versa.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	recovered bool

	config     Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a monitor. It starts in the online state; call Start to run
// the probe loop, or drive transitions manually with SetOnline.
func New(cfg Config, logger zerolog.Logger) *Monitor {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 15 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}

	netOnline.Set(1)

	return &Monitor{
		online: true,
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
		logger: logger,
	}
}

// IsOnline returns a synchronous snapshot of network reachability.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// JustRecovered reports whether an offline-to-online transition happened
// since the last call, and clears the flag. It returns true exactly once
// per transition; if unconsumed, the flag persists until read.
func (m *Monitor) JustRecovered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	recovered := m.recovered
	m.recovered = false
	return recovered
}

// SetOnline records a reachability transition. Repeated calls with the
// same state are no-ops so the recovery flag stays edge-triggered.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return
	}

	m.online = online
	if online {
		// Offline -> online edge; the flag stays set until consumed
		m.recovered = true
		netOnline.Set(1)
		netTransitionsTotal.WithLabelValues("up").Inc()
		m.logger.Info().Msg("Network recovered")
	} else {
		netOnline.Set(0)
		netTransitionsTotal.WithLabelValues("down").Inc()
		m.logger.Warn().Msg("Network lost")
	}
}

// Start runs the probe loop until ctx is done. An immediate probe runs
// first so the state settles before the first interval elapses.
func (m *Monitor) Start(ctx context.Context) {
	if m.config.ProbeURL == "" {
		m.logger.Debug().Msg("No probe URL configured, monitor is manual-only")
		return
	}

	m.probe(ctx)

	ticker := time.NewTicker(m.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug().Msg("Network monitor stopping")
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// probe issues a single reachability check and records the result.
func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, m.config.ProbeURL, nil)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to build probe request")
		return
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Probe failed")
		m.SetOnline(false)
		return
	}
	resp.Body.Close()

	// Any HTTP response means the network path is up, even a 5xx:
	// server health is the client's concern, reachability is ours.
	m.SetOnline(true)
}
