package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/versehub/console/internal/observability/metrics"
	"github.com/versehub/console/internal/ports"
)

// DefaultTeardownWindow is how long a completed teardown suppresses repeats for the same key.
const DefaultTeardownWindow = 10 * time.Second

const teardownMarkerPrefix = "teardown:"

// SessionTeardownOptions groups dependencies for SessionTeardown.
type SessionTeardownOptions struct {
	Window  time.Duration         // Optional: suppression window after a teardown
	Marker  ports.CacheRepository // Optional: shared marker store for multi-instance dedup
	Metrics *metrics.Metrics      // Optional: teardown counters
	Logger  *slog.Logger          // Optional: structured logger
	Now     func() time.Time      // Optional: clock
}

// SessionTeardown runs the teardown sequence at most once per session key.
// Concurrent callers for the same key share one execution, and callers arriving
// within the window after it completed are suppressed.
type SessionTeardown struct {
	group   singleflight.Group
	window  time.Duration
	marker  ports.CacheRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	recent map[string]time.Time
}

// NewSessionTeardown constructs a SessionTeardown.
func NewSessionTeardown(opts SessionTeardownOptions) *SessionTeardown {
	t := &SessionTeardown{
		window:  opts.Window,
		marker:  opts.Marker,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     opts.Now,
		recent:  make(map[string]time.Time),
	}
	if t.window <= 0 {
		t.window = DefaultTeardownWindow
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	t.logger = t.logger.With("component", "session_teardown")
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Run executes steps for key unless a teardown for key is in flight or completed recently.
// It reports whether this call executed steps. An empty key never runs: there is no
// session to tear down.
func (t *SessionTeardown) Run(ctx context.Context, key string, steps func(context.Context) error) (bool, error) {
	if key == "" {
		return false, nil
	}
	if t.seenRecently(key) {
		t.metrics.Teardown(false)
		return false, nil
	}

	executed := false
	_, err, _ := t.group.Do(key, func() (any, error) {
		if t.seenRecently(key) {
			return nil, nil
		}
		if !t.claimMarker(ctx, key) {
			t.remember(key)
			return nil, nil
		}
		executed = true
		stepErr := steps(ctx)
		t.remember(key)
		return nil, stepErr
	})

	t.metrics.Teardown(executed)
	if executed {
		t.logger.InfoContext(ctx, "session teardown executed", "error", err)
		return true, err
	}
	return false, nil
}

// claimMarker takes the shared marker for key. Marker failures fall back to local dedup.
func (t *SessionTeardown) claimMarker(ctx context.Context, key string) bool {
	if t.marker == nil {
		return true
	}
	ok, err := t.marker.SetIfNotExists(ctx, teardownMarkerPrefix+key, []byte("1"), t.window)
	if err != nil {
		t.logger.WarnContext(ctx, "teardown marker unavailable", "error", err)
		return true
	}
	return ok
}

func (t *SessionTeardown) seenRecently(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.recent[key]
	return ok && t.now().Sub(at) < t.window
}

func (t *SessionTeardown) remember(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for k, at := range t.recent {
		if now.Sub(at) >= t.window {
			delete(t.recent, k)
		}
	}
	t.recent[key] = now
}
