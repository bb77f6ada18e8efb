// Package relay is the background worker that outlives any single foreground
// session. It keeps an offline copy of the static assets and turns deferred
// sync registrations into SYNC_TODOS messages once connectivity returns.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/existflow/ironhabit/internal/db"
	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

// ErrNotCached means neither the origin nor the cache could answer.
var ErrNotCached = errors.New("not cached")

// Message is posted to every subscribed foreground client.
type Message struct {
	Type string `json:"type"`
}

// Manifest names the cache generation and the assets it holds.
type Manifest struct {
	Version string
	Assets  []string
	Shell   string
}

// Connectivity is the part of the connectivity monitor the worker needs.
type Connectivity interface {
	Online() bool
	Restored() <-chan struct{}
}

// Worker is the background sync relay.
type Worker struct {
	cache      *Cache
	regs       *registrations
	manifest   Manifest
	origin     string
	httpClient *http.Client
	conn       Connectivity
	now        func() time.Time

	mu     sync.Mutex
	subs   map[int]chan Message
	nextID int
}

// Option configures a Worker.
type Option func(*Worker)

// WithHTTPClient sets the client used to reach the origin.
func WithHTTPClient(hc *http.Client) Option {
	return func(w *Worker) { w.httpClient = hc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker creates a relay over database. conn may be nil, in which case
// the worker treats itself as always online and never sees a restore.
func NewWorker(database *db.DB, manifest Manifest, originURL string, conn Connectivity, opts ...Option) *Worker {
	w := &Worker{
		cache:      NewCache(database),
		regs:       &registrations{db: database},
		manifest:   manifest,
		origin:     strings.TrimRight(originURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		conn:       conn,
		now:        time.Now,
		subs:       make(map[int]chan Message),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Manifest returns the asset manifest the worker was built with.
func (w *Worker) Manifest() Manifest {
	return w.manifest
}

// Generations lists the cache generations currently stored.
func (w *Worker) Generations(ctx context.Context) ([]string, error) {
	return w.cache.Generations(ctx)
}

// Install caches every manifest asset under the current generation. Assets
// that fail are logged and skipped. It returns how many were cached.
func (w *Worker) Install(ctx context.Context) (int, error) {
	cached := 0
	for _, asset := range w.manifest.Assets {
		if err := ctx.Err(); err != nil {
			return cached, err
		}

		resp, err := w.fetchOrigin(ctx, asset)
		if err == nil && (resp.Status < 200 || resp.Status > 299) {
			err = fmt.Errorf("status %d", resp.Status)
		}
		if err != nil {
			logger.Warn("Failed to cache asset", logger.F("asset", asset), logger.F("error", err))
			continue
		}

		if err := w.cache.Put(ctx, w.manifest.Version, asset, resp); err != nil {
			logger.Warn("Failed to cache asset", logger.F("asset", asset), logger.F("error", err))
			continue
		}
		cached++
	}

	logger.Info("Relay installed",
		logger.F("generation", w.manifest.Version),
		logger.F("cached", cached),
		logger.F("assets", len(w.manifest.Assets)))
	return cached, nil
}

// Activate evicts every cache generation other than the current one.
func (w *Worker) Activate(ctx context.Context) error {
	n, err := w.cache.DeleteExcept(ctx, w.manifest.Version)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("Evicted stale cache entries", logger.F("count", n))
	}
	return nil
}

// Fetch answers a request for path: from cache, else from the origin, else
// with the cached shell document.
func (w *Worker) Fetch(ctx context.Context, path string) (Response, error) {
	if resp, ok, err := w.cache.Match(ctx, w.manifest.Version, path); err == nil && ok {
		return resp, nil
	} else if err != nil {
		logger.Warn("Cache lookup failed", logger.F("path", path), logger.F("error", err))
	}

	resp, err := w.fetchOrigin(ctx, path)
	if err == nil {
		return resp, nil
	}
	logger.Debug("Origin unreachable, serving shell", logger.F("path", path), logger.F("error", err))

	shell, ok, matchErr := w.cache.Match(ctx, w.manifest.Version, w.manifest.Shell)
	if matchErr != nil || !ok {
		return Response{}, fmt.Errorf("%s: %w", path, ErrNotCached)
	}
	return shell, nil
}

func (w *Worker) fetchOrigin(ctx context.Context, path string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.origin+path, nil)
	if err != nil {
		return Response{}, err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Register records a deferred sync for tag. Registering a tag that is
// already pending is a no-op.
func (w *Worker) Register(tag string) error {
	if err := w.regs.add(context.Background(), tag, w.now()); err != nil {
		return err
	}
	logger.Debug("Sync registered", logger.F("tag", tag))
	return nil
}

// Pending lists registrations that have not been delivered yet.
func (w *Worker) Pending(ctx context.Context) ([]model.SyncRegistration, error) {
	return w.regs.pending(ctx)
}

// Subscribe connects a foreground client. The returned func disconnects it.
func (w *Worker) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 4)

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
			close(ch)
		})
	}
}

// broadcast posts msg to every subscriber without waiting on any of them.
func (w *Worker) broadcast(msg Message) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	sent := 0
	for _, ch := range w.subs {
		select {
		case ch <- msg:
			sent++
		default:
			logger.Debug("Subscriber busy, message dropped", logger.F("type", msg.Type))
		}
	}
	return sent
}

// Deliver fires every pending registration when online. Each registration is
// cleared before its broadcast, so a subscriber that registers again on
// receipt leaves a fresh row behind. It returns how many were delivered.
func (w *Worker) Deliver(ctx context.Context) (int, error) {
	if w.conn != nil && !w.conn.Online() {
		return 0, nil
	}

	regs, err := w.regs.pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list registrations: %w", err)
	}

	delivered := 0
	for _, reg := range regs {
		if err := w.regs.clear(ctx, reg.Tag); err != nil {
			return delivered, fmt.Errorf("clear registration %s: %w", reg.Tag, err)
		}
		if reg.Tag == model.SyncTag {
			n := w.broadcast(Message{Type: model.MessageSyncTodos})
			logger.Info("Delivered deferred sync", logger.F("tag", reg.Tag), logger.F("clients", n))
			delivered++
		}
	}
	return delivered, nil
}

// Run delivers pending registrations now and after every connectivity
// restore until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	if _, err := w.Deliver(ctx); err != nil {
		logger.Warn("Relay delivery failed", logger.F("error", err))
	}

	var restored <-chan struct{}
	if w.conn != nil {
		restored = w.conn.Restored()
	}

	for {
		select {
		case <-restored:
			if _, err := w.Deliver(ctx); err != nil {
				logger.Warn("Relay delivery failed", logger.F("error", err))
			}
		case <-ctx.Done():
			return
		}
	}
}
