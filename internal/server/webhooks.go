package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"launchpad/internal/config"
	"launchpad/internal/domain"
	"launchpad/internal/engine"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

// Dispatcher posts new events to the configured webhooks. Each hook keeps its
// own cursor; a failed delivery is retried from the same event on the next
// pass.
type Dispatcher struct {
	engine   engine.Engine
	hooks    []config.WebhookConfig
	log      *zap.Logger
	client   *http.Client
	Interval time.Duration

	mu      sync.Mutex
	cursors map[int]int64
}

func NewDispatcher(e engine.Engine, hooks []config.WebhookConfig, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		engine:   e,
		hooks:    hooks,
		log:      log.Named("webhooks"),
		client:   &http.Client{Timeout: defaultWebhookTimeout},
		Interval: defaultWebhookInterval,
		cursors:  make(map[int]int64),
	}
}

// Prime starts every enabled hook at the latest stored event so only events
// appended afterwards are delivered.
func (d *Dispatcher) Prime(ctx context.Context) error {
	latest, err := d.engine.Repo.LatestEventID(ctx)
	if err != nil {
		return fmt.Errorf("init webhook cursor: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.hooks {
		if _, ok := d.cursors[i]; !ok {
			d.cursors[i] = latest
		}
	}
	return nil
}

// Run delivers events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	if len(d.hooks) == 0 {
		return nil
	}
	if err := d.Prime(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Flush(ctx)
		}
	}
}

// Flush runs one delivery pass over every enabled hook.
func (d *Dispatcher) Flush(ctx context.Context) {
	var g errgroup.Group
	for i, hook := range d.hooks {
		if hook.Enabled != nil && !*hook.Enabled || strings.TrimSpace(hook.URL) == "" {
			continue
		}
		g.Go(func() error {
			d.deliver(ctx, i, hook)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, idx int, hook config.WebhookConfig) {
	log := d.log.With(zap.String("url", hook.URL))
	events, err := d.engine.Repo.EventsAfter(ctx, defaultWebhookBatch, d.cursor(idx))
	if err != nil {
		log.Warn("fetch events", zap.Error(err))
		return
	}
	filter := newEventFilter(hook.Events)
	for _, evt := range events {
		if filter.match(evt.Type) {
			if err := d.post(ctx, hook, evt); err != nil {
				log.Warn("deliver event", zap.Int64("event_id", evt.ID), zap.String("type", evt.Type), zap.Error(err))
				return
			}
			log.Debug("delivered", zap.Int64("event_id", evt.ID), zap.String("type", evt.Type))
		}
		d.setCursor(idx, evt.ID)
	}
}

func (d *Dispatcher) cursor(idx int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursors[idx]
}

func (d *Dispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	d.cursors[idx] = value
	d.mu.Unlock()
}

// WebhookEvent is the body posted to a webhook.
type WebhookEvent struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	ActorID    string          `json:"actor_id"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

func (d *Dispatcher) post(ctx context.Context, hook config.WebhookConfig, evt domain.Event) error {
	payload := json.RawMessage("{}")
	if evt.Payload != "" && json.Valid([]byte(evt.Payload)) {
		payload = json.RawMessage(evt.Payload)
	}
	data, err := json.Marshal(WebhookEvent{
		ID:         evt.ID,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		TS:         evt.TS,
		Payload:    payload,
	})
	if err != nil {
		return err
	}
	timeout := defaultWebhookTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Launchpad-Event", evt.Type)
	req.Header.Set("X-Launchpad-Delivery", strconv.FormatInt(evt.ID, 10))
	if secret := strings.TrimSpace(hook.Secret); secret != "" {
		req.Header.Set("X-Launchpad-Signature", Sign(secret, data))
	}
	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Sign returns the signature header value for body: "sha256=" followed by the
// hex HMAC-SHA256 of body keyed with secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// eventFilter matches event types against exact names or path.Match
// patterns such as "user.*".
type eventFilter struct {
	all      bool
	patterns []string
}

func newEventFilter(events []string) eventFilter {
	var f eventFilter
	for _, evt := range events {
		if key := strings.TrimSpace(evt); key != "" {
			f.patterns = append(f.patterns, key)
		}
	}
	f.all = len(f.patterns) == 0
	return f
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	for _, p := range f.patterns {
		if ok, _ := path.Match(p, evt); ok || p == evt {
			return true
		}
	}
	return false
}
