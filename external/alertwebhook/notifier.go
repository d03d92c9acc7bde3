package alertwebhook

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/matchpulse/fixture-poller/internal/platform/logging"
)

type NotifierConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// Notifier posts operational alerts to a webhook. Delivery is fire-and-forget
// on a background goroutine: a dead webhook must never slow down a poll tick.
// Each (category, entityID) pair fires at most once until Reset is called for
// it.
type Notifier struct {
	client     *fasthttp.Client
	webhookURL string
	timeout    time.Duration
	logger     *logging.Logger
	now        func() time.Time

	mu   sync.Mutex
	sent map[string]struct{}
}

type alertPayload struct {
	Category string `json:"category"`
	EntityID int64  `json:"entity_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	SentAt   string `json:"sent_at"`
}

func NewNotifier(cfg NotifierConfig, logger *logging.Logger) (*Notifier, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, crerr.New("alert webhook url is required")
	}
	if !strings.HasPrefix(webhookURL, "http://") && !strings.HasPrefix(webhookURL, "https://") {
		return nil, crerr.Newf("alert webhook url %q must be http or https", webhookURL)
	}
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Notifier{
		client:     &fasthttp.Client{},
		webhookURL: webhookURL,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
		sent:       make(map[string]struct{}),
	}, nil
}

// NotifyOnce delivers one alert per (category, entityID) pair. Subsequent
// calls for the same pair are dropped until Reset.
func (n *Notifier) NotifyOnce(ctx context.Context, category string, entityID int64, severity string, message string) {
	key := dedupKey(category, entityID)

	n.mu.Lock()
	if _, already := n.sent[key]; already {
		n.mu.Unlock()
		return
	}
	n.sent[key] = struct{}{}
	n.mu.Unlock()

	payload := alertPayload{
		Category: strings.TrimSpace(category),
		EntityID: entityID,
		Severity: strings.TrimSpace(severity),
		Message:  strings.TrimSpace(message),
		SentAt:   n.now().UTC().Format(time.RFC3339),
	}
	n.logger.InfoContext(ctx, "alert raised",
		"category", payload.Category,
		"entity_id", entityID,
		"severity", payload.Severity,
		"message", payload.Message,
	)

	go n.deliver(payload)
}

// Reset re-arms the alert for the pair, typically after the condition cleared
// or the entity was re-tracked.
func (n *Notifier) Reset(category string, entityID int64) {
	n.mu.Lock()
	delete(n.sent, dedupKey(category, entityID))
	n.mu.Unlock()
}

func (n *Notifier) deliver(payload alertPayload) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		n.logger.Warn("encode alert payload failed", "category", payload.Category, "error", err)
		return
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(n.webhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(buf.Bytes())

	if err := n.client.DoTimeout(req, resp, n.timeout); err != nil {
		n.logger.Warn("alert webhook delivery failed",
			"category", payload.Category,
			"entity_id", payload.EntityID,
			"error", err,
		)
		return
	}
	if resp.StatusCode()/100 != 2 {
		n.logger.Warn("alert webhook rejected alert",
			"category", payload.Category,
			"entity_id", payload.EntityID,
			"status", resp.StatusCode(),
		)
	}
}

func dedupKey(category string, entityID int64) string {
	return strings.TrimSpace(category) + ":" + strconv.FormatInt(entityID, 10)
}
