package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/snappy-loop/fairytales/internal/models"
)

// ErrQueueFull is returned when events arrive faster than they can be delivered.
var ErrQueueFull = errors.New("webhook queue is full")

// Options configures a Notifier.
type Options struct {
	URL            string
	Secret         string // HMAC-SHA256 key for X-Tale-Signature; empty disables signing
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	QueueSize      int
	Timeout        time.Duration
}

// Notifier posts tale events to a webhook URL from a background worker, so
// a slow receiver never holds up a tale request.
type Notifier struct {
	url        string
	secret     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration

	queue    chan *models.TaleEvent
	stopChan chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewNotifier creates a webhook notifier. Call Start before publishing.
func NewNotifier(opts Options) *Notifier {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}
	if opts.RetryMaxDelay < opts.RetryBaseDelay {
		opts.RetryMaxDelay = opts.RetryBaseDelay
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Notifier{
		url:        opts.URL,
		secret:     opts.Secret,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.RetryBaseDelay,
		maxDelay:   opts.RetryMaxDelay,
		queue:      make(chan *models.TaleEvent, opts.QueueSize),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// DeliveryError wraps webhook delivery errors with HTTP status code
type DeliveryError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *DeliveryError) Error() string {
	return e.Message
}

// IsRetryable determines if an error should be retried
func (e *DeliveryError) IsRetryable() bool {
	// Retry on 5xx server errors
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return true
	}
	// Retry on 429 Too Many Requests
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	// Don't retry on 4xx client errors (except 429)
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return false
	}
	return true
}

// PublishTaleEvent queues the event for delivery without blocking.
func (n *Notifier) PublishTaleEvent(ctx context.Context, event *models.TaleEvent) error {
	select {
	case n.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start starts the delivery worker
func (n *Notifier) Start(ctx context.Context) {
	ctx, n.cancel = context.WithCancel(ctx)
	go func() {
		defer close(n.done)
		log.Info().Str("url", n.url).Msg("Webhook worker started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Webhook worker context cancelled, stopping")
				return
			case <-n.stopChan:
				log.Info().Int("dropped", len(n.queue)).Msg("Webhook worker stopped")
				return
			case event := <-n.queue:
				if err := n.deliver(ctx, event); err != nil {
					log.Error().
						Err(err).
						Str("tale_id", event.TaleID.String()).
						Str("url", n.url).
						Msg("Webhook delivery failed")
				}
			}
		}
	}()
}

// Stop stops the worker started by Start and waits for it to exit. A delivery
// in flight is cancelled, including its backoff wait. Queued events are dropped.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopChan)
		if n.cancel != nil {
			n.cancel()
		}
	})
	<-n.done
}

// deliver sends one event, retrying transient failures with exponential backoff.
func (n *Notifier) deliver(ctx context.Context, event *models.TaleEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		lastErr = n.send(ctx, body)
		if lastErr == nil {
			log.Info().
				Str("tale_id", event.TaleID.String()).
				Str("event", event.Event).
				Int("attempts", attempt).
				Msg("Webhook delivered")
			return nil
		}

		var deliveryErr *DeliveryError
		if errors.As(lastErr, &deliveryErr) && !deliveryErr.IsRetryable() {
			return fmt.Errorf("permanent error: %w", lastErr)
		}
		if attempt == n.maxRetries {
			break
		}

		delay := n.backoff(attempt)
		log.Warn().
			Err(lastErr).
			Str("tale_id", event.TaleID.String()).
			Int("attempt", attempt).
			Int("max_retries", n.maxRetries).
			Dur("retry_in", delay).
			Msg("Webhook delivery failed - will retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", n.maxRetries, lastErr)
}

// backoff is baseDelay * 2^(attempt-1), capped at maxDelay.
func (n *Notifier) backoff(attempt int) time.Duration {
	delay := n.baseDelay * time.Duration(1<<uint(attempt-1))
	if delay > n.maxDelay || delay <= 0 {
		delay = n.maxDelay
	}
	return delay
}

// send sends the webhook HTTP request
func (n *Notifier) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Fairytales-Webhook/1.0")
	req.Header.Set("X-Tale-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	if n.secret != "" {
		req.Header.Set("X-Tale-Signature", generateSignature(body, n.secret))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		// Network error - retryable
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook returned status %d", resp.StatusCode),
			Body:       string(respBody),
		}
	}
	return nil
}

// generateSignature generates HMAC-SHA256 signature for the payload
func generateSignature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
