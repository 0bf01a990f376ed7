package dispatch

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/dshills/sigbus/codec"
	"github.com/dshills/sigbus/signal"
)

// webhookOptions is the decoded option set for the webhook adapter.
type webhookOptions struct {
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	MaxAttempts int               `mapstructure:"max_attempts"`
}

// Webhook POSTs signals to an HTTP destination, retrying transient
// failures with exponential backoff. 4xx responses are permanent and
// never retried. Batch deliveries send one request per destination
// rather than one per signal.
//
// Options:
//
//	url           string            (required) destination URL
//	method        string            HTTP method (default POST)
//	headers       map[string]string extra request headers
//	timeout       duration          per-attempt timeout (default 10s)
//	max_attempts  int               retry bound override
type Webhook struct {
	client *http.Client
	codec  codec.Codec
	policy RetryPolicy
}

// WebhookOption configures a Webhook adapter.
type WebhookOption func(*Webhook)

// WithHTTPClient sets the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithCodec sets the wire codec for request bodies.
func WithCodec(c codec.Codec) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.codec = c
		}
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p RetryPolicy) WebhookOption {
	return func(w *Webhook) {
		w.policy = p
	}
}

// NewWebhook creates a webhook adapter. Defaults: shared http.Client,
// JSON codec, DefaultRetryPolicy.
func NewWebhook(opts ...WebhookOption) *Webhook {
	w := &Webhook{
		client: &http.Client{},
		codec:  codec.NewJSON(),
		policy: DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

const defaultWebhookTimeout = 10 * time.Second

// Validate requires a parseable http(s) URL.
func (*Webhook) Validate(opts Options) error {
	o, err := decodeWebhookOptions(opts)
	if err != nil {
		return err
	}
	if o.URL == "" {
		return &OptionsError{Adapter: AdapterWebhook, Reason: "url is required"}
	}
	u, err := url.Parse(o.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &OptionsError{Adapter: AdapterWebhook, Reason: "url must be a valid http(s) URL"}
	}
	if o.MaxAttempts < 0 {
		return &OptionsError{Adapter: AdapterWebhook, Reason: "max_attempts cannot be negative"}
	}
	return nil
}

// Deliver encodes the signal and sends it, retrying transient failures
// per the adapter's policy. The error after exhausted retries is a
// *DeliveryError carrying the attempt count.
func (a *Webhook) Deliver(ctx context.Context, sig *signal.Signal, opts Options) error {
	o, err := decodeWebhookOptions(opts)
	if err != nil {
		return err
	}
	body, err := a.codec.Encode(sig)
	if err != nil {
		return &DeliveryError{Adapter: AdapterWebhook, Attempts: 0, Err: err}
	}
	return a.send(ctx, o, body)
}

// DeliverBatch encodes the whole batch into one request. On failure
// every signal in the batch reports the same error.
func (a *Webhook) DeliverBatch(ctx context.Context, sigs []*signal.Signal, opts Options) []error {
	errs := make([]error, len(sigs))
	fill := func(err error) []error {
		for i := range errs {
			errs[i] = err
		}
		return errs
	}

	o, err := decodeWebhookOptions(opts)
	if err != nil {
		return fill(err)
	}
	body, err := a.codec.EncodeBatch(sigs)
	if err != nil {
		return fill(&DeliveryError{Adapter: AdapterWebhook, Attempts: 0, Err: err})
	}
	if err := a.send(ctx, o, body); err != nil {
		return fill(err)
	}
	return errs
}

// send runs the retry loop around one HTTP round trip.
func (a *Webhook) send(ctx context.Context, o webhookOptions, body []byte) error {
	policy := a.policy
	if o.MaxAttempts > 0 {
		policy.MaxAttempts = o.MaxAttempts
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	method := o.Method
	if method == "" {
		method = http.MethodPost
	}

	attempts, err := Retry(ctx, policy, transient, func(ctx context.Context) error {
		return a.attempt(ctx, method, o, body, timeout)
	})
	if err != nil {
		return &DeliveryError{Adapter: AdapterWebhook, Attempts: attempts, Err: err}
	}
	return nil
}

// attempt performs one HTTP round trip with its own timeout.
func (a *Webhook) attempt(ctx context.Context, method string, o webhookOptions, body []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, o.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", a.codec.ContentType())
	for k, v := range o.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{Code: resp.StatusCode}
}

// transient classifies transport-level failures worth retrying:
// timeouts, connection errors and 5xx responses. Client errors (4xx)
// and malformed requests are permanent.
func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// url.Error wraps dial failures such as connection refused.
	var ue *url.Error
	return errors.As(err, &ue)
}

func decodeWebhookOptions(opts Options) (webhookOptions, error) {
	var o webhookOptions
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &o,
	})
	if err != nil {
		return o, &OptionsError{Adapter: AdapterWebhook, Reason: err.Error()}
	}
	if err := dec.Decode(map[string]any(opts)); err != nil {
		return o, &OptionsError{Adapter: AdapterWebhook, Reason: err.Error()}
	}
	return o, nil
}
