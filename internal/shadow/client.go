package shadow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/joshp123/acpanel/internal/transport"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second

	shadowPath = "/api/shadow"
	authPath   = "/api/auth"
)

// Config defines runtime configuration for the state client.
type Config struct {
	BaseURL        string
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

// HTTPStatusError is returned for non-2xx backend responses.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("backend api error %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Subscriber receives every state the client fetches or is sent back
// after an update.
type Subscriber func(State)

// Subscription is the handle returned by Subscribe and Watch.
type Subscription struct {
	client  *Client
	fn      Subscriber
	passive bool
	removed bool
}

// Unsubscribe removes the subscription from its client.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Unsubscribe(s)
}

type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client. The client is used as given; no
// cookie jar or instrumentation is added.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client polls the backend shadow and fans states out to subscribers.
//
// Subscriber callbacks run one at a time, in subscription order, on the
// goroutine that completed the fetch. Callbacks may Subscribe and
// Unsubscribe but must not call Poll or Update synchronously.
//
// Poll and Update responses are not ordered against each other; whichever
// dispatches last is what subscribers end up holding.
type Client struct {
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
	log          *zap.SugaredLogger
	metrics      *MetricsCollector

	mu       sync.Mutex
	subs     []*Subscription
	watchers []*Subscription

	// dispatchMu serializes notification rounds.
	dispatchMu sync.Mutex

	healthMu      sync.Mutex
	health        healthState
	healthMessage string
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backend base_url is required")
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	jar, err := newJar()
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:      baseURL,
		pollInterval: pollInterval,
		httpClient:   transport.WrapHTTP("shadow", &http.Client{Timeout: timeout, Jar: jar}),
		log:          zap.NewNop().Sugar(),
		metrics:      NewMetricsCollector(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Watch(c.metrics.Observe)
	return c, nil
}

// ID identifies the client in health reports.
func (c *Client) ID() string {
	return "shadow"
}

// PollInterval is the interval Run polls at.
func (c *Client) PollInterval() time.Duration {
	return c.pollInterval
}

// Subscribe appends fn to the subscriber list. fn is not invoked until the
// next successful poll or update. Subscribing the same func twice yields
// two independent subscriptions.
func (c *Client) Subscribe(fn Subscriber) *Subscription {
	sub := &Subscription{client: c, fn: fn}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Watch registers an observer that is notified after all subscribers but
// does not count as a subscriber, so it never keeps polling alive.
func (c *Client) Watch(fn Subscriber) *Subscription {
	sub := &Subscription{client: c, fn: fn, passive: true}
	c.mu.Lock()
	c.watchers = append(c.watchers, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes sub. It is a no-op if sub is not registered.
func (c *Client) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub.passive {
		c.watchers = removeSubscription(c.watchers, sub)
	} else {
		c.subs = removeSubscription(c.subs, sub)
	}
}

func removeSubscription(list []*Subscription, sub *Subscription) []*Subscription {
	for i, s := range list {
		if s == sub {
			s.removed = true
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// SubscriberCount is the number of active (non-watch) subscriptions.
func (c *Client) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Run polls every PollInterval until ctx is done.
func (c *Client) Run(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Poll(ctx)
		}
	}
}

// Poll fetches the shadow and notifies subscribers. With no subscribers it
// returns immediately without a request. Failures are logged and returned;
// no subscriber is notified.
func (c *Client) Poll(ctx context.Context) error {
	if c.SubscriberCount() == 0 {
		pollsCounter.WithLabelValues("skipped").Inc()
		return nil
	}

	data, err := c.do(ctx, http.MethodGet, shadowPath, nil)
	if err == nil {
		var state State
		state, err = ParseState(data)
		if err == nil {
			pollsCounter.WithLabelValues("ok").Inc()
			c.recordPoll(nil)
			c.notify(state)
			return nil
		}
	}

	pollsCounter.WithLabelValues("error").Inc()
	c.recordPoll(err)
	c.log.Errorf("poll shadow: %v", err)
	return err
}

// Update sends delta as the desired state. A response state is fanned out
// to subscribers. An empty 2xx body is accepted without notification.
func (c *Client) Update(ctx context.Context, delta Delta) error {
	return c.update(ctx, c.httpClient, delta)
}

func (c *Client) update(ctx context.Context, httpClient *http.Client, delta Delta) error {
	data, err := c.doWith(ctx, httpClient, http.MethodPut, shadowPath, updateRequest{State: updateDocument{Desired: delta}})
	if err != nil {
		updatesCounter.WithLabelValues("error").Inc()
		c.log.Errorf("update shadow: %v", err)
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		updatesCounter.WithLabelValues("ok").Inc()
		c.log.Debugf("update shadow: empty response")
		return nil
	}

	state, err := ParseState(data)
	if err != nil {
		updatesCounter.WithLabelValues("error").Inc()
		c.log.Errorf("update shadow: %v", err)
		return err
	}
	updatesCounter.WithLabelValues("ok").Inc()
	c.notify(state)
	return nil
}

// IsAuth asks the backend whether the session is authenticated. The
// response counts as authenticated when it is JSON true, or an object with
// state "OK" or authenticated true.
func (c *Client) IsAuth(ctx context.Context) (bool, error) {
	return c.isAuth(ctx, c.httpClient)
}

func (c *Client) isAuth(ctx context.Context, httpClient *http.Client) (bool, error) {
	data, err := c.doWith(ctx, httpClient, http.MethodGet, authPath, nil)
	if err != nil {
		c.log.Errorf("auth check: %v", err)
		return false, err
	}
	ok, err := parseAuth(data)
	if err != nil {
		c.log.Errorf("auth check: %v", err)
		return false, err
	}
	return ok, nil
}

func parseAuth(data []byte) (bool, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return false, fmt.Errorf("decode auth: %w", err)
	}
	switch v := payload.(type) {
	case bool:
		return v, nil
	case map[string]any:
		if state, ok := v["state"].(string); ok && state == "OK" {
			return true, nil
		}
		if authenticated, ok := v["authenticated"].(bool); ok {
			return authenticated, nil
		}
	}
	return false, nil
}

// Signin exchanges an access key for a session cookie. A rejection with a
// decodable {state, msg} body is returned as a result, not an error.
// Subscribers are not notified.
func (c *Client) Signin(ctx context.Context, accessKey string) (SigninResult, error) {
	return c.signin(ctx, c.httpClient, accessKey)
}

func (c *Client) signin(ctx context.Context, httpClient *http.Client, accessKey string) (SigninResult, error) {
	data, err := c.doWith(ctx, httpClient, http.MethodPost, authPath, signinRequest{AccessToken: accessKey})
	if err != nil {
		var statusErr HTTPStatusError
		if errors.As(err, &statusErr) {
			var result SigninResult
			if json.Unmarshal(data, &result) == nil && result.State != "" {
				signinsCounter.WithLabelValues("rejected").Inc()
				return result, nil
			}
		}
		signinsCounter.WithLabelValues("error").Inc()
		c.log.Errorf("signin: %v", err)
		return SigninResult{}, err
	}

	var result SigninResult
	if err := json.Unmarshal(data, &result); err != nil {
		signinsCounter.WithLabelValues("error").Inc()
		c.log.Errorf("signin: decode: %v", err)
		return SigninResult{}, fmt.Errorf("decode signin: %w", err)
	}
	if result.OK() {
		signinsCounter.WithLabelValues("ok").Inc()
	} else {
		signinsCounter.WithLabelValues("rejected").Inc()
	}
	return result, nil
}

// notify dispatches state to a snapshot of the subscribers, then watchers.
// Subscriptions removed during the round are skipped.
func (c *Client) notify(state State) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	round := make([]*Subscription, 0, len(c.subs)+len(c.watchers))
	round = append(round, c.subs...)
	round = append(round, c.watchers...)
	c.mu.Unlock()

	delivered := 0
	for _, sub := range round {
		c.mu.Lock()
		removed := sub.removed
		c.mu.Unlock()
		if removed {
			continue
		}
		sub.fn(state)
		delivered++
	}
	notificationsCounter.Add(float64(delivered))
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	return c.doWith(ctx, c.httpClient, method, path, payload)
}

func (c *Client) doWith(ctx context.Context, httpClient *http.Client, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return data, HTTPStatusError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return jar, nil
}
