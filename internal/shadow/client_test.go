package shadow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/joshp123/acpanel/internal/core"
)

const sampleShadow = `{"timestamp":1000,"state":{"reported":{"current_set_t":21,"current_t":20.46,"display_t":20,"enable":true,"heat_cmd":"on"},"desired":{"enable":true,"default_t":21,"override_t":23,"override_ex":4600}},"version":7}`

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: serverURL}, WithLogger(zaptest.NewLogger(t).Sugar()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestPollSkipsWithoutSubscribers(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = io.WriteString(w, sampleShadow)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	sub := client.Subscribe(func(State) {})
	sub.Unsubscribe()
	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	client.Watch(func(State) {})
	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if got := atomic.LoadInt32(&requests); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestPollNotifiesSubscribersInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/shadow":
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, sampleShadow)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var order []string
	var got []State
	client.Subscribe(func(s State) {
		order = append(order, "a")
		got = append(got, s)
	})
	client.Subscribe(func(s State) {
		order = append(order, "b")
		got = append(got, s)
	})

	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order: %v", order)
	}
	for _, s := range got {
		if s.Timestamp != 1000 || !s.Loaded() {
			t.Fatalf("unexpected state: %+v", s)
		}
		if s.Reported().CurrentT != 20.46 || s.Desired().OverrideEx != 4600 {
			t.Fatalf("unexpected decoded fields: %+v %+v", s.Reported(), s.Desired())
		}
		if string(s.Raw()) != sampleShadow {
			t.Fatalf("raw payload not retained: %s", s.Raw())
		}
	}
}

func TestWatchersRunAfterSubscribers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleShadow)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var order []string
	watch := client.Watch(func(State) { order = append(order, "watch") })
	client.Subscribe(func(State) { order = append(order, "sub") })

	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(order) != 2 || order[0] != "sub" || order[1] != "watch" {
		t.Fatalf("unexpected order: %v", order)
	}
	if client.SubscriberCount() != 1 {
		t.Fatalf("expected watcher not to count, got %d", client.SubscriberCount())
	}

	watch.Unsubscribe()
	order = nil
	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(order) != 1 || order[0] != "sub" {
		t.Fatalf("unexpected order after unwatch: %v", order)
	}
}

func TestSubscriberSetFixedAtDispatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleShadow)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var calls []string
	var subB *Subscription
	late := func(State) { calls = append(calls, "late") }
	added := false
	client.Subscribe(func(State) {
		calls = append(calls, "a")
		if !added {
			added = true
			client.Subscribe(late)
		}
	})
	subB = client.Subscribe(func(State) { calls = append(calls, "b") })

	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("late subscriber should miss the round: %v", calls)
	}

	calls = nil
	subB.Unsubscribe()
	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "late" {
		t.Fatalf("unexpected second round: %v", calls)
	}
}

func TestUnsubscribeInsideCallbackSkipsLaterSubscriber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleShadow)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var calls []string
	var subB *Subscription
	client.Subscribe(func(State) {
		calls = append(calls, "a")
		subB.Unsubscribe()
	})
	subB = client.Subscribe(func(State) { calls = append(calls, "b") })

	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(calls) != 1 || calls[0] != "a" {
		t.Fatalf("unexpected calls: %v", calls)
	}
}

func TestUnsubscribeRemovesOnlyThatSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleShadow)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var count int
	fn := func(State) { count++ }
	first := client.Subscribe(fn)
	client.Subscribe(fn)
	if client.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", client.SubscriberCount())
	}

	first.Unsubscribe()
	first.Unsubscribe()
	client.Unsubscribe(nil)
	if client.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", client.SubscriberCount())
	}

	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one callback, got %d", count)
	}
}

func TestPollFailureNotifiesNoOne(t *testing.T) {
	var mode atomic.Value
	mode.Store("error")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch mode.Load().(string) {
		case "error":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "upstream down")
		case "garbage":
			_, _ = io.WriteString(w, "<html>")
		default:
			_, _ = io.WriteString(w, sampleShadow)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var notified int
	client.Subscribe(func(State) { notified++ })

	if client.Health() != core.HealthHealthy || client.HealthMessage() != "no poll yet" {
		t.Fatalf("unexpected initial health: %s %q", client.Health(), client.HealthMessage())
	}

	err := client.Poll(context.Background())
	var statusErr HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadGateway {
		t.Fatalf("expected status error, got %v", err)
	}
	if client.Health() != core.HealthError {
		t.Fatalf("expected ERROR before first success, got %s", client.Health())
	}

	mode.Store("ok")
	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if client.Health() != core.HealthHealthy {
		t.Fatalf("expected HEALTHY, got %s", client.Health())
	}

	mode.Store("garbage")
	if err := client.Poll(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
	if client.Health() != core.HealthDegraded {
		t.Fatalf("expected DEGRADED after success, got %s", client.Health())
	}
	if notified != 1 {
		t.Fatalf("expected exactly one notification, got %d", notified)
	}
}

func TestUpdateSendsOnlyDeltaFields(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/shadow" || r.Method != http.MethodPut {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		_, _ = io.WriteString(w, sampleShadow)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var notified []State
	client.Subscribe(func(s State) { notified = append(notified, s) })

	if err := client.Update(context.Background(), DefaultTempDelta(21)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := client.Update(context.Background(), EnableDelta(false)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := client.Update(context.Background(), OverrideExpiryDelta(Expiry(1000, 60))); err != nil {
		t.Fatalf("update: %v", err)
	}

	expected := []string{
		`{"state":{"desired":{"default_t":21}}}`,
		`{"state":{"desired":{"enable":false}}}`,
		`{"state":{"desired":{"override_ex":4600}}}`,
	}
	if len(bodies) != len(expected) {
		t.Fatalf("unexpected request count: %d", len(bodies))
	}
	for i := range expected {
		if bodies[i] != expected[i] {
			t.Fatalf("body %d: expected %s, got %s", i, expected[i], bodies[i])
		}
	}
	if len(notified) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notified))
	}
}

func TestUpdateEmptyResponseIsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var notified int
	client.Subscribe(func(State) { notified++ })

	if err := client.Update(context.Background(), OverrideTempDelta(24)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if notified != 0 {
		t.Fatalf("expected no notification, got %d", notified)
	}
}

func TestUpdateFailureNotifiesNoOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"msg":"not signed in"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var notified int
	client.Subscribe(func(State) { notified++ })

	err := client.Update(context.Background(), EnableDelta(true))
	var statusErr HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusForbidden {
		t.Fatalf("expected forbidden status error, got %v", err)
	}
	if notified != 0 {
		t.Fatalf("expected no notification, got %d", notified)
	}
}

func TestIsAuth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{name: "bool true", status: http.StatusOK, body: `true`, want: true},
		{name: "bool false", status: http.StatusOK, body: `false`},
		{name: "state ok", status: http.StatusOK, body: `{"state":"OK"}`, want: true},
		{name: "state other", status: http.StatusOK, body: `{"state":"NO","msg":"no cookie"}`},
		{name: "authenticated", status: http.StatusOK, body: `{"authenticated":true}`, want: true},
		{name: "null", status: http.StatusOK, body: `null`},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: true},
		{name: "malformed", status: http.StatusOK, body: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/auth" || r.Method != http.MethodGet {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			got, err := client.IsAuth(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSigninKeepsSessionCookie(t *testing.T) {
	var shadowCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth":
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			var req map[string]string
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode signin: %v", err)
			}
			if req["access_token"] != "secret" {
				t.Errorf("unexpected access token: %v", req)
			}
			http.SetCookie(w, &http.Cookie{Name: "auth_key", Value: "abc.def", Path: "/"})
			_, _ = io.WriteString(w, `{"state":"OK","msg":""}`)
		case "/api/shadow":
			if cookie, err := r.Cookie("auth_key"); err == nil {
				shadowCookie = cookie.Value
			}
			_, _ = io.WriteString(w, sampleShadow)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var notified int
	client.Subscribe(func(State) { notified++ })

	result, err := client.Signin(context.Background(), "secret")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if !result.OK() {
		t.Fatalf("unexpected result: %+v", result)
	}
	if notified != 0 {
		t.Fatalf("signin must not notify subscribers")
	}

	if err := client.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if shadowCookie != "abc.def" {
		t.Fatalf("expected session cookie on shadow request, got %q", shadowCookie)
	}
}

func TestSigninRejectionIsData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"state":"ERROR","msg":"bad key"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Signin(context.Background(), "wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK() || result.Msg != "bad key" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSigninTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.Signin(context.Background(), "key"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunPollsOnInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleShadow)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.PollInterval() != 10*time.Millisecond {
		t.Fatalf("unexpected interval: %v", client.PollInterval())
	}

	received := make(chan State, 1)
	client.Subscribe(func(s State) {
		select {
		case received <- s:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.Run(ctx)
	}()

	select {
	case s := <-received:
		if s.Timestamp != 1000 {
			t.Fatalf("unexpected state: %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for poll")
	}
	cancel()
	wg.Wait()
}

func TestNewClientDefaults(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}

	client, err := NewClient(Config{BaseURL: "http://panel.local/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.baseURL != "http://panel.local" {
		t.Fatalf("unexpected base url: %s", client.baseURL)
	}
	if client.PollInterval() != DefaultPollInterval {
		t.Fatalf("unexpected poll interval: %v", client.PollInterval())
	}
	if client.ID() != "shadow" {
		t.Fatalf("unexpected id: %s", client.ID())
	}
}
