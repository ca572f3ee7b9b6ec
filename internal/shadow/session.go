package shadow

import (
	"context"
	"net/http"
)

// Session shares the client's polling and subscribers but keeps its own
// backend cookies. Signing in on one session does not authenticate the
// client or any other session.
type Session struct {
	client     *Client
	httpClient *http.Client
}

// NewSession returns a session with an empty cookie jar. Requests go through
// the client's transport and timeout.
func (c *Client) NewSession() (*Session, error) {
	jar, err := newJar()
	if err != nil {
		return nil, err
	}
	return &Session{
		client: c,
		httpClient: &http.Client{
			Transport:     c.httpClient.Transport,
			CheckRedirect: c.httpClient.CheckRedirect,
			Timeout:       c.httpClient.Timeout,
			Jar:           jar,
		},
	}, nil
}

func (s *Session) Subscribe(fn Subscriber) *Subscription {
	return s.client.Subscribe(fn)
}

func (s *Session) Unsubscribe(sub *Subscription) {
	s.client.Unsubscribe(sub)
}

// Update sends delta with the session's cookies. The response is fanned out
// to every subscriber of the client.
func (s *Session) Update(ctx context.Context, delta Delta) error {
	return s.client.update(ctx, s.httpClient, delta)
}

func (s *Session) IsAuth(ctx context.Context) (bool, error) {
	return s.client.isAuth(ctx, s.httpClient)
}

func (s *Session) Signin(ctx context.Context, accessKey string) (SigninResult, error) {
	return s.client.signin(ctx, s.httpClient, accessKey)
}
