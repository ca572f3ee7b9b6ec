package transport

import (
	"net/http"
	"strconv"
	"time"
)

// WrapHTTP wraps an http.Client so every backend call is counted and timed
// under the given provider label.
func WrapHTTP(provider string, base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	client := *base
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.Transport = &roundTripper{
		base:     transport,
		provider: provider,
		now:      time.Now,
	}
	return &client
}

type roundTripper struct {
	base     http.RoundTripper
	provider string
	now      func() time.Time
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := rt.now()
	resp, err := rt.base.RoundTrip(req)
	elapsed := rt.now().Sub(start).Seconds()

	path := req.URL.Path
	if path == "" {
		path = "/"
	}
	durationHistogram.WithLabelValues(rt.provider, req.Method, path).Observe(elapsed)

	if err != nil {
		requestsCounter.WithLabelValues(rt.provider, req.Method, path, "error").Inc()
		return nil, err
	}
	requestsCounter.WithLabelValues(rt.provider, req.Method, path, strconv.Itoa(resp.StatusCode)).Inc()
	lastStatusGauge.WithLabelValues(rt.provider).Set(float64(resp.StatusCode))
	return resp, nil
}
