// Package view holds the panel components. Each component mirrors the
// latest shadow state it was notified with and turns user actions into
// backend calls. Components are rendered by the dashboard and the console.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/joshp123/acpanel/internal/shadow"
)

// ErrLoading is returned by actions attempted before the first state.
var ErrLoading = errors.New("state not loaded yet")

// Backend is the subset of the state client the views need.
type Backend interface {
	Subscribe(fn shadow.Subscriber) *shadow.Subscription
	Unsubscribe(sub *shadow.Subscription)
	Update(ctx context.Context, delta shadow.Delta) error
	IsAuth(ctx context.Context) (bool, error)
	Signin(ctx context.Context, accessKey string) (shadow.SigninResult, error)
}

var (
	_ Backend = (*shadow.Client)(nil)
	_ Backend = (*shadow.Session)(nil)
)

// mirror holds one state and the subscription that feeds it.
type mirror struct {
	mu       sync.Mutex
	state    shadow.State
	sub      *shadow.Subscription
	onChange func()
}

func (m *mirror) mount(backend Backend, onChange func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != nil {
		return
	}
	m.onChange = onChange
	m.sub = backend.Subscribe(m.set)
}

func (m *mirror) unmount(backend Backend) {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.onChange = nil
	m.mu.Unlock()
	if sub != nil {
		backend.Unsubscribe(sub)
	}
}

func (m *mirror) set(state shadow.State) {
	m.mu.Lock()
	m.state = state
	onChange := m.onChange
	m.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

func (m *mirror) current() shadow.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mirror) mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sub != nil
}
