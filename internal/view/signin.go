package view

import (
	"context"
	"errors"
	"sync"

	"github.com/joshp123/acpanel/internal/shadow"
)

const (
	IconReady = "arrow right"
	IconOK    = "check"
	IconRetry = "redo"
)

// ErrRequesting is returned when Submit is called while a sign-in is in
// flight.
var ErrRequesting = errors.New("sign-in already in progress")

// SignInModel is what the sign-in panel shows.
type SignInModel struct {
	Key        string
	Requesting bool
	Icon       string
	Message    string
}

// SignIn collects an access key and submits it.
type SignIn struct {
	backend   Backend
	onSuccess func()

	mu         sync.Mutex
	key        string
	requesting bool
	responded  bool
	ok         bool
	message    string
	onChange   func()
}

// NewSignIn creates the panel. onSuccess, if set, runs after the backend
// accepts a key.
func NewSignIn(backend Backend, onSuccess func()) *SignIn {
	return &SignIn{backend: backend, onSuccess: onSuccess}
}

// Mount sets the change hook. The panel does not subscribe to state.
func (s *SignIn) Mount(onChange func()) {
	s.mu.Lock()
	s.onChange = onChange
	s.mu.Unlock()
}

func (s *SignIn) Unmount() {
	s.mu.Lock()
	s.onChange = nil
	s.mu.Unlock()
}

func (s *SignIn) SetKey(key string) {
	s.mu.Lock()
	if s.requesting {
		s.mu.Unlock()
		return
	}
	s.key = key
	s.mu.Unlock()
}

// Submit sends the typed key. Input is disabled until the call returns.
func (s *SignIn) Submit(ctx context.Context) (shadow.SigninResult, error) {
	s.mu.Lock()
	if s.requesting {
		s.mu.Unlock()
		return shadow.SigninResult{}, ErrRequesting
	}
	s.requesting = true
	key := s.key
	s.mu.Unlock()
	s.changed()

	result, err := s.backend.Signin(ctx, key)

	s.mu.Lock()
	s.requesting = false
	s.responded = true
	switch {
	case err != nil:
		s.ok = false
		s.message = err.Error()
	case result.OK():
		s.ok = true
		s.message = ""
	default:
		s.ok = false
		s.message = result.Msg
	}
	ok := s.ok
	s.mu.Unlock()
	s.changed()

	if ok && s.onSuccess != nil {
		s.onSuccess()
	}
	return result, err
}

func (s *SignIn) Model() SignInModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	model := SignInModel{
		Key:        s.key,
		Requesting: s.requesting,
		Icon:       IconReady,
		Message:    s.message,
	}
	if s.responded {
		if s.ok {
			model.Icon = IconOK
		} else {
			model.Icon = IconRetry
		}
	}
	return model
}

func (s *SignIn) changed() {
	s.mu.Lock()
	onChange := s.onChange
	s.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}
