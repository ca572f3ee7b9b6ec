package view

import (
	"context"
	"sync"
)

// Title is the panel heading.
const Title = "♨️ AC Heater Control"

// RootModel is the whole panel. Exactly one of Control and SignIn is set.
type RootModel struct {
	Title         string
	Authenticated bool
	Status        StatusModel
	Control       *ControlModel
	SignIn        *SignInModel
}

// Root composes the status panel with either the control or the sign-in
// panel, depending on the session.
type Root struct {
	backend Backend

	Status  *Status
	Control *Control
	SignIn  *SignIn

	mu            sync.Mutex
	authenticated bool
	mounted       bool
	onChange      func()
}

func NewRoot(backend Backend) *Root {
	r := &Root{
		backend: backend,
		Status:  NewStatus(backend),
		Control: NewControl(backend),
	}
	r.SignIn = NewSignIn(backend, r.signedIn)
	return r
}

// Mount checks the session once and mounts the matching panels. An auth
// check error counts as not authenticated and is returned for logging.
func (r *Root) Mount(ctx context.Context, onChange func()) error {
	authenticated, err := r.backend.IsAuth(ctx)
	if err != nil {
		authenticated = false
	}

	r.mu.Lock()
	if r.mounted {
		r.mu.Unlock()
		return err
	}
	r.mounted = true
	r.authenticated = authenticated
	r.onChange = onChange
	r.mu.Unlock()

	r.Status.Mount(onChange)
	if authenticated {
		r.Control.Mount(onChange)
	} else {
		r.SignIn.Mount(onChange)
	}
	return err
}

func (r *Root) Unmount() {
	r.mu.Lock()
	r.mounted = false
	r.onChange = nil
	r.mu.Unlock()

	r.Status.Unmount()
	r.Control.Unmount()
	r.SignIn.Unmount()
}

func (r *Root) Authenticated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authenticated
}

func (r *Root) signedIn() {
	r.mu.Lock()
	if r.authenticated || !r.mounted {
		r.mu.Unlock()
		return
	}
	r.authenticated = true
	onChange := r.onChange
	r.mu.Unlock()

	r.SignIn.Unmount()
	r.Control.Mount(onChange)
	if onChange != nil {
		onChange()
	}
}

func (r *Root) Model() RootModel {
	model := RootModel{
		Title:         Title,
		Authenticated: r.Authenticated(),
		Status:        r.Status.Model(),
	}
	if model.Authenticated {
		control := r.Control.Model()
		model.Control = &control
	} else {
		signin := r.SignIn.Model()
		model.SignIn = &signin
	}
	return model
}
