package view

import (
	"context"
	"fmt"

	"github.com/joshp123/acpanel/internal/shadow"
)

// ControlModel is what the control panel shows.
type ControlModel struct {
	Loading     bool
	Enable      bool
	DefaultT    int
	OverrideT   int
	OverrideEx  int64
	MinutesLeft float64
	Shortcuts   []ShortcutModel
}

type ShortcutModel struct {
	Key    string
	Label  string
	Active bool
}

// Control mirrors the desired half of the shadow and sends updates.
type Control struct {
	backend Backend
	mirror  mirror
}

func NewControl(backend Backend) *Control {
	return &Control{backend: backend}
}

func (c *Control) Mount(onChange func()) {
	c.mirror.mount(c.backend, onChange)
}

func (c *Control) Unmount() {
	c.mirror.unmount(c.backend)
}

func (c *Control) Mounted() bool {
	return c.mirror.mounted()
}

func (c *Control) Model() ControlModel {
	return NewControlModel(c.mirror.current())
}

// NewControlModel derives the control panel from a state.
func NewControlModel(state shadow.State) ControlModel {
	if !state.Loaded() {
		return ControlModel{Loading: true}
	}
	desired := state.Desired()
	model := ControlModel{
		Enable:      desired.Enable,
		DefaultT:    desired.DefaultT,
		OverrideT:   desired.OverrideT,
		OverrideEx:  desired.OverrideEx,
		MinutesLeft: shadow.MinutesLeft(state.Timestamp, desired.OverrideEx),
	}
	for _, s := range shadow.Shortcuts {
		model.Shortcuts = append(model.Shortcuts, ShortcutModel{
			Key:    s.Key,
			Label:  s.Label,
			Active: s.Active(state.Timestamp, desired.OverrideEx),
		})
	}
	return model
}

func (c *Control) loaded() (shadow.State, error) {
	state := c.mirror.current()
	if !state.Loaded() {
		return shadow.State{}, ErrLoading
	}
	return state, nil
}

func (c *Control) SetEnable(ctx context.Context, enable bool) error {
	if _, err := c.loaded(); err != nil {
		return err
	}
	return c.backend.Update(ctx, shadow.EnableDelta(enable))
}

func (c *Control) SetDefault(ctx context.Context, temp int) error {
	if _, err := c.loaded(); err != nil {
		return err
	}
	return c.backend.Update(ctx, shadow.DefaultTempDelta(temp))
}

// StepDefault moves the default temperature by step from the mirrored value.
func (c *Control) StepDefault(ctx context.Context, step int) error {
	state, err := c.loaded()
	if err != nil {
		return err
	}
	return c.backend.Update(ctx, shadow.DefaultTempDelta(state.Desired().DefaultT+step))
}

func (c *Control) SetOverride(ctx context.Context, temp int) error {
	if _, err := c.loaded(); err != nil {
		return err
	}
	return c.backend.Update(ctx, shadow.OverrideTempDelta(temp))
}

// StepOverride moves the override temperature by step from the mirrored value.
func (c *Control) StepOverride(ctx context.Context, step int) error {
	state, err := c.loaded()
	if err != nil {
		return err
	}
	return c.backend.Update(ctx, shadow.OverrideTempDelta(state.Desired().OverrideT+step))
}

// SelectShortcut sets the override expiry relative to the mirrored server
// timestamp. Cancel sets it one minute in the past.
func (c *Control) SelectShortcut(ctx context.Context, key string) error {
	shortcut, ok := shadow.LookupShortcut(key)
	if !ok {
		return fmt.Errorf("unknown override shortcut %q", key)
	}
	state, err := c.loaded()
	if err != nil {
		return err
	}
	return c.backend.Update(ctx, shadow.OverrideExpiryDelta(shadow.Expiry(state.Timestamp, shortcut.Minutes)))
}
