package view

import (
	"strconv"

	"github.com/joshp123/acpanel/internal/shadow"
)

const (
	ColorGreen = "green"
	ColorRed   = "red"
)

// StatusModel is what the status panel shows.
type StatusModel struct {
	Loading      bool
	SetTemp      string
	CurrentTemp  string
	DisplayTemp  string
	Enabled      bool
	EnabledText  string
	EnabledColor string
	HeatCmd      string
}

// Status mirrors the reported half of the shadow.
type Status struct {
	backend Backend
	mirror  mirror
}

func NewStatus(backend Backend) *Status {
	return &Status{backend: backend}
}

// Mount subscribes the panel. onChange runs after every new state.
func (s *Status) Mount(onChange func()) {
	s.mirror.mount(s.backend, onChange)
}

func (s *Status) Unmount() {
	s.mirror.unmount(s.backend)
}

func (s *Status) State() shadow.State {
	return s.mirror.current()
}

func (s *Status) Model() StatusModel {
	return NewStatusModel(s.mirror.current())
}

// NewStatusModel derives the status panel from a state.
func NewStatusModel(state shadow.State) StatusModel {
	if !state.Loaded() {
		return StatusModel{Loading: true}
	}
	reported := state.Reported()
	model := StatusModel{
		SetTemp:     strconv.FormatFloat(reported.CurrentSetT, 'f', -1, 64),
		CurrentTemp: shadow.FormatTemperature(reported.CurrentT),
		DisplayTemp: strconv.FormatFloat(reported.DisplayT, 'f', -1, 64),
		Enabled:     reported.Enable,
		EnabledText: strconv.FormatBool(reported.Enable),
		HeatCmd:     reported.HeatCmd,
	}
	if reported.Enable {
		model.EnabledColor = ColorGreen
	} else {
		model.EnabledColor = ColorRed
	}
	return model
}
