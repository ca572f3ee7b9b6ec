package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	enabledColor  = color.New(color.FgGreen, color.Bold)
	disabledColor = color.New(color.FgRed, color.Bold)
	headerColor   = color.New(color.FgCyan, color.Bold)
	activeColor   = color.New(color.FgYellow, color.Bold)
	faintColor    = color.New(color.Faint)
)

// WriteText renders the panel for a terminal.
func WriteText(w io.Writer, model RootModel) {
	headerColor.Fprintln(w, model.Title)
	WriteStatusText(w, model.Status)
	switch {
	case model.Control != nil:
		WriteControlText(w, *model.Control)
	case model.SignIn != nil:
		WriteSignInText(w, *model.SignIn)
	}
}

func WriteStatusText(w io.Writer, m StatusModel) {
	headerColor.Fprintln(w, "Current Status")
	if m.Loading {
		faintColor.Fprintln(w, "  Loading status...")
		return
	}
	fmt.Fprintf(w, "  Set Temp:     %s\n", m.SetTemp)
	fmt.Fprintf(w, "  Current Temp: %s\n", m.CurrentTemp)
	enabled := disabledColor
	if m.EnabledColor == ColorGreen {
		enabled = enabledColor
	}
	fmt.Fprintf(w, "  Enabled:      %s\n", enabled.Sprint(m.EnabledText))
	fmt.Fprintf(w, "  Heating:      %s\n", m.HeatCmd)
}

func WriteControlText(w io.Writer, m ControlModel) {
	headerColor.Fprintln(w, "Standard")
	if m.Loading {
		faintColor.Fprintln(w, "  Loading...")
		return
	}
	fmt.Fprintf(w, "  Enable heat:   %t\n", m.Enable)
	fmt.Fprintf(w, "  Default Temp:  %d\n", m.DefaultT)
	headerColor.Fprintln(w, "Override")
	fmt.Fprintf(w, "  Override Temp: %d\n", m.OverrideT)

	labels := make([]string, 0, len(m.Shortcuts))
	for _, s := range m.Shortcuts {
		if s.Active {
			labels = append(labels, activeColor.Sprintf("[%s]", s.Label))
			continue
		}
		labels = append(labels, s.Label)
	}
	fmt.Fprintf(w, "  Shortcuts:     %s\n", strings.Join(labels, " | "))
	headerColor.Fprintln(w, "Schedule")
	faintColor.Fprintln(w, "  (disabled)")
}

func WriteSignInText(w io.Writer, m SignInModel) {
	headerColor.Fprintln(w, "Sign in to enable control")
	status := "[" + m.Icon + "]"
	if m.Requesting {
		status = "[signing in...]"
	}
	if m.Message != "" {
		fmt.Fprintf(w, "  %s %s\n", status, m.Message)
		return
	}
	fmt.Fprintf(w, "  %s\n", status)
}
