package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/joshp123/acpanel/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// renderMessage carries the rendered fragments to the browser.
type renderMessage struct {
	Type          string `json:"type"`
	Authenticated bool   `json:"authenticated"`
	Status        string `json:"status"`
	Panel         string `json:"panel"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorMessage(err error) errorMessage {
	return errorMessage{Type: "error", Message: err.Error()}
}

func renderModel(model view.RootModel) (renderMessage, error) {
	msg := renderMessage{Type: "render", Authenticated: model.Authenticated}

	status, err := renderFragment("status", model.Status)
	if err != nil {
		return renderMessage{}, err
	}
	msg.Status = status

	switch {
	case model.Control != nil:
		msg.Panel, err = renderFragment("control", *model.Control)
	case model.SignIn != nil:
		msg.Panel, err = renderFragment("signin", *model.SignIn)
	}
	if err != nil {
		return renderMessage{}, err
	}
	return msg, nil
}

func renderFragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
