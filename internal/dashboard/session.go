package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/joshp123/acpanel/internal/view"
)

const writeTimeout = 5 * time.Second

// action is a browser request.
type action struct {
	Action   string `json:"action"`
	Enable   *bool  `json:"enable,omitempty"`
	Step     int    `json:"step,omitempty"`
	Shortcut string `json:"shortcut,omitempty"`
	Key      string `json:"key,omitempty"`
}

func actionLabel(name string) string {
	switch name {
	case "enable", "default_step", "override_step", "override", "signin":
		return name
	default:
		return "unknown"
	}
}

var errNotSignedIn = errors.New("sign in to change settings")

// messageBuffer bounds queued error messages per session.
const messageBuffer = 8

// session is one browser panel. It owns its own Root and backend session,
// so every open panel holds its own subscriptions and cookies.
//
// Renders are coalesced: render only marks the panel dirty and the writer
// goroutine sends the latest model. A stalled browser blocks its own writer
// for at most writeTimeout and never the state client's dispatch.
type session struct {
	id   string
	conn *websocket.Conn
	root *view.Root
	log  *zap.SugaredLogger

	dirty chan struct{}
	msgs  chan any
}

func newSession(id string, conn *websocket.Conn, root *view.Root, logger *zap.SugaredLogger) *session {
	return &session{
		id:    id,
		conn:  conn,
		root:  root,
		log:   logger,
		dirty: make(chan struct{}, 1),
		msgs:  make(chan any, messageBuffer),
	}
}

// render schedules a push of the current model. It never blocks.
func (s *session) render() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// send queues msg for the writer. It is dropped when the queue is full.
func (s *session) send(msg any) {
	select {
	case s.msgs <- msg:
	default:
		s.log.Debugf("session %s: dropping message", s.id)
	}
}

// writeLoop drains pending renders and messages until done is closed.
func (s *session) writeLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-s.dirty:
			s.push()
		case msg := <-s.msgs:
			s.write(msg)
		}
	}
}

func (s *session) push() {
	msg, err := renderModel(s.root.Model())
	if err != nil {
		s.log.Errorf("session %s: %v", s.id, err)
		return
	}
	s.write(msg)
}

func (s *session) write(msg any) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.log.Debugf("session %s: write: %v", s.id, err)
	}
}

func (s *session) handle(ctx context.Context, a action) error {
	if a.Action == "signin" {
		s.root.SignIn.SetKey(a.Key)
		_, err := s.root.SignIn.Submit(ctx)
		if errors.Is(err, view.ErrRequesting) {
			return err
		}
		// Rejections and transport errors are shown by the sign-in panel.
		return nil
	}

	if !s.root.Authenticated() {
		return errNotSignedIn
	}
	control := s.root.Control
	switch a.Action {
	case "enable":
		if a.Enable == nil {
			return fmt.Errorf("enable requires a value")
		}
		return control.SetEnable(ctx, *a.Enable)
	case "default_step":
		return control.StepDefault(ctx, a.Step)
	case "override_step":
		return control.StepOverride(ctx, a.Step)
	case "override":
		return control.SelectShortcut(ctx, a.Shortcut)
	default:
		return fmt.Errorf("unknown action %q", a.Action)
	}
}
