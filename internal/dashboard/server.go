// Package dashboard serves the panel to browsers. Each websocket
// connection mounts its own view tree against the shared state client.
package dashboard

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/joshp123/acpanel/internal/core"
	"github.com/joshp123/acpanel/internal/server"
	"github.com/joshp123/acpanel/internal/shadow"
	"github.com/joshp123/acpanel/internal/view"
)

// Backend is the state client as seen by the dashboard. Each browser gets
// its own session so backend cookies are never shared between panels.
type Backend interface {
	Watch(fn shadow.Subscriber) *shadow.Subscription
	Unsubscribe(sub *shadow.Subscription)
	NewSession() (*shadow.Session, error)
}

// Options configures optional routes.
type Options struct {
	Logger *zap.SugaredLogger
	// Components are reported on /health alongside the dashboard itself.
	Components []core.Component
	// Registry is served on /metrics when set.
	Registry *prometheus.Registry
}

type Server struct {
	backend  Backend
	log      *zap.SugaredLogger
	router   *mux.Router
	upgrader websocket.Upgrader
	watch    *shadow.Subscription

	sessionsGauge prometheus.Gauge
	actions       *prometheus.CounterVec

	mu       sync.Mutex
	sessions map[string]*session
	latest   shadow.State
}

func NewServer(backend Backend, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Server{
		backend:  backend,
		log:      logger,
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		sessions: make(map[string]*session),
		sessionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_dashboard_sessions",
			Help: "Open browser panels",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acpanel_dashboard_actions_total",
			Help: "Browser actions by name and result",
		}, []string{"action", "result"}),
	}
	s.watch = backend.Watch(s.observe)
	s.registerRoutes(opts)
	return s
}

func (s *Server) registerRoutes(opts Options) {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/state", s.handleState).Methods(http.MethodGet)
	components := append(append([]core.Component(nil), opts.Components...), s)
	s.router.HandleFunc("/health", server.HealthHandler(components)).Methods(http.MethodGet)
	if opts.Registry != nil {
		s.router.Handle("/metrics", server.MetricsHandler(opts.Registry)).Methods(http.MethodGet)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops observing the backend. Open sessions end when their
// connections close.
func (s *Server) Close() {
	s.backend.Unsubscribe(s.watch)
}

func (s *Server) observe(state shadow.State) {
	s.mu.Lock()
	s.latest = state
	s.mu.Unlock()
}

// Latest is the last state the server saw.
func (s *Server) Latest() shadow.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "page", struct{ Title string }{view.Title}); err != nil {
		s.log.Errorf("render page: %v", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, s.Latest())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	backend, err := s.backend.NewSession()
	if err != nil {
		s.log.Errorf("backend session: %v", err)
		http.Error(w, "backend session unavailable", http.StatusInternalServerError)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade failure: %v", err)
		return
	}
	defer conn.Close()

	sess := newSession(uuid.NewString(), conn, view.NewRoot(backend), s.log)
	s.track(sess)
	defer s.untrack(sess)

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sess.writeLoop(done)
	}()
	defer func() {
		close(done)
		<-writerDone
	}()

	ctx := r.Context()
	if err := sess.root.Mount(ctx, sess.render); err != nil {
		s.log.Warnf("session %s: auth check: %v", sess.id, err)
	}
	defer sess.root.Unmount()
	sess.render()

	for {
		var a action
		if err := conn.ReadJSON(&a); err != nil {
			s.log.Debugf("session %s: disconnecting: %v", sess.id, err)
			return
		}
		if err := sess.handle(ctx, a); err != nil {
			s.actions.WithLabelValues(actionLabel(a.Action), "error").Inc()
			sess.send(newErrorMessage(err))
			continue
		}
		s.actions.WithLabelValues(actionLabel(a.Action), "ok").Inc()
	}
}

func (s *Server) track(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.sessionsGauge.Inc()
	s.log.Infof("session %s: opened", sess.id)
}

func (s *Server) untrack(sess *session) {
	s.log.Infof("session %s: closed", sess.id)
	s.sessionsGauge.Dec()
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

func (s *Server) ID() string {
	return "dashboard"
}

func (s *Server) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.sessionsGauge, s.actions}
}

func (s *Server) Health() core.HealthStatus {
	return core.HealthHealthy
}

func (s *Server) HealthMessage() string {
	return ""
}

var _ core.Component = (*Server)(nil)
