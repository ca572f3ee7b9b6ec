// Package mqttbridge republishes shadow states to an MQTT broker.
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/joshp123/acpanel/internal/core"
	"github.com/joshp123/acpanel/internal/shadow"
)

const (
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second

	availabilityOnline  = "online"
	availabilityOffline = "offline"
)

// Config configures the bridge.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	Retain   bool
}

// Source is where states come from.
type Source interface {
	Subscribe(fn shadow.Subscriber) *shadow.Subscription
	Unsubscribe(sub *shadow.Subscription)
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Bridge publishes every loaded state as JSON to Topic. It holds an
// active subscription, so polling continues while the bridge is attached.
type Bridge struct {
	client publisher
	cfg    Config
	log    *zap.SugaredLogger

	published *prometheus.CounterVec

	mu      sync.Mutex
	source  Source
	sub     *shadow.Subscription
	lastErr error
	sent    bool
}

// Connect dials the broker and returns a bridge ready to Attach.
func Connect(cfg Config, logger *zap.SugaredLogger) (*Bridge, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt topic is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "acpanel-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetWill(availabilityTopic(cfg.Topic), availabilityOffline, cfg.QoS, true)
	opts.OnConnect = func(c mqtt.Client) {
		c.Publish(availabilityTopic(cfg.Topic), cfg.QoS, true, availabilityOnline)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return newBridge(client, cfg, logger), nil
}

func newBridge(client publisher, cfg Config, logger *zap.SugaredLogger) *Bridge {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bridge{
		client: client,
		cfg:    cfg,
		log:    logger,
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acpanel_mqtt_published_total",
			Help: "States republished to MQTT by result",
		}, []string{"result"}),
	}
}

func availabilityTopic(topic string) string {
	return topic + "/availability"
}

// Attach subscribes the bridge to source. Attaching twice is a no-op.
func (b *Bridge) Attach(source Source) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return
	}
	b.source = source
	b.sub = source.Subscribe(b.publish)
}

// Close detaches from the source and disconnects from the broker.
func (b *Bridge) Close() {
	b.mu.Lock()
	source, sub := b.source, b.sub
	b.source, b.sub = nil, nil
	b.mu.Unlock()

	if sub != nil {
		source.Unsubscribe(sub)
	}
	b.client.Publish(availabilityTopic(b.cfg.Topic), b.cfg.QoS, true, availabilityOffline).WaitTimeout(publishTimeout)
	b.client.Disconnect(250)
}

func (b *Bridge) publish(state shadow.State) {
	if !state.Loaded() {
		return
	}
	payload, err := json.Marshal(state)
	if err != nil {
		b.record(fmt.Errorf("encode state: %w", err))
		return
	}

	token := b.client.Publish(b.cfg.Topic, b.cfg.QoS, b.cfg.Retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		b.record(fmt.Errorf("publish %s: timed out", b.cfg.Topic))
		return
	}
	if err := token.Error(); err != nil {
		b.record(fmt.Errorf("publish %s: %w", b.cfg.Topic, err))
		return
	}
	b.record(nil)
}

func (b *Bridge) record(err error) {
	b.mu.Lock()
	b.lastErr = err
	if err == nil {
		b.sent = true
	}
	b.mu.Unlock()

	if err != nil {
		b.published.WithLabelValues("error").Inc()
		b.log.Warnf("mqtt bridge: %v", err)
		return
	}
	b.published.WithLabelValues("ok").Inc()
}

func (b *Bridge) ID() string {
	return "mqtt_bridge"
}

func (b *Bridge) Collectors() []prometheus.Collector {
	return []prometheus.Collector{b.published}
}

// Health is DEGRADED when the last publish failed and HEALTHY otherwise.
func (b *Bridge) Health() core.HealthStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastErr != nil {
		return core.HealthDegraded
	}
	return core.HealthHealthy
}

func (b *Bridge) HealthMessage() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.lastErr != nil:
		return b.lastErr.Error()
	case !b.sent:
		return "nothing published yet"
	default:
		return ""
	}
}

var _ core.Component = (*Bridge)(nil)
