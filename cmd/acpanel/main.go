package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/acpanel/internal/config"
	"github.com/joshp123/acpanel/internal/core"
	"github.com/joshp123/acpanel/internal/dashboard"
	"github.com/joshp123/acpanel/internal/logging"
	"github.com/joshp123/acpanel/internal/mqttbridge"
	"github.com/joshp123/acpanel/internal/server"
	"github.com/joshp123/acpanel/internal/shadow"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", envOrDefault("ACPANEL_CONFIG", config.DefaultPath), "path to YAML config")
	envFile := flag.String("env-file", config.DefaultEnvFile, "optional .env file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("env: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := shadow.NewClient(shadow.Config{
		BaseURL:        cfg.Backend.BaseURL,
		PollInterval:   cfg.Backend.PollInterval,
		RequestTimeout: cfg.Backend.RequestTimeout,
	}, shadow.WithLogger(logger.Named("shadow")))
	if err != nil {
		logger.Fatalf("shadow client: %v", err)
	}

	components := []core.Component{client}

	if cfg.MQTT.Enabled() {
		password, err := cfg.MQTT.MQTTPassword()
		if err != nil {
			logger.Fatalf("mqtt: %v", err)
		}
		bridge, err := mqttbridge.Connect(mqttbridge.Config{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: password,
			QoS:      cfg.MQTT.QoS,
			Retain:   cfg.MQTT.Retain,
		}, logger.Named("mqtt"))
		if err != nil {
			logger.Fatalf("mqtt: %v", err)
		}
		bridge.Attach(client)
		defer bridge.Close()
		components = append(components, bridge)
	}

	registry := core.MetricsRegistry(components)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "acpanel_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))

	dash := dashboard.NewServer(client, dashboard.Options{
		Logger:     logger.Named("dashboard"),
		Components: components,
		Registry:   registry,
	})
	defer dash.Close()
	registry.MustRegister(dash.Collectors()...)

	if err := core.ValidateComponents(append(components, dash)); err != nil {
		logger.Fatalf("components: %v", err)
	}

	go client.Run(ctx)

	httpServer := server.NewHTTPServer(cfg.HTTP.Addr, dash.Handler())
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
	}()

	logger.Infof("acpanel listening on %s (backend %s, poll %s)", cfg.HTTP.Addr, cfg.Backend.BaseURL, client.PollInterval())
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Fatalf("http serve: %v", err)
	}
	logger.Infof("acpanel stopped")
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
