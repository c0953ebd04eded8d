// Package mqttsink publishes scenario summaries to an MQTT broker as
// retained messages on topic/<run id>.
package mqttsink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"

	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Handler struct {
	config config
	client publisher
	log    logr.Logger
}

type config struct {
	Broker   string `json:"Broker"`
	ClientID string `json:"ClientID"`
	Topic    string `json:"Topic"`
	QoS      byte   `json:"QoS"`
	// Timeout in seconds for connect and each publish.
	Timeout int `json:"Timeout"`
}

func New(configPath string, log logr.Logger) (*Handler, error) {
	jsonConfig, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: %s: Broker is empty", configPath)
	}
	if cfg.Topic == "" {
		cfg.Topic = "simpflex/run"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "simpflex"
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt: QoS %d out of range", cfg.QoS)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5
	}

	return &Handler{
		config: cfg,
		log:    log.WithName("mqtt"),
	}, nil
}

func (h *Handler) timeout() time.Duration {
	return time.Duration(h.config.Timeout) * time.Second
}

func wait(t mqtt.Token, d time.Duration) error {
	if !t.WaitTimeout(d) {
		return fmt.Errorf("mqtt: timed out after %s", d)
	}
	return t.Error()
}

func (h *Handler) Connect(context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(h.config.Broker).
		SetClientID(h.config.ClientID).
		SetConnectTimeout(h.timeout())
	c := mqtt.NewClient(opts)
	if err := wait(c.Connect(), h.timeout()); err != nil {
		return err
	}
	h.client = c
	h.log.Info("connected", "broker", h.config.Broker)
	return nil
}

func (h *Handler) Name() string {
	return "mqtt"
}

func (h *Handler) Write(_ context.Context, r scenario.Result) error {
	if h.client == nil {
		return fmt.Errorf("mqtt: not connected")
	}
	payload, err := json.Marshal(r.Summary())
	if err != nil {
		return err
	}
	topic := h.config.Topic + "/" + r.RunID.String()
	return wait(h.client.Publish(topic, h.config.QoS, true, payload), h.timeout())
}

func (h *Handler) Close(context.Context) error {
	if h.client == nil {
		return nil
	}
	h.client.Disconnect(250)
	h.log.Info("Process Shutdown")
	return nil
}
