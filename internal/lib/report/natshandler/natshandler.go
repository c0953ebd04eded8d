// Package natshandler publishes scenario results on NATS subjects.
//
// For a run with id ID under subject S:
//
//	S.ID             summary
//	S.ID.capacity    capacity records
//	S.ID.generation  generation records
package natshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	nats "github.com/nats-io/nats.go"

	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

type publisher interface {
	Publish(subj string, data []byte) error
	Flush() error
}

type Handler struct {
	config config
	conn   *nats.Conn
	pub    publisher
	log    logr.Logger
}

type config struct {
	Server  string `json:"Server"`
	Subject string `json:"Subject"`
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
	if cfg.Server == "" {
		cfg.Server = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = "simpflex.run"
	}

	return &Handler{
		config: cfg,
		log:    log.WithName("nats"),
	}, nil
}

func (h *Handler) Connect(context.Context) error {
	nc, err := nats.Connect(h.config.Server, nats.Name("simpflex"))
	if err != nil {
		return err
	}
	h.conn = nc
	h.pub = nc
	h.log.Info("connected", "server", h.config.Server)
	return nil
}

func (h *Handler) Name() string {
	return "nats"
}

func (h *Handler) subject(r scenario.Result, suffix string) string {
	s := fmt.Sprintf("%s.%s", h.config.Subject, r.RunID)
	if suffix != "" {
		s += "." + suffix
	}
	return s
}

func (h *Handler) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := h.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("unable to publish to nats server: %w", err)
	}
	return nil
}

func (h *Handler) Write(_ context.Context, r scenario.Result) error {
	if h.pub == nil {
		return fmt.Errorf("nats: not connected")
	}
	if err := h.publish(h.subject(r, ""), r.Summary()); err != nil {
		return err
	}
	if err := h.publish(h.subject(r, "capacity"), r.CapacityRecords()); err != nil {
		return err
	}
	if err := h.publish(h.subject(r, "generation"), r.GenerationRecords()); err != nil {
		return err
	}
	return h.pub.Flush()
}

func (h *Handler) Close(context.Context) error {
	if h.conn == nil {
		return nil
	}
	err := h.conn.Drain()
	h.log.Info("Process Shutdown")
	return err
}
