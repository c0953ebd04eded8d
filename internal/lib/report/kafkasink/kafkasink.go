// Package kafkasink publishes scenario results to a Kafka topic. Every
// message is keyed by run id so a run lands on one partition.
//
// Capacity and generation records are split into messages of at most
// ChunkRecords records. The "part" header numbers the messages of one kind
// from 0.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/segmentio/kafka-go"

	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

// Kinds of message, carried in the "kind" header.
const (
	KindSummary    = "summary"
	KindCapacity   = "capacity"
	KindGeneration = "generation"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Handler struct {
	config config
	writer messageWriter
	log    logr.Logger
}

// DefaultChunkRecords keeps a generation chunk well under the default 1 MB
// batch limit.
const DefaultChunkRecords = 2000

type config struct {
	Brokers      []string `json:"Brokers"`
	Topic        string   `json:"Topic"`
	ChunkRecords int      `json:"ChunkRecords"`
	// BatchBytes overrides the writer batch limit when positive.
	BatchBytes int64 `json:"BatchBytes"`
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
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: %s: Brokers and Topic are required", configPath)
	}
	if cfg.ChunkRecords < 0 || cfg.BatchBytes < 0 {
		return nil, fmt.Errorf("kafka: %s: ChunkRecords and BatchBytes must be >= 0", configPath)
	}
	if cfg.ChunkRecords == 0 {
		cfg.ChunkRecords = DefaultChunkRecords
	}

	return &Handler{
		config: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchBytes:   cfg.BatchBytes,
		},
		log: log.WithName("kafka"),
	}, nil
}

func (h *Handler) Name() string {
	return "kafka"
}

func message(key []byte, kind string, part int, v interface{}, now time.Time) (kafka.Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   key,
		Value: b,
		Time:  now,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "part", Value: []byte(strconv.Itoa(part))},
		},
	}, nil
}

// chunks splits records into runs of at most size. An empty input gives one
// empty chunk so every kind is published.
func chunks[T any](records []T, size int) [][]T {
	if len(records) == 0 {
		return [][]T{records}
	}
	out := make([][]T, 0, (len(records)+size-1)/size)
	for len(records) > size {
		out = append(out, records[:size])
		records = records[size:]
	}
	return append(out, records)
}

func appendChunks[T any](msgs []kafka.Message, key []byte, kind string, records []T, size int, now time.Time) ([]kafka.Message, error) {
	for i, c := range chunks(records, size) {
		msg, err := message(key, kind, i, c, now)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (h *Handler) Write(ctx context.Context, r scenario.Result) error {
	key := []byte(r.RunID.String())
	now := time.Now()

	summary, err := message(key, KindSummary, 0, r.Summary(), now)
	if err != nil {
		return err
	}
	msgs := []kafka.Message{summary}
	if msgs, err = appendChunks(msgs, key, KindCapacity, r.CapacityRecords(), h.config.ChunkRecords, now); err != nil {
		return err
	}
	if msgs, err = appendChunks(msgs, key, KindGeneration, r.GenerationRecords(), h.config.ChunkRecords, now); err != nil {
		return err
	}
	h.log.V(1).Info("publishing", "run", r.RunID, "messages", len(msgs))
	return h.writer.WriteMessages(ctx, msgs...)
}

func (h *Handler) Close(context.Context) error {
	err := h.writer.Close()
	h.log.Info("Process Shutdown")
	return err
}
