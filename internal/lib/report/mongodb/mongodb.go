// Package mongodb stores scenario results in MongoDB. Each run is one
// document in runs, with its decisions in the capacity and generation
// collections keyed by run_id.
package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

const (
	runsCollection       = "runs"
	capacityCollection   = "capacity"
	generationCollection = "generation"
)

type inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

type Handler struct {
	config config
	log    logr.Logger

	client     *mongo.Client
	runs       inserter
	capacity   inserter
	generation inserter
}

type config struct {
	URI      string `json:"URI"`
	Database string `json:"Database"`
	Port     string `json:"Port"`
	// Timeout in seconds for connect and each write.
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
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb: %s: Database is empty", configPath)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10
	}

	return &Handler{
		config: cfg,
		log:    log.WithName("mongodb"),
	}, nil
}

func (h *Handler) uri() string {
	if h.config.Port == "" {
		return h.config.URI
	}
	return h.config.URI + ":" + h.config.Port
}

func (h *Handler) timeout() time.Duration {
	return time.Duration(h.config.Timeout) * time.Second
}

// Connect opens the client and binds the result collections.
func (h *Handler) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(h.uri()))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return err
	}

	db := client.Database(h.config.Database)
	h.client = client
	h.runs = db.Collection(runsCollection)
	h.capacity = db.Collection(capacityCollection)
	h.generation = db.Collection(generationCollection)
	h.log.Info("connected", "database", h.config.Database)
	return nil
}

func (h *Handler) Name() string {
	return "mongodb"
}

func runDocument(r scenario.Result) bson.D {
	//TODO: run_id should be written as a binary of subtype 0x04 (UUID standard).
	// currently written as a string.
	caps := make(bson.A, 0)
	for _, c := range r.CapacityByTech() {
		caps = append(caps, bson.D{{Key: "tech", Value: c.Tech}, {Key: "mw", Value: c.MW}})
	}
	return bson.D{
		{Key: "run_id", Value: r.RunID.String()},
		{Key: "name", Value: r.Scenario.Name},
		{Key: "status", Value: r.Status.String()},
		{Key: "objective", Value: r.Objective},
		{Key: "crf", Value: r.Scenario.CRF},
		{Key: "reserve_margin", Value: r.Scenario.ReserveMargin},
		{Key: "started", Value: r.Started},
		{Key: "finished", Value: r.Finished},
		{Key: "capacity_by_tech", Value: caps},
	}
}

func capacityDocuments(r scenario.Result) []interface{} {
	id := r.RunID.String()
	records := r.CapacityRecords()
	docs := make([]interface{}, 0, len(records))
	for _, c := range records {
		docs = append(docs, bson.D{
			{Key: "run_id", Value: id},
			{Key: "tech", Value: c.Tech},
			{Key: "class", Value: c.Class},
			{Key: "region", Value: c.Region},
			{Key: "year", Value: c.Year},
			{Key: "mw", Value: c.MW},
		})
	}
	return docs
}

func generationDocuments(r scenario.Result) []interface{} {
	id := r.RunID.String()
	records := r.GenerationRecords()
	docs := make([]interface{}, 0, len(records))
	for _, g := range records {
		docs = append(docs, bson.D{
			{Key: "run_id", Value: id},
			{Key: "tech", Value: g.Tech},
			{Key: "class", Value: g.Class},
			{Key: "region", Value: g.Region},
			{Key: "year", Value: g.Year},
			{Key: "time", Value: g.Time},
			{Key: "mw", Value: g.MW},
		})
	}
	return docs
}

func (h *Handler) Write(ctx context.Context, r scenario.Result) error {
	if h.runs == nil {
		return fmt.Errorf("mongodb: not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()

	if _, err := h.runs.InsertOne(ctx, runDocument(r)); err != nil {
		return err
	}
	// InsertMany rejects an empty slice
	if docs := capacityDocuments(r); len(docs) > 0 {
		if _, err := h.capacity.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	if docs := generationDocuments(r); len(docs) > 0 {
		if _, err := h.generation.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) Close(ctx context.Context) error {
	if h.client == nil {
		return nil
	}
	err := h.client.Disconnect(ctx)
	h.log.Info("Process Shutdown")
	return err
}
