// Package sqldb stores scenario results in MySQL or PostgreSQL.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-logr/logr"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

const (
	MySQL    = "mysql"
	Postgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		status VARCHAR(32) NOT NULL,
		objective DOUBLE PRECISION NOT NULL,
		started TIMESTAMP NULL,
		finished TIMESTAMP NULL)`,
	`CREATE TABLE IF NOT EXISTS capacity (
		run_id VARCHAR(36) NOT NULL,
		tech VARCHAR(64) NOT NULL,
		class VARCHAR(64) NOT NULL,
		region VARCHAR(64) NOT NULL,
		year INT NOT NULL,
		mw DOUBLE PRECISION NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS generation (
		run_id VARCHAR(36) NOT NULL,
		tech VARCHAR(64) NOT NULL,
		class VARCHAR(64) NOT NULL,
		region VARCHAR(64) NOT NULL,
		year INT NOT NULL,
		period VARCHAR(64) NOT NULL,
		mw DOUBLE PRECISION NOT NULL)`,
}

type Handler struct {
	config config
	db     *sql.DB
	log    logr.Logger
}

type config struct {
	Driver   string `json:"Driver"`
	Server   string `json:"Server"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
	SSLMode  string `json:"SSLMode"`
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
	if cfg.Driver == "" {
		cfg.Driver = MySQL
	}
	if cfg.Driver != MySQL && cfg.Driver != Postgres {
		return nil, fmt.Errorf("sqldb: unsupported driver %q", cfg.Driver)
	}

	return &Handler{
		config: cfg,
		log:    log.WithName("sqldb"),
	}, nil
}

func (h *Handler) dsn() string {
	c := h.config
	switch c.Driver {
	case Postgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.Username, c.Password),
			Host:   fmt.Sprintf("%v:%v", c.Server, c.Port),
			Path:   "/" + c.Database,
		}
		if c.SSLMode != "" {
			u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
		}
		return u.String()
	default:
		return fmt.Sprintf("%v:%v@tcp(%v:%v)/%v?parseTime=true", c.Username, c.Password, c.Server, c.Port, c.Database)
	}
}

// placeholders returns n bind parameters in the driver's syntax.
func (h *Handler) placeholders(n int) string {
	p := make([]string, n)
	for i := range p {
		if h.config.Driver == Postgres {
			p[i] = fmt.Sprintf("$%d", i+1)
		} else {
			p[i] = "?"
		}
	}
	return strings.Join(p, ", ")
}

func (h *Handler) insert(table string, columns ...string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), h.placeholders(len(columns)))
}

// Connect opens the database and creates the result tables.
func (h *Handler) Connect(ctx context.Context) error {
	db, err := sql.Open(h.config.Driver, h.dsn())
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return err
		}
	}
	h.db = db
	h.log.Info("connected", "driver", h.config.Driver, "database", h.config.Database)
	return nil
}

func (h *Handler) Name() string {
	return "sql"
}

// Write stores one run in a single transaction.
func (h *Handler) Write(ctx context.Context, r scenario.Result) error {
	if h.db == nil {
		return fmt.Errorf("sqldb: not connected")
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id := r.RunID.String()
	if _, err := tx.ExecContext(ctx,
		h.insert("runs", "run_id", "name", "status", "objective", "started", "finished"),
		id, r.Scenario.Name, r.Status.String(), r.Objective, r.Started, r.Finished); err != nil {
		return err
	}

	capStmt, err := tx.PrepareContext(ctx, h.insert("capacity", "run_id", "tech", "class", "region", "year", "mw"))
	if err != nil {
		return err
	}
	defer capStmt.Close()
	for _, c := range r.CapacityRecords() {
		if _, err := capStmt.ExecContext(ctx, id, c.Tech, c.Class, c.Region, c.Year, c.MW); err != nil {
			return err
		}
	}

	genStmt, err := tx.PrepareContext(ctx, h.insert("generation", "run_id", "tech", "class", "region", "year", "period", "mw"))
	if err != nil {
		return err
	}
	defer genStmt.Close()
	for _, g := range r.GenerationRecords() {
		if _, err := genStmt.ExecContext(ctx, id, g.Tech, g.Class, g.Region, g.Year, g.Time, g.MW); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (h *Handler) Close(context.Context) error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}
