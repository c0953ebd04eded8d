// Package webservice serves scenario runs over HTTP.
//
//	POST /scenario              solve a scenario against the loaded inputs
//	GET  /run                   summaries of every run
//	GET  /run/{pid}             one run summary
//	GET  /run/{pid}/capacity    capacity decisions
//	GET  /run/{pid}/generation  generation decisions
//	GET  /metrics               prometheus metrics
package webservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ohowland/simpflex/internal/lib/report"
	"github.com/ohowland/simpflex/internal/pkg/config"
	"github.com/ohowland/simpflex/internal/pkg/errs"
	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

// DefaultMaxRuns bounds the run store when Config.MaxRuns is not positive.
const DefaultMaxRuns = 1000

type Config struct {
	Addr string
	// MaxRuns is the number of runs kept for GET /run. Older runs are evicted.
	MaxRuns int
}

type App struct {
	Config Config

	runner  *scenario.Runner
	inputs  scenario.Inputs
	sink    report.Sink
	log     logr.Logger
	metrics *metrics

	mux   sync.RWMutex
	runs  map[uuid.UUID]scenario.Result
	order []uuid.UUID
}

type metrics struct {
	registry *prometheus.Registry
	solves   *prometheus.CounterVec
	duration prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simpflex_scenario_runs_total",
			Help: "Scenario runs by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simpflex_scenario_run_seconds",
			Help:    "Wall time of a scenario run from input preparation to extraction.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	m.registry.MustRegister(m.solves, m.duration)
	return m
}

// New returns an App that runs scenarios against inputs. sink may be nil.
func New(cfg Config, runner *scenario.Runner, inputs scenario.Inputs, sink report.Sink, log logr.Logger) *App {
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = DefaultMaxRuns
	}
	return &App{
		Config:  cfg,
		runner:  runner,
		inputs:  inputs,
		sink:    sink,
		log:     log.WithName("webservice"),
		metrics: newMetrics(),
		runs:    make(map[uuid.UUID]scenario.Result),
	}
}

func (app *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", app.BaseHandler)
	r.HandleFunc("/scenario", app.ScenarioHandler).Methods("POST")
	r.HandleFunc("/run", app.RunsHandler).Methods("GET")
	r.HandleFunc("/run/{pid}", app.RunHandler).Methods("GET")
	r.HandleFunc("/run/{pid}/capacity", app.CapacityHandler).Methods("GET")
	r.HandleFunc("/run/{pid}/generation", app.GenerationHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(app.metrics.registry, promhttp.HandlerOpts{}))
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func (app *App) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.log.Error(err, "malformed JSON")
	}
}

func (app *App) writeError(w http.ResponseWriter, code int, err error) {
	app.writeJSON(w, code, errorBody{Error: err.Error()})
}

func (app *App) BaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
}

// ScenarioHandler solves the posted scenario. A run that reaches the solver
// is stored and returned with 201 whatever its status.
func (app *App) ScenarioHandler(w http.ResponseWriter, r *http.Request) {
	var f config.ScenarioFile
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		app.writeError(w, http.StatusBadRequest, err)
		return
	}
	s, err := f.Resolve()
	if err != nil {
		app.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := app.runner.Run(s, app.inputs)
	var cErr *errs.ConfigurationError
	var dErr *errs.DataIntegrityError
	var sErr *errs.SolverError
	switch {
	case err == nil, errors.As(err, &sErr):
	case errors.As(err, &cErr):
		app.writeError(w, http.StatusBadRequest, err)
		return
	case errors.As(err, &dErr):
		app.writeError(w, http.StatusUnprocessableEntity, err)
		return
	default:
		app.writeError(w, http.StatusInternalServerError, err)
		return
	}

	app.metrics.solves.WithLabelValues(res.Status.String()).Inc()
	app.metrics.duration.Observe(res.Finished.Sub(res.Started).Seconds())

	app.store(res)

	if app.sink != nil && err == nil {
		if err := app.sink.Write(r.Context(), res); err != nil {
			app.log.Error(err, "result not reported", "run", res.RunID)
		}
	}

	app.log.Info("POST scenario", "scenario", s.Name, "run", res.RunID, "status", res.Status.String())
	app.writeJSON(w, http.StatusCreated, res.Summary())
}

// store keeps res and evicts the oldest runs beyond MaxRuns.
func (app *App) store(res scenario.Result) {
	app.mux.Lock()
	defer app.mux.Unlock()

	app.runs[res.RunID] = res
	app.order = append(app.order, res.RunID)
	for len(app.order) > app.Config.MaxRuns {
		delete(app.runs, app.order[0])
		app.log.V(1).Info("run evicted", "run", app.order[0])
		app.order = app.order[1:]
	}
}

func (app *App) lookup(w http.ResponseWriter, r *http.Request) (scenario.Result, bool) {
	pid, err := uuid.Parse(mux.Vars(r)["pid"])
	if err != nil {
		app.writeError(w, http.StatusBadRequest, err)
		return scenario.Result{}, false
	}

	app.mux.RLock()
	res, ok := app.runs[pid]
	app.mux.RUnlock()
	if !ok {
		app.writeError(w, http.StatusNotFound, errors.New("no run "+pid.String()))
		return scenario.Result{}, false
	}
	return res, true
}

func (app *App) RunsHandler(w http.ResponseWriter, r *http.Request) {
	app.mux.RLock()
	out := make([]scenario.Summary, 0, len(app.runs))
	for _, res := range app.runs {
		out = append(out, res.Summary())
	}
	app.mux.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	app.writeJSON(w, http.StatusOK, out)
}

func (app *App) RunHandler(w http.ResponseWriter, r *http.Request) {
	if res, ok := app.lookup(w, r); ok {
		app.writeJSON(w, http.StatusOK, res.Summary())
	}
}

func (app *App) CapacityHandler(w http.ResponseWriter, r *http.Request) {
	if res, ok := app.lookup(w, r); ok {
		app.writeJSON(w, http.StatusOK, res.CapacityRecords())
	}
}

func (app *App) GenerationHandler(w http.ResponseWriter, r *http.Request) {
	if res, ok := app.lookup(w, r); ok {
		app.writeJSON(w, http.StatusOK, res.GenerationRecords())
	}
}

// ListenAndServe serves until ctx is done.
func (app *App) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: app.Config.Addr, Handler: app.Router()}

	errc := make(chan error, 1)
	go func() {
		app.log.Info("Starting Server", "addr", app.Config.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
