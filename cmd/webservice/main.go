package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/stdr"
	flag "github.com/spf13/pflag"

	"github.com/ohowland/simpflex/internal/lib/csvinput"
	"github.com/ohowland/simpflex/internal/lib/report"
	"github.com/ohowland/simpflex/internal/lib/webservice"
	"github.com/ohowland/simpflex/internal/pkg/config"
	"github.com/ohowland/simpflex/internal/pkg/optimize/simplex"
	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

func main() {
	configPath := flag.StringP("config", "c", "./config/simpflex.json", "run configuration file")
	flag.Parse()

	log := stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags)).WithName("Main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(err, "bad configuration")
		os.Exit(1)
	}
	stdr.SetVerbosity(cfg.Log.Verbosity)

	in, err := csvinput.ReadDir(cfg.Inputs)
	if err != nil {
		log.Error(err, "reading inputs")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, err := report.Open(ctx, cfg.Sinks, log)
	if err != nil {
		log.Error(err, "connecting sinks")
		os.Exit(1)
	}
	defer sinks.Close(context.Background())

	runner := scenario.NewRunner(simplex.New(cfg.Solver.Tolerance, log), log)
	app := webservice.New(webservice.Config{Addr: cfg.Server.Addr, MaxRuns: cfg.Server.MaxRuns}, runner, in, sinks, log)
	if err := app.ListenAndServe(ctx); err != nil {
		log.Error(err, "server stopped")
	}
	log.Info("Process Shutdown")
}
