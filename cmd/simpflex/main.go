package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	flag "github.com/spf13/pflag"

	"github.com/ohowland/simpflex/internal/lib/csvinput"
	"github.com/ohowland/simpflex/internal/lib/report"
	"github.com/ohowland/simpflex/internal/pkg/config"
	"github.com/ohowland/simpflex/internal/pkg/optimize"
	"github.com/ohowland/simpflex/internal/pkg/optimize/simplex"
	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

func main() {
	configPath := flag.StringP("config", "c", "./config/simpflex.json", "run configuration file")
	lpFile := flag.String("lp", "", "write each model as CPLEX LP to this path, suffixed with the scenario name")
	verbosity := flag.IntP("verbosity", "v", -1, "log verbosity, overrides the configuration")
	flag.Parse()

	log := stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags))
	if err := run(*configPath, *lpFile, *verbosity, log); err != nil {
		log.Error(err, "run failed")
		os.Exit(1)
	}
}

func run(configPath, lpFile string, verbosity int, log logr.Logger) error {
	log = log.WithName("Main")
	log.Info("Starting simpflex v0.1.0")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbosity < 0 {
		verbosity = cfg.Log.Verbosity
	}
	stdr.SetVerbosity(verbosity)
	if lpFile == "" {
		lpFile = cfg.LPFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Reading Inputs", "dir", cfg.Inputs.Dir)
	in, err := csvinput.ReadDir(cfg.Inputs)
	if err != nil {
		return err
	}

	log.Info("Connecting Sinks")
	sinks, err := report.Open(ctx, cfg.Sinks, log)
	if err != nil {
		return err
	}
	defer sinks.Close(context.Background())

	runner := scenario.NewRunner(simplex.New(cfg.Solver.Tolerance, log), log)
	if lpFile != "" {
		runner.Export = func(s config.Scenario, m *optimize.Model) error {
			return writeLP(lpPath(lpFile, s.Name), m)
		}
	}

	scenarios := cfg.Resolved()
	log.Info("Running Scenarios", "count", len(scenarios))
	results, err := runner.RunAll(ctx, scenarios, in)
	for _, res := range results {
		if res.Finished.IsZero() {
			continue
		}
		for _, c := range res.CapacityByTech() {
			log.Info("capacity", "scenario", res.Scenario.Name, "tech", c.Tech, "mw", c.MW)
		}
		if res.Status == optimize.Optimal {
			if werr := sinks.Write(ctx, res); werr != nil {
				log.Error(werr, "result not reported", "scenario", res.Scenario.Name)
			}
		}
	}
	if err != nil {
		return err
	}

	log.Info("Process Shutdown")
	return nil
}

// lpPath inserts the scenario name before the extension: out.lp -> out.base.lp.
func lpPath(path, name string) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s.%s%s", path[:len(path)-len(ext)], name, ext)
}

func writeLP(path string, m *optimize.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.WriteLP(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
