// Command hydro-automation runs the flood/drain controller: load a
// configuration file, wire its collaborators, and run until a termination
// signal arrives (§6 CLI surface).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Duds/hydro-automation/internal/config"
	"github.com/Duds/hydro-automation/internal/supervisor"
)

const (
	exitOK            = 0
	exitFailure       = 1
	defaultConfigPath = "config/config.json"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath, "path to the controller's JSON configuration file")
	forceWeb := flag.Bool("web", false, "force-enable the web control surface regardless of the config file's setting")
	flag.Parse()

	log := slog.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("configuration failed to load", "error", err)
		return exitFailure
	}
	if *forceWeb {
		if cfg.Web == nil {
			cfg.Web = &config.Web{}
		}
		cfg.Web.Enabled = true
	}

	sup, err := supervisor.New(cfg, log)
	if err != nil {
		log.Error("failed to construct supervisor", "error", err)
		return exitFailure
	}

	// A second INT/TERM after this one arrives falls through to the
	// default OS signal disposition (process killed, conventional exit
	// code 130) since stop() un-registers as soon as the first signal
	// cancels ctx — matching §6's "130 on interactive interrupt" without
	// this function needing to detect or return it itself.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	if err := sup.Run(ctx); err != nil {
		log.Error("supervisor exited with error", "error", err)
		return exitFailure
	}

	return exitOK
}
