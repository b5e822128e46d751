// Command evacsim runs library evacuation experiments, or serves a single
// live evacuation to a renderer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/evacsim/internal/api"
	"github.com/talgya/evacsim/internal/config"
	"github.com/talgya/evacsim/internal/engine"
	"github.com/talgya/evacsim/internal/experiment"
	"github.com/talgya/evacsim/internal/persistence"
	"github.com/talgya/evacsim/internal/world"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (defaults apply when empty)")
	mode := flag.String("mode", "run", "run: batch experiment with report; serve: one live evacuation over HTTP")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.Database); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Database)

	// ── Building ──────────────────────────────────────────────────────
	exp, err := experiment.New(cfg, db)
	if err != nil {
		slog.Error("failed to prepare building", "error", err)
		os.Exit(1)
	}
	fp := exp.Layout.Fingerprint()
	if prev, _ := db.GetMeta("layout"); prev != "" && prev != fp {
		slog.Info("building changed since the last session", "previous", prev, "current", fp)
	}
	if err := db.SaveMeta("layout", fp); err != nil {
		slog.Warn("could not record layout", "error", err)
	}
	slog.Info("building ready",
		"name", exp.Layout.Name,
		"size", fmt.Sprintf("%dx%d", len([]rune(firstRow(exp.Layout))), len(exp.Layout.Rows)),
		"fingerprint", fp,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "run":
		err = runBatch(ctx, exp, cfg)
	case "serve":
		err = serve(ctx, exp, cfg, db)
	default:
		err = fmt.Errorf("unknown mode %q (use run or serve)", *mode)
	}
	if err != nil {
		slog.Error("evacsim failed", "error", err)
		os.Exit(1)
	}
}

func firstRow(l world.Layout) string {
	if len(l.Rows) == 0 {
		return ""
	}
	return l.Rows[0]
}

func runBatch(ctx context.Context, exp *experiment.Experiment, cfg config.Config) error {
	results, err := exp.Run(ctx)
	if len(results) > 0 {
		experiment.PrintConsoleReport(os.Stdout, results)
		if path, werr := experiment.WriteCSVReport(cfg.Report, results); werr != nil {
			slog.Error("report failed", "error", werr)
		} else if path != "" {
			fmt.Printf("Report: %s\n", path)
		}
	}
	return err
}

// serve runs one evacuation at wall-clock pace with the HTTP API attached.
func serve(ctx context.Context, exp *experiment.Experiment, cfg config.Config, db *persistence.DB) error {
	combos, err := cfg.ExitSets()
	if err != nil {
		return err
	}
	exits := combos[0]
	w, err := exp.NewWorld(exits, cfg.Seed)
	if err != nil {
		return err
	}

	eng := engine.NewEngine()
	eng.Interval = cfg.API.TickInterval
	eng.MaxTicks = uint64(w.MaxTicks())
	eng.OnTick = func(uint64) { w.Step() }
	eng.Done = w.Done

	if cfg.API.AdminKey == "" {
		slog.Warn("EVACSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		World:    w,
		Eng:      eng,
		DB:       db,
		Port:     cfg.API.Port,
		AdminKey: cfg.API.AdminKey,
		Origins:  cfg.API.CORSOrigins,
	}
	apiServer.Start()

	fmt.Printf("\nEvacuating %s people through %s.\n",
		humanize.Comma(int64(cfg.Visitors+cfg.Staff)), exits)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	res := experiment.NewRunResult(exits, 0, cfg.Seed, w.Result())
	if err := exp.Save(res); err != nil {
		return err
	}
	fmt.Printf("Simulation stopped after %s ticks: %d of %d safe.\n",
		humanize.Comma(int64(res.TotalTicks)), res.Safe, res.Population)

	// Keep serving the final state until interrupted.
	<-ctx.Done()
	return nil
}
